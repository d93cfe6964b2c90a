package ecs

// Cause records why an entity was created or destroyed. It only feeds logs,
// lifecycle events and metrics; no control flow depends on it.
type Cause uint8

const (
	CauseUnknown Cause = iota
	CauseSpawner
	CauseWaveTimer
	CauseCollision
	CauseLifetimeExpired
	CauseSceneInit
	CauseScript
	CauseManual
	CauseShutdown
)

var causeNames = [...]string{
	CauseUnknown:         "unknown",
	CauseSpawner:         "spawner",
	CauseWaveTimer:       "wave_timer",
	CauseCollision:       "collision",
	CauseLifetimeExpired: "lifetime_expired",
	CauseSceneInit:       "scene_init",
	CauseScript:          "script",
	CauseManual:          "manual",
	CauseShutdown:        "shutdown",
}

func (c Cause) String() string {
	if int(c) < len(causeNames) {
		return causeNames[c]
	}
	return "unknown"
}

// ParseCause maps a name produced by String back to its Cause. Unrecognised
// names map to CauseUnknown.
func ParseCause(s string) Cause {
	for i, name := range causeNames {
		if name == s {
			return Cause(i)
		}
	}
	return CauseUnknown
}
