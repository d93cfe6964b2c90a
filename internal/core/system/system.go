package system

import "time"

// Phase defines execution ordering within a single host frame.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain external producers
	PhasePreUpdate               // 1: deliver last frame's lifecycle events
	PhaseUpdate                  // 2: World.Tick (spawns, behaviours, destroys)
	PhasePostUpdate              // 3: data-only systems over component stores
	PhasePersist                 // 4: flush metrics reports to storage
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre_update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post_update"
	case PhasePersist:
		return "persist"
	default:
		return "unknown"
	}
}

// System is the interface every host system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
