package ecs

import (
	"time"

	"go.uber.org/zap"
)

// FrameReport aggregates one metrics window.
type FrameReport struct {
	Frames    int
	DtAvg     time.Duration
	DtMin     time.Duration
	DtMax     time.Duration
	Created   int
	Destroyed int
	Alive     int
	At        time.Time
}

// Reporter receives a FrameReport at the end of every metrics window.
// Report is called on the goroutine running Tick.
type Reporter interface {
	Report(FrameReport)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(FrameReport)

func (f ReporterFunc) Report(r FrameReport) { f(r) }

// MetricsSnapshot is a copy of the World's counters.
type MetricsSnapshot struct {
	Frames              uint64
	CreatedTotal        uint64
	DestroyedTotal      uint64
	Alive               int
	ConsistencyWarnings uint64
	BehaviourFaults     uint64

	FrameCreated   int
	FrameDestroyed int
	FrameBaseline  int
}

type frameMetrics struct {
	// this frame
	created   int
	destroyed int
	baseline  int

	// rolling window
	windowFrames    int
	windowDtSum     time.Duration
	windowDtMin     time.Duration
	windowDtMax     time.Duration
	windowCreated   int
	windowDestroyed int

	// lifetime
	frames              uint64
	createdTotal        uint64
	destroyedTotal      uint64
	consistencyWarnings uint64
	behaviourFaults     uint64
}

func (m *frameMetrics) beginFrame(alive int) {
	m.created = 0
	m.destroyed = 0
	m.baseline = alive
}

func (m *frameMetrics) onCreated() {
	m.created++
	m.windowCreated++
	m.createdTotal++
}

func (m *frameMetrics) onDestroyed() {
	m.destroyed++
	m.windowDestroyed++
	m.destroyedTotal++
}

func (m *frameMetrics) observeDelta(dt time.Duration) {
	m.frames++
	if m.windowFrames == 0 || dt < m.windowDtMin {
		m.windowDtMin = dt
	}
	if dt > m.windowDtMax {
		m.windowDtMax = dt
	}
	m.windowFrames++
	m.windowDtSum += dt
}

func (m *frameMetrics) expected() int {
	return m.baseline + m.created - m.destroyed
}

// flushWindow builds a report for the current window and resets it.
func (m *frameMetrics) flushWindow(alive int, now time.Time) FrameReport {
	r := FrameReport{
		Frames:    m.windowFrames,
		DtMin:     m.windowDtMin,
		DtMax:     m.windowDtMax,
		Created:   m.windowCreated,
		Destroyed: m.windowDestroyed,
		Alive:     alive,
		At:        now,
	}
	if m.windowFrames > 0 {
		r.DtAvg = m.windowDtSum / time.Duration(m.windowFrames)
	}
	m.windowFrames = 0
	m.windowDtSum = 0
	m.windowDtMin = 0
	m.windowDtMax = 0
	m.windowCreated = 0
	m.windowDestroyed = 0
	return r
}

func (m *frameMetrics) snapshot(alive int) MetricsSnapshot {
	return MetricsSnapshot{
		Frames:              m.frames,
		CreatedTotal:        m.createdTotal,
		DestroyedTotal:      m.destroyedTotal,
		Alive:               alive,
		ConsistencyWarnings: m.consistencyWarnings,
		BehaviourFaults:     m.behaviourFaults,
		FrameCreated:        m.created,
		FrameDestroyed:      m.destroyed,
		FrameBaseline:       m.baseline,
	}
}

// logReporter is the default Reporter.
type logReporter struct {
	log *zap.Logger
}

// NewLogReporter returns the Reporter used when none is configured. Pass it
// explicitly to keep log output alongside other reporters.
func NewLogReporter(log *zap.Logger) Reporter {
	return logReporter{log: log}
}

func (r logReporter) Report(fr FrameReport) {
	r.log.Info("frame window",
		zap.Int("frames", fr.Frames),
		zap.Duration("dt_avg", fr.DtAvg),
		zap.Duration("dt_min", fr.DtMin),
		zap.Duration("dt_max", fr.DtMax),
		zap.Int("created", fr.Created),
		zap.Int("destroyed", fr.Destroyed),
		zap.Int("alive", fr.Alive),
	)
}
