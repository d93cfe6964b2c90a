package system

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tickforge/ecsrt/internal/core/ecs"
	"github.com/tickforge/ecsrt/internal/core/event"
	coresys "github.com/tickforge/ecsrt/internal/core/system"
	"github.com/tickforge/ecsrt/internal/persist"
	"go.uber.org/zap"
)

// ReportSink stores frame reports. Implemented by persist.ReportRepo.
type ReportSink interface {
	WriteReports(ctx context.Context, runID uuid.UUID, reports []ecs.FrameReport) error
}

// JournalSink stores lifecycle transitions. Implemented by persist.JournalRepo.
type JournalSink interface {
	Append(ctx context.Context, runID uuid.UUID, entries []persist.JournalEntry) error
}

// PersistenceSystem buffers metrics windows and lifecycle events and writes
// them out every interval frames. Phase 4 (Persist).
//
// It is registered as an ecs.Reporter, so reports arrive on the tick
// goroutine during World.Tick and no locking is needed.
type PersistenceSystem struct {
	runID     uuid.UUID
	reports   ReportSink
	journal   JournalSink
	log       *zap.Logger
	tickCount int
	interval  int // flush every N frames
	timeout   time.Duration

	pendingReports []ecs.FrameReport
	pendingJournal []persist.JournalEntry
	failures       int
}

var _ ecs.Reporter = (*PersistenceSystem)(nil)

// maxPending bounds each buffer while the store is unreachable; the oldest
// entries are dropped first.
const maxPending = 10000

// NewPersistenceSystem wires the system to bus for lifecycle events. journal
// may be nil to skip the journal.
func NewPersistenceSystem(runID uuid.UUID, reports ReportSink, journal JournalSink, bus *event.Bus, log *zap.Logger, intervalTicks int) *PersistenceSystem {
	if intervalTicks <= 0 {
		intervalTicks = 1
	}
	s := &PersistenceSystem{
		runID:    runID,
		reports:  reports,
		journal:  journal,
		log:      log,
		interval: intervalTicks,
		timeout:  5 * time.Second,
	}
	if journal != nil && bus != nil {
		event.Subscribe(bus, func(ev event.EntitySpawned) {
			s.record(ev.Entity, "created", ev.Cause, ev.At)
		})
		event.Subscribe(bus, func(ev event.EntityDestroyed) {
			s.record(ev.Entity, "destroyed", ev.Cause, ev.At)
		})
	}
	return s
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

// Report implements ecs.Reporter.
func (s *PersistenceSystem) Report(fr ecs.FrameReport) {
	if len(s.pendingReports) >= maxPending {
		s.pendingReports = s.pendingReports[1:]
	}
	s.pendingReports = append(s.pendingReports, fr)
}

func (s *PersistenceSystem) record(e ecs.Entity, kind string, cause ecs.Cause, at time.Time) {
	if len(s.pendingJournal) >= maxPending {
		s.pendingJournal = s.pendingJournal[1:]
	}
	s.pendingJournal = append(s.pendingJournal, persist.JournalEntry{
		EntityID:   e.ID,
		Generation: e.Generation,
		Kind:       kind,
		Cause:      cause.String(),
		At:         at,
	})
}

func (s *PersistenceSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	s.flush()
}

// Flush writes everything buffered immediately. Called on shutdown.
func (s *PersistenceSystem) Flush() {
	s.flush()
}

// Pending returns the number of buffered reports and journal entries.
func (s *PersistenceSystem) Pending() (reports, journal int) {
	return len(s.pendingReports), len(s.pendingJournal)
}

// Failures counts flushes that returned an error.
func (s *PersistenceSystem) Failures() int { return s.failures }

func (s *PersistenceSystem) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if len(s.pendingReports) > 0 {
		if err := s.reports.WriteReports(ctx, s.runID, s.pendingReports); err != nil {
			s.failures++
			s.log.Error("persist frame reports failed",
				zap.Int("reports", len(s.pendingReports)), zap.Error(err))
		} else {
			s.pendingReports = s.pendingReports[:0]
		}
	}
	if s.journal != nil && len(s.pendingJournal) > 0 {
		if err := s.journal.Append(ctx, s.runID, s.pendingJournal); err != nil {
			s.failures++
			s.log.Error("persist lifecycle journal failed",
				zap.Int("entries", len(s.pendingJournal)), zap.Error(err))
		} else {
			s.pendingJournal = s.pendingJournal[:0]
		}
	}
}
