package system

import (
	"sort"

	"github.com/tickforge/ecsrt/internal/core/ecs"
	"github.com/tickforge/ecsrt/internal/core/event"
)

// CauseStats tallies lifecycle events by cause. Handlers run on the tick
// goroutine during event dispatch.
type CauseStats struct {
	created   map[ecs.Cause]int
	destroyed map[ecs.Cause]int
}

// CauseCount is one row of a CauseStats summary.
type CauseCount struct {
	Cause     ecs.Cause
	Created   int
	Destroyed int
}

func NewCauseStats(bus *event.Bus) *CauseStats {
	s := &CauseStats{
		created:   make(map[ecs.Cause]int),
		destroyed: make(map[ecs.Cause]int),
	}
	event.Subscribe(bus, func(ev event.EntitySpawned) { s.created[ev.Cause]++ })
	event.Subscribe(bus, func(ev event.EntityDestroyed) { s.destroyed[ev.Cause]++ })
	return s
}

func (s *CauseStats) Created(c ecs.Cause) int   { return s.created[c] }
func (s *CauseStats) Destroyed(c ecs.Cause) int { return s.destroyed[c] }

// Summary returns one row per cause seen, ordered by cause.
func (s *CauseStats) Summary() []CauseCount {
	seen := make(map[ecs.Cause]struct{}, len(s.created)+len(s.destroyed))
	for c := range s.created {
		seen[c] = struct{}{}
	}
	for c := range s.destroyed {
		seen[c] = struct{}{}
	}
	out := make([]CauseCount, 0, len(seen))
	for c := range seen {
		out = append(out, CauseCount{Cause: c, Created: s.created[c], Destroyed: s.destroyed[c]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cause < out[j].Cause })
	return out
}
