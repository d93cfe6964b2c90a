package component

import (
	"time"

	"github.com/tickforge/ecsrt/internal/core/ecs"
)

// Lifetime destroys its entity once Remaining has elapsed.
type Lifetime struct {
	Remaining time.Duration
	expired   bool
}

var _ ecs.Behaviour = (*Lifetime)(nil)

func (l *Lifetime) OnStart(*ecs.World, ecs.Entity) error { return nil }

func (l *Lifetime) OnUpdate(w *ecs.World, e ecs.Entity, dt time.Duration) error {
	if l.expired {
		return nil
	}
	l.Remaining -= dt
	if l.Remaining <= 0 {
		l.expired = true
		w.DestroyEntity(e, ecs.CauseLifetimeExpired)
	}
	return nil
}

func (l *Lifetime) Expired() bool { return l.expired }
