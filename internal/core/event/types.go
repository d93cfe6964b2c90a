package event

import (
	"time"

	"github.com/tickforge/ecsrt/internal/core/ecs"
)

// EntitySpawned is emitted when the World creates an entity. At is the
// time of creation, not of delivery.
type EntitySpawned struct {
	Entity ecs.Entity
	Cause  ecs.Cause
	At     time.Time
}

// EntityDestroyed is emitted when the World tears an entity down.
type EntityDestroyed struct {
	Entity ecs.Entity
	Cause  ecs.Cause
	At     time.Time
}

// LifecycleBridge forwards World lifecycle callbacks onto a Bus. It is safe
// for concurrent use.
type LifecycleBridge struct {
	bus *Bus
	now func() time.Time
}

var _ ecs.LifecycleHook = (*LifecycleBridge)(nil)

func NewLifecycleBridge(bus *Bus) *LifecycleBridge {
	return &LifecycleBridge{bus: bus, now: time.Now}
}

func (l *LifecycleBridge) EntityCreated(e ecs.Entity, cause ecs.Cause) {
	Emit(l.bus, EntitySpawned{Entity: e, Cause: cause, At: l.now()})
}

func (l *LifecycleBridge) EntityDestroyed(e ecs.Entity, cause ecs.Cause) {
	Emit(l.bus, EntityDestroyed{Entity: e, Cause: cause, At: l.now()})
}
