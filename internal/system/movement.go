package system

import (
	"time"

	"github.com/tickforge/ecsrt/internal/component"
	"github.com/tickforge/ecsrt/internal/core/ecs"
	coresys "github.com/tickforge/ecsrt/internal/core/system"
)

// MovementSystem integrates Velocity into Transform for every entity that
// has both. Phase 3 (PostUpdate).
type MovementSystem struct {
	world *ecs.World
}

func NewMovementSystem(world *ecs.World) *MovementSystem {
	return &MovementSystem{world: world}
}

func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *MovementSystem) Update(dt time.Duration) {
	sec := dt.Seconds()
	ecs.ForEach2(s.world, func(_ ecs.Entity, tr *component.Transform, v *component.Velocity) {
		tr.X += v.X * sec
		tr.Y += v.Y * sec
	})
}
