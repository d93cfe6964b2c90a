package system

import (
	"time"

	"github.com/tickforge/ecsrt/internal/core/ecs"
	coresys "github.com/tickforge/ecsrt/internal/core/system"
)

// WorldTickSystem advances the ECS world by one frame: queued spawns,
// behaviour start and update passes, then the deferred destroy flush.
// Phase 2 (Update).
type WorldTickSystem struct {
	world *ecs.World
}

func NewWorldTickSystem(world *ecs.World) *WorldTickSystem {
	return &WorldTickSystem{world: world}
}

func (s *WorldTickSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *WorldTickSystem) Update(dt time.Duration) {
	s.world.Tick(dt)
}
