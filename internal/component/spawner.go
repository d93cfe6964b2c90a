package component

import (
	"fmt"
	"time"

	"github.com/tickforge/ecsrt/internal/core/ecs"
)

// Template fills in a freshly spawned entity.
type Template func(w *ecs.World, e ecs.Entity) error

// WaveSpawner queues PerWave spawns every Interval. Waves limits the number
// of waves; zero means unlimited. Spawned entities appear at the start of
// the next frame.
type WaveSpawner struct {
	Interval time.Duration
	PerWave  int
	Waves    int
	Template Template

	elapsed time.Duration
	fired   int
	failed  int
}

var _ ecs.Behaviour = (*WaveSpawner)(nil)

func (s *WaveSpawner) OnStart(*ecs.World, ecs.Entity) error {
	if s.Interval <= 0 {
		return fmt.Errorf("wave spawner: interval must be positive, got %s", s.Interval)
	}
	return nil
}

func (s *WaveSpawner) OnUpdate(w *ecs.World, _ ecs.Entity, dt time.Duration) error {
	if s.Interval <= 0 || s.Done() {
		return nil
	}
	s.elapsed += dt
	for s.elapsed >= s.Interval && !s.Done() {
		s.elapsed -= s.Interval
		s.fired++
		for i := 0; i < s.PerWave; i++ {
			w.EnqueueSpawn(ecs.CauseWaveTimer, s.build(w))
		}
	}
	return nil
}

func (s *WaveSpawner) build(w *ecs.World) func(ecs.Entity) {
	return func(e ecs.Entity) {
		if s.Template == nil {
			return
		}
		if err := s.Template(w, e); err != nil {
			s.failed++
			w.DestroyEntity(e, ecs.CauseWaveTimer)
		}
	}
}

// Done reports whether every configured wave has fired.
func (s *WaveSpawner) Done() bool { return s.Waves > 0 && s.fired >= s.Waves }

func (s *WaveSpawner) Fired() int { return s.fired }

// Failed counts spawns whose Template returned an error.
func (s *WaveSpawner) Failed() int { return s.failed }
