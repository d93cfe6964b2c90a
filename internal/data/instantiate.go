package data

import (
	"fmt"

	"github.com/tickforge/ecsrt/internal/component"
	"github.com/tickforge/ecsrt/internal/core/ecs"
	"github.com/tickforge/ecsrt/internal/scripting"
)

// Apply attaches the template's components to e.
func (t *EntityTemplate) Apply(w *ecs.World, e ecs.Entity, scripts *scripting.Engine) error {
	b := w.Builder(e)
	if t.Transform != nil {
		ecs.With(b, component.Transform{X: t.Transform.X, Y: t.Transform.Y})
	}
	if t.Velocity != nil {
		ecs.With(b, component.Velocity{X: t.Velocity.X, Y: t.Velocity.Y})
	}
	if t.Lifetime > 0 {
		ecs.With(b, component.Lifetime{Remaining: t.Lifetime})
	}
	if t.Script != "" {
		if scripts == nil {
			return fmt.Errorf("template %q: script %q needs a scripting engine", t.Name, t.Script)
		}
		ecs.With(b, scripts.NewScript(t.Script))
	}
	ecs.With(b, component.Name{Value: t.Name})
	if err := b.Err(); err != nil {
		return fmt.Errorf("template %q: %w", t.Name, err)
	}
	return nil
}

// Instantiate creates the scene's placements and spawners in w with cause
// SceneInit and returns the number of entities created.
func (s *Scene) Instantiate(w *ecs.World, scripts *scripting.Engine) (int, error) {
	n := 0
	for _, p := range s.Place {
		tmpl := s.templates[p.Template]
		for i := 0; i < p.Count; i++ {
			e := w.CreateEntity(ecs.CauseSceneInit)
			n++
			if err := tmpl.Apply(w, e, scripts); err != nil {
				w.DestroyEntity(e, ecs.CauseSceneInit)
				return n, err
			}
		}
	}
	for _, sp := range s.Spawners {
		tmpl := s.templates[sp.Template]
		_, err := ecs.With(ecs.With(w.NewEntity(ecs.CauseSceneInit),
			component.Name{Value: "spawner:" + sp.Template}),
			component.WaveSpawner{
				Interval: sp.Interval,
				PerWave:  sp.PerWave,
				Waves:    sp.Waves,
				Template: func(w *ecs.World, e ecs.Entity) error {
					return tmpl.Apply(w, e, scripts)
				},
			}).Build()
		n++
		if err != nil {
			return n, fmt.Errorf("spawner %q: %w", sp.Template, err)
		}
	}
	return n, nil
}
