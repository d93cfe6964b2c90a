package ecs

// Builder chains component attachment onto a freshly created entity.
//
//	e, err := ecs.With(ecs.With(w.NewEntity(ecs.CauseSceneInit), Position{}), Velocity{X: 1}).Build()
//
// The first failed With is kept in Err; later calls are skipped.
type Builder struct {
	world  *World
	entity Entity
	err    error
}

// NewEntity creates an entity immediately and returns a Builder for it.
func (w *World) NewEntity(cause Cause) *Builder {
	return &Builder{world: w, entity: w.CreateEntity(cause)}
}

// Builder returns a Builder for an existing entity, such as one handed to
// an EnqueueSpawn callback.
func (w *World) Builder(e Entity) *Builder {
	b := &Builder{world: w, entity: e}
	if !w.IsAlive(e) {
		b.err = &ComponentError{Op: "build", Type: "entity", Entity: e, Err: ErrStaleHandle}
	}
	return b
}

// With attaches value to the builder's entity.
func With[T any](b *Builder, value T) *Builder {
	if b.err != nil {
		return b
	}
	if _, err := Add(b.world, b.entity, value); err != nil {
		b.err = err
	}
	return b
}

func (b *Builder) Entity() Entity { return b.entity }

func (b *Builder) Err() error { return b.err }

func (b *Builder) Build() (Entity, error) { return b.entity, b.err }
