package ecs

import "go.uber.org/zap"

// Add attaches a copy of value to e and returns the stored component. If *T
// implements Behaviour it is scheduled for OnStart on the next tick.
func Add[T any](w *World, e Entity, value T) (*T, error) {
	if !w.pool.Alive(e) {
		return nil, componentErr[T]("add", e, ErrStaleHandle)
	}
	s := ensure[T](w.stores)
	if old, ok := s.get(e.ID); ok {
		if w.cfg.Strict {
			return nil, componentErr[T]("add", e, ErrDuplicateComponent)
		}
		w.detach(e, old)
		w.log.Debug("component replaced", zap.String("type", s.typeName()), zap.Stringer("entity", e))
	}

	c := new(T)
	*c = value
	s.set(e.ID, c)
	if b, ok := any(c).(Behaviour); ok {
		w.registry.Register(e, b, w.CreationCause(e))
	}
	return c, nil
}

// Remove detaches T from e. It reports false when e is dead or has no T.
func Remove[T any](w *World, e Entity) bool {
	if !w.pool.Alive(e) {
		w.log.Debug("remove on dead entity ignored",
			zap.String("type", typeNameOf[T]()),
			zap.Stringer("entity", e),
		)
		return false
	}
	s := lookup[T](w.stores)
	if s == nil {
		return false
	}
	c, ok := s.take(e.ID)
	if !ok {
		return false
	}
	w.detach(e, c)
	return true
}

func (w *World) detach(e Entity, c any) {
	if b, ok := c.(Behaviour); ok {
		w.registry.Detach(e, b)
	}
}

func Has[T any](w *World, e Entity) bool {
	_, ok := TryGet[T](w, e)
	return ok
}

// TryGet returns the T attached to e. Pointers returned here must not be
// kept across ticks; resolve them again each frame.
func TryGet[T any](w *World, e Entity) (*T, bool) {
	if !w.pool.Alive(e) {
		return nil, false
	}
	s := lookup[T](w.stores)
	if s == nil {
		return nil, false
	}
	return s.get(e.ID)
}

// Get is TryGet with a diagnostic error for dead entities and missing
// components.
func Get[T any](w *World, e Entity) (*T, error) {
	if !w.pool.Alive(e) {
		return nil, componentErr[T]("get", e, ErrStaleHandle)
	}
	s := lookup[T](w.stores)
	if s == nil {
		return nil, componentErr[T]("get", e, ErrMissingComponent)
	}
	c, ok := s.get(e.ID)
	if !ok {
		return nil, componentErr[T]("get", e, ErrMissingComponent)
	}
	return c, nil
}

// Count reports how many entities carry a T.
func Count[T any](w *World) int {
	s := lookup[T](w.stores)
	if s == nil {
		return 0
	}
	return s.len()
}

// ForEach visits every live entity with a T. The slot ids are copied before
// the walk, so fn may add or remove components and create or destroy
// entities. Entities that die or lose T during the walk are skipped.
func ForEach[T any](w *World, fn func(Entity, *T)) {
	s := lookup[T](w.stores)
	if s == nil {
		return
	}
	for _, id := range s.ids() {
		e, ok := w.pool.Current(id)
		if !ok {
			continue
		}
		c, ok := s.get(id)
		if !ok {
			continue
		}
		fn(e, c)
	}
}

// ForEach2 visits every live entity with both A and B, walking a snapshot
// of the A store. B is looked up per entity.
func ForEach2[A, B any](w *World, fn func(Entity, *A, *B)) {
	sa := lookup[A](w.stores)
	if sa == nil {
		return
	}
	for _, id := range sa.ids() {
		e, ok := w.pool.Current(id)
		if !ok {
			continue
		}
		a, ok := sa.get(id)
		if !ok {
			continue
		}
		sb := lookup[B](w.stores)
		if sb == nil {
			return
		}
		b, ok := sb.get(id)
		if !ok {
			continue
		}
		fn(e, a, b)
	}
}

// ForEach3 visits every live entity with A, B and C.
func ForEach3[A, B, C any](w *World, fn func(Entity, *A, *B, *C)) {
	sa := lookup[A](w.stores)
	if sa == nil {
		return
	}
	for _, id := range sa.ids() {
		e, ok := w.pool.Current(id)
		if !ok {
			continue
		}
		a, ok := sa.get(id)
		if !ok {
			continue
		}
		b, ok := TryGet[B](w, e)
		if !ok {
			continue
		}
		c, ok := TryGet[C](w, e)
		if !ok {
			continue
		}
		fn(e, a, b, c)
	}
}
