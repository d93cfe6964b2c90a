package ecs

import "time"

// Behaviour is implemented by components that take part in per-frame
// scheduling. OnStart runs once, on the first tick after the component is
// attached to a live entity; OnUpdate runs on every tick after that.
//
// Errors and panics are contained by Tick and logged with the entity.
type Behaviour interface {
	OnStart(w *World, e Entity) error
	OnUpdate(w *World, e Entity, dt time.Duration) error
}

// scheduleEntry refers to a behaviour owned by a component store.
type scheduleEntry struct {
	entity    Entity
	behaviour Behaviour
	started   bool
	detached  bool
	cause     Cause
}

// Registry is the ordered schedule of behaviour entries. It borrows the
// behaviours; the component stores own them.
type Registry struct {
	entries []*scheduleEntry
	bySlot  map[uint32][]*scheduleEntry // entity slot -> its entries, in schedule order
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make([]*scheduleEntry, 0, 64),
		bySlot:  make(map[uint32][]*scheduleEntry),
	}
}

func (r *Registry) Register(e Entity, b Behaviour, cause Cause) {
	en := &scheduleEntry{entity: e, behaviour: b, cause: cause}
	r.entries = append(r.entries, en)
	r.bySlot[e.ID] = append(r.bySlot[e.ID], en)
}

// Detach marks the entry for (e, b) as removed. The slot stays in place
// until the next Purge so indices are stable during a pass.
func (r *Registry) Detach(e Entity, b Behaviour) bool {
	for _, en := range r.bySlot[e.ID] {
		if !en.detached && en.entity == e && en.behaviour == b {
			en.detached = true
			return true
		}
	}
	return false
}

// DetachEntity marks every entry belonging to e as removed.
func (r *Registry) DetachEntity(e Entity) int {
	n := 0
	for _, en := range r.bySlot[e.ID] {
		if !en.detached && en.entity == e {
			en.detached = true
			n++
		}
	}
	return n
}

// Purge drops detached entries and entries whose entity fails alive.
func (r *Registry) Purge(alive func(Entity) bool) int {
	kept := r.entries[:0]
	var touched []uint32
	for _, en := range r.entries {
		if en.detached || !alive(en.entity) {
			en.detached = true
			touched = append(touched, en.entity.ID)
			continue
		}
		kept = append(kept, en)
	}
	removed := len(r.entries) - len(kept)
	for i := len(kept); i < len(r.entries); i++ {
		r.entries[i] = nil
	}
	r.entries = kept

	for _, id := range touched {
		r.compactSlot(id)
	}
	return removed
}

func (r *Registry) compactSlot(id uint32) {
	list, ok := r.bySlot[id]
	if !ok {
		return
	}
	live := list[:0]
	for _, en := range list {
		if !en.detached {
			live = append(live, en)
		}
	}
	for i := len(live); i < len(list); i++ {
		list[i] = nil
	}
	if len(live) == 0 {
		delete(r.bySlot, id)
		return
	}
	r.bySlot[id] = live
}

// Slots returns the number of entity slots with at least one indexed entry.
func (r *Registry) Slots() int { return len(r.bySlot) }

func (r *Registry) Len() int { return len(r.entries) }

// Pending counts entries that have not run OnStart yet.
func (r *Registry) Pending() int {
	n := 0
	for _, en := range r.entries {
		if !en.started && !en.detached {
			n++
		}
	}
	return n
}

func (r *Registry) clear() {
	clear(r.entries)
	r.entries = r.entries[:0]
	clear(r.bySlot)
}
