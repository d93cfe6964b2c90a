package ecs

import (
	"fmt"
	"sync"
)

// Entity pairs a slot index with the generation that was live when the
// handle was issued. Generation 0 is never issued, so the zero Entity is
// always dead.
type Entity struct {
	ID         uint32
	Generation uint32
}

func (e Entity) IsZero() bool { return e == Entity{} }

// Less orders handles by slot id, then generation.
func (e Entity) Less(other Entity) bool {
	if e.ID != other.ID {
		return e.ID < other.ID
	}
	return e.Generation < other.Generation
}

func (e Entity) String() string {
	return fmt.Sprintf("%d:%d", e.ID, e.Generation)
}

// EntityPool manages slot allocation with generational indices.
//
// Freed slots go through two pools: pending holds ids released during the
// current frame and ready holds ids that may be handed out again. Recycle
// moves pending into ready at the frame boundary, so a slot destroyed in
// frame N is reusable from frame N+1 at the earliest.
type EntityPool struct {
	mu          sync.RWMutex
	generations []uint32
	alive       []bool
	aliveCount  int
	pending     []uint32
	ready       []uint32
}

func NewEntityPool() *EntityPool {
	return &EntityPool{
		generations: make([]uint32, 0, 1024),
		alive:       make([]bool, 0, 1024),
		pending:     make([]uint32, 0, 64),
		ready:       make([]uint32, 0, 256),
	}
}

// Create allocates a slot and marks it alive.
func (p *EntityPool) Create() Entity {
	p.mu.Lock()
	defer p.mu.Unlock()

	var idx uint32
	if n := len(p.ready); n > 0 {
		idx = p.ready[n-1]
		p.ready = p.ready[:n-1]
	} else {
		idx = uint32(len(p.generations))
		p.generations = append(p.generations, 1)
		p.alive = append(p.alive, false)
	}
	p.alive[idx] = true
	p.aliveCount++
	return Entity{ID: idx, Generation: p.generations[idx]}
}

func (p *EntityPool) Alive(e Entity) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.aliveLocked(e)
}

func (p *EntityPool) aliveLocked(e Entity) bool {
	if int(e.ID) >= len(p.generations) {
		return false
	}
	return p.alive[e.ID] && p.generations[e.ID] == e.Generation
}

// Current returns the live handle occupying slot id.
func (p *EntityPool) Current(id uint32) (Entity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if int(id) >= len(p.generations) || !p.alive[id] {
		return Entity{}, false
	}
	return Entity{ID: id, Generation: p.generations[id]}, true
}

// Destroy releases the slot held by e and bumps its generation. The id is
// parked in the pending pool until the next Recycle. Stale handles are
// ignored and reported as false.
func (p *EntityPool) Destroy(e Entity) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.aliveLocked(e) {
		return false
	}
	p.alive[e.ID] = false
	p.aliveCount--
	p.generations[e.ID]++
	if p.generations[e.ID] == 0 {
		p.generations[e.ID] = 1
	}
	p.pending = append(p.pending, e.ID)
	return true
}

// Recycle makes ids freed since the previous call available for reuse.
func (p *EntityPool) Recycle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.pending)
	p.ready = append(p.ready, p.pending...)
	p.pending = p.pending[:0]
	return n
}

func (p *EntityPool) AliveCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.aliveCount
}

// Live returns every live handle in slot order.
func (p *EntityPool) Live() []Entity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Entity, 0, p.aliveCount)
	for id, ok := range p.alive {
		if ok {
			out = append(out, Entity{ID: uint32(id), Generation: p.generations[id]})
		}
	}
	return out
}

// Generation reports the current generation of slot id, or 0 if the slot
// was never allocated.
func (p *EntityPool) Generation(id uint32) uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if int(id) >= len(p.generations) {
		return 0
	}
	return p.generations[id]
}
