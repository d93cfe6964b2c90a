package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted during tick N are
// delivered by DispatchAll after the SwapBuffers that opens tick N+1.
// Emit may be called from any goroutine; SwapBuffers and DispatchAll belong
// to the tick goroutine.
type Bus struct {
	mu       sync.Mutex // handler registration
	backMu   sync.Mutex // back buffer and the swap
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	handlers map[reflect.Type][]func(any)
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]func(any)),
	}
}

func typeKey[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Emit queues an event into the back buffer.
func Emit[T any](b *Bus, event T) {
	t := typeKey[T]()
	b.backMu.Lock()
	b.back[t] = append(b.back[t], event)
	b.backMu.Unlock()
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := typeKey[T]()
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// SwapBuffers rotates back into front and clears the new back buffer.
func (b *Bus) SwapBuffers() {
	b.backMu.Lock()
	defer b.backMu.Unlock()
	b.front, b.back = b.back, b.front
	for k := range b.back {
		clear(b.back[k])
		b.back[k] = b.back[k][:0]
	}
}

// DispatchAll delivers every front-buffer event to its handlers and returns
// the number of events delivered.
func (b *Bus) DispatchAll() int {
	b.mu.Lock()
	handlers := make(map[reflect.Type][]func(any), len(b.handlers))
	for t, hs := range b.handlers {
		handlers[t] = hs
	}
	b.mu.Unlock()

	n := 0
	for t, events := range b.front {
		hs := handlers[t]
		for _, ev := range events {
			for _, h := range hs {
				h(ev)
			}
			n++
		}
	}
	return n
}

// Pending reports how many events wait in the back buffer.
func (b *Bus) Pending() int {
	b.backMu.Lock()
	defer b.backMu.Unlock()
	n := 0
	for _, events := range b.back {
		n += len(events)
	}
	return n
}
