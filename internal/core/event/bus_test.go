package event

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tickforge/ecsrt/internal/core/ecs"
)

func TestBus_DeliversAfterSwap(t *testing.T) {
	b := NewBus()
	var got []string
	Subscribe(b, func(s string) { got = append(got, s) })

	Emit(b, "hello")
	require.Equal(t, 1, b.Pending())
	require.Zero(t, b.DispatchAll())
	require.Empty(t, got)

	b.SwapBuffers()
	require.Equal(t, 1, b.DispatchAll())
	require.Equal(t, []string{"hello"}, got)

	b.SwapBuffers()
	require.Zero(t, b.DispatchAll())
	require.Len(t, got, 1)
}

func TestBus_TypesAreIsolated(t *testing.T) {
	b := NewBus()
	ints, strs := 0, 0
	Subscribe(b, func(int) { ints++ })
	Subscribe(b, func(string) { strs++ })

	Emit(b, 1)
	Emit(b, 2)
	Emit(b, "x")
	b.SwapBuffers()
	b.DispatchAll()

	require.Equal(t, 2, ints)
	require.Equal(t, 1, strs)
}

func TestLifecycleBridge_EmitsWorldEvents(t *testing.T) {
	b := NewBus()
	stamp := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bridge := NewLifecycleBridge(b)
	bridge.now = func() time.Time { return stamp }
	w := ecs.NewWorld(ecs.WithLifecycleHook(bridge))
	defer w.Close()

	var spawned []EntitySpawned
	var destroyed []EntityDestroyed
	Subscribe(b, func(ev EntitySpawned) { spawned = append(spawned, ev) })
	Subscribe(b, func(ev EntityDestroyed) { destroyed = append(destroyed, ev) })

	e := w.CreateEntity(ecs.CauseSceneInit)
	w.DestroyEntity(e, ecs.CauseLifetimeExpired)
	w.Tick(16 * time.Millisecond)

	b.SwapBuffers()
	b.DispatchAll()

	require.Equal(t, []EntitySpawned{{Entity: e, Cause: ecs.CauseSceneInit, At: stamp}}, spawned)
	require.Equal(t, []EntityDestroyed{{Entity: e, Cause: ecs.CauseLifetimeExpired, At: stamp}}, destroyed)
}

func TestLifecycleBridge_ConcurrentCreate(t *testing.T) {
	b := NewBus()
	w := ecs.NewWorld(ecs.WithLifecycleHook(NewLifecycleBridge(b)))
	defer w.Close()

	const workers, perWorker = 4, 2000
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				w.CreateEntity(ecs.CauseSpawner)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, workers*perWorker, w.AliveCount())
	require.Equal(t, workers*perWorker, b.Pending())

	seen := make(map[ecs.Entity]struct{}, workers*perWorker)
	Subscribe(b, func(ev EntitySpawned) { seen[ev.Entity] = struct{}{} })
	b.SwapBuffers()
	require.Equal(t, workers*perWorker, b.DispatchAll())
	require.Len(t, seen, workers*perWorker)
}

func TestBus_ConcurrentEmitAndSwap(t *testing.T) {
	b := NewBus()
	delivered := 0
	Subscribe(b, func(int) { delivered++ })

	const workers, perWorker = 4, 1000
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				Emit(b, j)
			}
		}()
	}
	for i := 0; i < 50; i++ {
		b.SwapBuffers()
		b.DispatchAll()
	}
	wg.Wait()
	b.SwapBuffers()
	b.DispatchAll()

	require.Equal(t, workers*perWorker, delivered)
}
