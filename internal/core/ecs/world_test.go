package ecs

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const frame = 16 * time.Millisecond

type position struct{ X, Y float64 }

type velocity struct{ X, Y float64 }

type counter struct {
	starts     int
	updates    int
	lastDt     time.Duration
	failStart  error
	failUpdate error
	panicOn    bool
}

func (c *counter) OnStart(*World, Entity) error {
	c.starts++
	return c.failStart
}

func (c *counter) OnUpdate(_ *World, _ Entity, dt time.Duration) error {
	c.updates++
	c.lastDt = dt
	if c.panicOn {
		panic("boom")
	}
	return c.failUpdate
}

type lifecycleEvent struct {
	entity Entity
	cause  Cause
}

type recordingHook struct {
	created   []lifecycleEvent
	destroyed []lifecycleEvent
}

func (h *recordingHook) EntityCreated(e Entity, c Cause) {
	h.created = append(h.created, lifecycleEvent{e, c})
}

func (h *recordingHook) EntityDestroyed(e Entity, c Cause) {
	h.destroyed = append(h.destroyed, lifecycleEvent{e, c})
}

func newObservedWorld(t *testing.T, opts ...Option) (*World, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	w := NewWorld(append([]Option{WithLogger(zap.New(core))}, opts...)...)
	t.Cleanup(w.Close)
	return w, logs
}

func TestWorld_BehaviourStartsOnceAndUpdatesEveryTick(t *testing.T) {
	w, _ := newObservedWorld(t)

	a := w.CreateEntity(CauseManual)
	x, err := Add(w, a, counter{})
	require.NoError(t, err)

	w.Tick(frame)
	require.Equal(t, 1, x.starts)
	require.Equal(t, 1, x.updates)

	w.Tick(frame)
	require.Equal(t, 1, x.starts)
	require.Equal(t, 2, x.updates)
	require.Equal(t, frame, x.lastDt)
}

func TestWorld_DuplicateDestroyTearsDownOnce(t *testing.T) {
	hook := &recordingHook{}
	w, _ := newObservedWorld(t, WithLifecycleHook(hook))

	a := w.CreateEntity(CauseManual)
	_, err := Add(w, a, position{})
	require.NoError(t, err)

	w.DestroyEntity(a, CauseCollision)
	w.DestroyEntity(a, CauseLifetimeExpired)
	require.Equal(t, 2, w.PendingDestroy())

	w.Tick(frame)

	require.False(t, w.IsAlive(a))
	require.Len(t, hook.destroyed, 1)
	require.Equal(t, lifecycleEvent{a, CauseLifetimeExpired}, hook.destroyed[0])
	require.Equal(t, 0, Count[position](w))
	require.Equal(t, uint64(1), w.Metrics().DestroyedTotal)

	b := w.CreateEntity(CauseManual)
	c := w.CreateEntity(CauseManual)
	require.NotEqual(t, b.ID, c.ID, "slot must be handed out once")
}

func TestWorld_SlotReuseBumpsGeneration(t *testing.T) {
	w, _ := newObservedWorld(t)

	a := w.CreateEntity(CauseManual)
	w.Tick(frame)
	w.DestroyEntity(a, CauseManual)
	w.Tick(frame)

	b := w.CreateEntity(CauseManual)
	require.Equal(t, a.ID, b.ID)
	require.Equal(t, a.Generation+1, b.Generation)
	require.NotEqual(t, a, b)
	require.False(t, w.IsAlive(a))
	require.True(t, w.IsAlive(b))
}

func TestWorld_FreedSlotNotReusedInSameFrame(t *testing.T) {
	w, _ := newObservedWorld(t)

	a := w.CreateEntity(CauseManual)
	w.DestroyEntity(a, CauseManual)
	require.Equal(t, 1, w.FlushDestroyEndOfFrame())

	b := w.CreateEntity(CauseManual)
	require.NotEqual(t, a.ID, b.ID)
}

type killer struct {
	target      Entity
	sawAlive    bool
	sawPosition bool
}

func (k *killer) OnStart(*World, Entity) error { return nil }

func (k *killer) OnUpdate(w *World, _ Entity, _ time.Duration) error {
	w.DestroyEntity(k.target, CauseCollision)
	k.sawAlive = w.IsAlive(k.target)
	k.sawPosition = Has[position](w, k.target)
	return nil
}

func TestWorld_DestroyIsDeferredToEndOfFrame(t *testing.T) {
	w, _ := newObservedWorld(t)

	victim := w.CreateEntity(CauseManual)
	_, err := Add(w, victim, position{X: 1})
	require.NoError(t, err)
	victimCounter, err := Add(w, victim, counter{})
	require.NoError(t, err)

	hunter := w.CreateEntity(CauseManual)
	k, err := Add(w, hunter, killer{target: victim})
	require.NoError(t, err)

	w.Tick(frame)

	require.True(t, k.sawAlive)
	require.True(t, k.sawPosition)
	require.False(t, w.IsAlive(victim))
	require.Equal(t, 1, victimCounter.updates, "victim still updates in the frame it is destroyed")
	require.Equal(t, 1, w.BehaviourCount())

	w.Tick(frame)
	require.Equal(t, 1, victimCounter.updates)
}

func TestWorld_EnqueuedSpawnStartsInSameTick(t *testing.T) {
	w, _ := newObservedWorld(t)

	var spawned Entity
	var c *counter
	w.EnqueueSpawn(CauseSpawner, func(e Entity) {
		spawned = e
		var err error
		c, err = Add(w, e, counter{})
		require.NoError(t, err)
	})
	require.Equal(t, 0, w.AliveCount())

	w.Tick(frame)

	require.True(t, w.IsAlive(spawned))
	require.Equal(t, CauseSpawner, w.CreationCause(spawned))
	require.Equal(t, 1, c.starts)
	require.Equal(t, 1, c.updates)
}

type spawnInCallback struct{ done bool }

func (s *spawnInCallback) OnStart(*World, Entity) error { return nil }

func (s *spawnInCallback) OnUpdate(w *World, _ Entity, _ time.Duration) error {
	if !s.done {
		s.done = true
		e := w.CreateEntity(CauseScript)
		_, err := Add(w, e, counter{})
		return err
	}
	return nil
}

func TestWorld_CreateDuringUpdateWarnsAndDefersStart(t *testing.T) {
	w, logs := newObservedWorld(t)

	e := w.CreateEntity(CauseManual)
	_, err := Add(w, e, spawnInCallback{})
	require.NoError(t, err)

	w.Tick(frame)
	require.Equal(t, 1, logs.FilterMessage("entity created during behaviour pass").Len())
	require.Equal(t, 2, w.AliveCount())

	var child *counter
	ForEach(w, func(_ Entity, c *counter) { child = c })
	require.NotNil(t, child)
	require.Equal(t, 0, child.starts)

	w.Tick(frame)
	require.Equal(t, 1, child.starts)
	require.Equal(t, 1, child.updates)
	require.Zero(t, w.Metrics().ConsistencyWarnings)
}

func TestWorld_BehaviourFaultsAreContained(t *testing.T) {
	w, logs := newObservedWorld(t)

	bad := w.CreateEntity(CauseManual)
	failing, err := Add(w, bad, counter{failUpdate: errors.New("nope")})
	require.NoError(t, err)

	crash := w.CreateEntity(CauseManual)
	panicking, err := Add(w, crash, counter{panicOn: true})
	require.NoError(t, err)

	good := w.CreateEntity(CauseManual)
	healthy, err := Add(w, good, counter{})
	require.NoError(t, err)

	require.NotPanics(t, func() { w.Tick(frame) })

	require.Equal(t, 1, failing.updates)
	require.Equal(t, 1, panicking.updates)
	require.Equal(t, 1, healthy.updates)

	faults := logs.FilterMessage("behaviour fault").All()
	require.Len(t, faults, 2)
	require.Equal(t, uint64(2), w.Metrics().BehaviourFaults)

	ids := []uint32{}
	for _, entry := range faults {
		ids = append(ids, entry.ContextMap()["entity_id"].(uint32))
	}
	require.ElementsMatch(t, []uint32{bad.ID, crash.ID}, ids)
}

func TestWorld_StartFaultSkipsUpdateForThatFrame(t *testing.T) {
	w, _ := newObservedWorld(t)

	e := w.CreateEntity(CauseManual)
	c, err := Add(w, e, counter{failStart: errors.New("not ready")})
	require.NoError(t, err)

	w.Tick(frame)
	require.Equal(t, 1, c.starts)
	require.Equal(t, 0, c.updates)

	w.Tick(frame)
	require.Equal(t, 1, c.starts)
	require.Equal(t, 1, c.updates)
}

func TestWorld_RemoveUnschedulesBehaviour(t *testing.T) {
	w, _ := newObservedWorld(t)

	e := w.CreateEntity(CauseManual)
	c, err := Add(w, e, counter{})
	require.NoError(t, err)

	w.Tick(frame)
	require.True(t, Remove[counter](w, e))
	require.False(t, Remove[counter](w, e))

	w.Tick(frame)
	require.Equal(t, 1, c.updates)
	require.Equal(t, 0, w.BehaviourCount())
	require.True(t, w.IsAlive(e))
}

func TestWorld_NegativeDeltaIsClamped(t *testing.T) {
	w, logs := newObservedWorld(t)

	e := w.CreateEntity(CauseManual)
	c, err := Add(w, e, counter{})
	require.NoError(t, err)

	w.Tick(-time.Second)
	require.Equal(t, time.Duration(0), c.lastDt)
	require.Equal(t, 1, logs.FilterMessage("negative frame delta clamped").Len())

	w.Tick(time.Second)
	require.Equal(t, time.Second, c.lastDt)
	require.Equal(t, 1, logs.FilterMessage("large frame delta").Len())
}

func TestWorld_AccountingHoldsAcrossTicks(t *testing.T) {
	w, logs := newObservedWorld(t)

	live := []Entity{}
	for i := 0; i < 50; i++ {
		for j := 0; j < 3; j++ {
			live = append(live, w.CreateEntity(CauseManual))
		}
		w.EnqueueSpawn(CauseSpawner, nil)
		if len(live) > 4 {
			w.DestroyEntity(live[0], CauseManual)
			w.DestroyEntity(live[0], CauseManual)
			w.DestroyEntity(live[1], CauseManual)
			live = live[2:]
		}
		before := w.AliveCount()
		w.Tick(frame)
		m := w.Metrics()
		require.Equal(t, before+m.FrameCreated-m.FrameDestroyed, w.AliveCount())
	}
	require.Zero(t, w.Metrics().ConsistencyWarnings)
	require.Zero(t, logs.FilterMessage("alive count mismatch").Len())
}

func TestWorld_StaleDestroyIsIgnored(t *testing.T) {
	w, _ := newObservedWorld(t)

	a := w.CreateEntity(CauseManual)
	w.DestroyEntity(a, CauseManual)
	w.Tick(frame)

	w.DestroyEntity(a, CauseManual)
	require.Equal(t, 0, w.PendingDestroy())
	require.False(t, Remove[position](w, a))
}

func TestWorld_ReportsEveryInterval(t *testing.T) {
	var reports []FrameReport
	cfg := DefaultConfig()
	cfg.ReportInterval = 2
	w, _ := newObservedWorld(t,
		WithConfig(cfg),
		WithReporter(ReporterFunc(func(r FrameReport) { reports = append(reports, r) })),
	)

	w.CreateEntity(CauseManual)
	w.Tick(10 * time.Millisecond)
	w.CreateEntity(CauseManual)
	w.Tick(30 * time.Millisecond)
	w.Tick(frame)

	require.Len(t, reports, 1)
	r := reports[0]
	require.Equal(t, 2, r.Frames)
	require.Equal(t, 10*time.Millisecond, r.DtMin)
	require.Equal(t, 30*time.Millisecond, r.DtMax)
	require.Equal(t, 20*time.Millisecond, r.DtAvg)
	require.Equal(t, 2, r.Created)
	require.Equal(t, 2, r.Alive)

	w.Tick(frame)
	require.Len(t, reports, 2)
	require.Equal(t, 0, reports[1].Created)
}

func TestWorld_CloseForceDestroysSurvivors(t *testing.T) {
	hook := &recordingHook{}
	core, logs := observer.New(zapcore.DebugLevel)
	w := NewWorld(WithLogger(zap.New(core)), WithLifecycleHook(hook))

	a := w.CreateEntity(CauseManual)
	b := w.CreateEntity(CauseManual)
	_, err := Add(w, b, counter{})
	require.NoError(t, err)
	w.DestroyEntity(a, CauseCollision)
	w.EnqueueSpawn(CauseSpawner, nil)

	w.Close()
	w.Close()

	require.Equal(t, 0, w.AliveCount())
	require.Equal(t, 0, w.StoreCount())
	require.Equal(t, 0, w.BehaviourCount())
	require.Equal(t, []lifecycleEvent{{a, CauseCollision}, {b, CauseShutdown}}, hook.destroyed)
	require.Equal(t, 1, logs.FilterMessage("entities alive at shutdown").Len())
	require.Equal(t, 1, logs.FilterMessage("queued spawns dropped at shutdown").Len())
}

func TestWorld_ConcurrentProducers(t *testing.T) {
	w, _ := newObservedWorld(t)

	targets := make([]Entity, 100)
	for i := range targets {
		targets[i] = w.CreateEntity(CauseManual)
	}

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				w.EnqueueSpawn(CauseSpawner, nil)
				w.DestroyEntity(targets[p*25+i], CauseCollision)
			}
		}(p)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	ticking := true
	for ticking {
		select {
		case <-done:
			ticking = false
		default:
		}
		w.Tick(frame)
	}

	require.Equal(t, 100, w.AliveCount())
	for _, e := range targets {
		require.False(t, w.IsAlive(e))
	}
	require.Zero(t, w.Metrics().ConsistencyWarnings)
}
