// Package ecs is the entity-component-system core: generational entity
// handles, per-type component stores, behaviour scheduling and the frame
// tick with deferred spawn and destroy queues.
package ecs

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config tunes World diagnostics and strictness.
type Config struct {
	// Strict makes Add fail with ErrDuplicateComponent when the entity
	// already has a component of that type. Otherwise the old component is
	// replaced.
	Strict bool
	// WarnCreateDuringUpdate logs a warning when CreateEntity is called
	// while a behaviour pass is running. The entity is still created.
	WarnCreateDuringUpdate bool
	// ReportInterval is the number of frames per metrics window. Zero
	// disables reporting.
	ReportInterval int
	// LargeDelta is the frame delta above which Tick logs a warning.
	LargeDelta time.Duration
}

func DefaultConfig() Config {
	return Config{
		Strict:                 true,
		WarnCreateDuringUpdate: true,
		ReportInterval:         300,
		LargeDelta:             250 * time.Millisecond,
	}
}

// LifecycleHook observes entity creation and teardown. Both methods run on
// the goroutine that created or flushed the entity.
type LifecycleHook interface {
	EntityCreated(e Entity, cause Cause)
	EntityDestroyed(e Entity, cause Cause)
}

type Option func(*World)

func WithLogger(log *zap.Logger) Option {
	return func(w *World) {
		if log != nil {
			w.baseLog = log
		}
	}
}

func WithConfig(cfg Config) Option {
	return func(w *World) { w.cfg = cfg }
}

// WithReporter adds a metrics Reporter. The default log reporter is only
// installed when no reporter is given.
func WithReporter(r Reporter) Option {
	return func(w *World) {
		if r != nil {
			w.reporters = append(w.reporters, r)
		}
	}
}

func WithLifecycleHook(h LifecycleHook) Option {
	return func(w *World) { w.hook = h }
}

type destroyRequest struct {
	entity Entity
	cause  Cause
}

type spawnRequest struct {
	cause     Cause
	onCreated func(Entity)
}

// World is the top-level ECS container. It owns the entity pool, every
// component store and the behaviour registry, and drives the frame through
// Tick.
//
// Tick, the component functions and the flush methods belong to a single
// goroutine. EnqueueSpawn, DestroyEntity and IsAlive may be called from any
// goroutine.
type World struct {
	cfg     Config
	baseLog *zap.Logger
	log     *zap.Logger

	pool     *EntityPool
	stores   *storeTable
	registry *Registry
	causes   []Cause

	destroyMu      sync.Mutex
	pendingDestroy []destroyRequest

	spawnMu      sync.Mutex
	pendingSpawn []spawnRequest

	metricsMu sync.Mutex
	metrics   frameMetrics
	reporters []Reporter

	hook     LifecycleHook
	inUpdate atomic.Bool
	closed   bool
	now      func() time.Time
}

func NewWorld(opts ...Option) *World {
	w := &World{
		cfg:            DefaultConfig(),
		baseLog:        zap.NewNop(),
		pool:           NewEntityPool(),
		stores:         newStoreTable(),
		registry:       NewRegistry(),
		causes:         make([]Cause, 0, 1024),
		pendingDestroy: make([]destroyRequest, 0, 64),
		pendingSpawn:   make([]spawnRequest, 0, 64),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.baseLog.Named("ecs")
	if len(w.reporters) == 0 {
		w.reporters = []Reporter{logReporter{log: w.baseLog.Named("metrics")}}
	}
	return w
}

func (w *World) Config() Config { return w.cfg }

// InUpdate reports whether a behaviour pass is running.
func (w *World) InUpdate() bool { return w.inUpdate.Load() }

// CreateEntity allocates an entity immediately. Goroutines other than the
// one running Tick should use EnqueueSpawn instead.
func (w *World) CreateEntity(cause Cause) Entity {
	if w.cfg.WarnCreateDuringUpdate && w.inUpdate.Load() {
		w.log.Warn("entity created during behaviour pass", zap.Stringer("cause", cause))
	}
	e := w.pool.Create()

	w.metricsMu.Lock()
	for int(e.ID) >= len(w.causes) {
		w.causes = append(w.causes, CauseUnknown)
	}
	w.causes[e.ID] = cause
	w.metrics.onCreated()
	w.metricsMu.Unlock()

	if w.hook != nil {
		w.hook.EntityCreated(e, cause)
	}
	return e
}

// EnqueueSpawn queues an entity creation for the start of the next frame.
// onCreated, if non-nil, runs on the Tick goroutine with the new handle.
func (w *World) EnqueueSpawn(cause Cause, onCreated func(Entity)) {
	w.spawnMu.Lock()
	w.pendingSpawn = append(w.pendingSpawn, spawnRequest{cause: cause, onCreated: onCreated})
	w.spawnMu.Unlock()
}

func (w *World) IsAlive(e Entity) bool {
	return w.pool.Alive(e)
}

// DestroyEntity queues e for teardown at the end of the current frame.
// Destroying a dead entity is logged and ignored.
func (w *World) DestroyEntity(e Entity, cause Cause) {
	if !w.pool.Alive(e) {
		w.log.Debug("destroy on dead entity ignored",
			zap.Stringer("entity", e),
			zap.Stringer("cause", cause),
		)
		return
	}
	w.destroyMu.Lock()
	w.pendingDestroy = append(w.pendingDestroy, destroyRequest{entity: e, cause: cause})
	w.destroyMu.Unlock()
}

// PendingDestroy reports the number of queued destroy requests.
func (w *World) PendingDestroy() int {
	w.destroyMu.Lock()
	defer w.destroyMu.Unlock()
	return len(w.pendingDestroy)
}

// PendingSpawn reports the number of queued spawns.
func (w *World) PendingSpawn() int {
	w.spawnMu.Lock()
	defer w.spawnMu.Unlock()
	return len(w.pendingSpawn)
}

// FlushSpawnStartOfFrame creates every queued spawn and runs its callback.
// Spawns queued by those callbacks wait for the next flush.
func (w *World) FlushSpawnStartOfFrame() int {
	w.spawnMu.Lock()
	batch := w.pendingSpawn
	w.pendingSpawn = make([]spawnRequest, 0, cap(batch))
	w.spawnMu.Unlock()

	for _, req := range batch {
		e := w.CreateEntity(req.cause)
		if req.onCreated != nil {
			w.runSpawnCallback(e, req)
		}
	}
	return len(batch)
}

func (w *World) runSpawnCallback(e Entity, req spawnRequest) {
	defer func() {
		if r := recover(); r != nil {
			w.fault("spawn", e, req.cause, fmt.Errorf("panic: %v", r))
		}
	}()
	req.onCreated(e)
}

// FlushDestroyEndOfFrame tears down every queued entity. Repeated requests
// for one slot collapse into a single teardown carrying the last cause.
func (w *World) FlushDestroyEndOfFrame() int {
	w.destroyMu.Lock()
	batch := w.pendingDestroy
	w.pendingDestroy = make([]destroyRequest, 0, cap(batch))
	w.destroyMu.Unlock()

	if len(batch) == 0 {
		return 0
	}

	order := make([]uint32, 0, len(batch))
	latest := make(map[uint32]destroyRequest, len(batch))
	for _, req := range batch {
		if !w.pool.Alive(req.entity) {
			w.log.Debug("stale destroy request dropped", zap.Stringer("entity", req.entity))
			continue
		}
		if _, seen := latest[req.entity.ID]; !seen {
			order = append(order, req.entity.ID)
		}
		latest[req.entity.ID] = req
	}

	for _, id := range order {
		req := latest[id]
		w.teardown(req.entity, req.cause)
	}
	return len(order)
}

func (w *World) teardown(e Entity, cause Cause) {
	w.registry.DetachEntity(e)
	dropped := w.stores.eraseAll(e.ID)
	if !w.pool.Destroy(e) {
		return
	}

	w.metricsMu.Lock()
	w.metrics.onDestroyed()
	w.metricsMu.Unlock()

	if w.hook != nil {
		w.hook.EntityDestroyed(e, cause)
	}
	w.log.Debug("entity destroyed",
		zap.Stringer("entity", e),
		zap.Stringer("cause", cause),
		zap.Int("components", dropped),
	)
}

// Tick runs one frame: queued spawns, OnStart for new behaviours, OnUpdate
// for every started behaviour, queued destroys, registry cleanup, the
// accounting check, slot recycling and periodic reporting.
func (w *World) Tick(dt time.Duration) {
	w.metricsMu.Lock()
	w.metrics.beginFrame(w.pool.AliveCount())
	w.metricsMu.Unlock()

	w.FlushSpawnStartOfFrame()
	dt = w.observeDelta(dt)

	frame := w.frame()
	faulted := w.runStart()
	w.runUpdate(dt, faulted)

	w.FlushDestroyEndOfFrame()
	w.registry.Purge(w.pool.Alive)
	w.checkConsistency(frame)
	w.pool.Recycle()
	w.maybeReport()
}

func (w *World) frame() uint64 {
	w.metricsMu.Lock()
	defer w.metricsMu.Unlock()
	return w.metrics.frames
}

func (w *World) observeDelta(dt time.Duration) time.Duration {
	switch {
	case dt < 0:
		w.log.Warn("negative frame delta clamped", zap.Duration("dt", dt))
		dt = 0
	case w.cfg.LargeDelta > 0 && dt > w.cfg.LargeDelta:
		w.log.Warn("large frame delta", zap.Duration("dt", dt), zap.Duration("threshold", w.cfg.LargeDelta))
	}
	w.metricsMu.Lock()
	w.metrics.observeDelta(dt)
	w.metricsMu.Unlock()
	return dt
}

// runStart calls OnStart for entries that exist when the pass begins. It
// returns the entries whose OnStart failed; they sit out this frame's
// update pass.
func (w *World) runStart() map[*scheduleEntry]struct{} {
	w.inUpdate.Store(true)
	defer w.inUpdate.Store(false)

	var faulted map[*scheduleEntry]struct{}
	n := len(w.registry.entries)
	for i := 0; i < n; i++ {
		en := w.registry.entries[i]
		if en.started || en.detached || !w.pool.Alive(en.entity) {
			continue
		}
		en.started = true
		if !w.invoke("start", en, func() error { return en.behaviour.OnStart(w, en.entity) }) {
			if faulted == nil {
				faulted = make(map[*scheduleEntry]struct{})
			}
			faulted[en] = struct{}{}
		}
	}
	return faulted
}

func (w *World) runUpdate(dt time.Duration, faulted map[*scheduleEntry]struct{}) {
	w.inUpdate.Store(true)
	defer w.inUpdate.Store(false)

	n := len(w.registry.entries)
	for i := 0; i < n; i++ {
		en := w.registry.entries[i]
		if !en.started || en.detached || !w.pool.Alive(en.entity) {
			continue
		}
		if _, skip := faulted[en]; skip {
			continue
		}
		w.invoke("update", en, func() error { return en.behaviour.OnUpdate(w, en.entity, dt) })
	}
}

func (w *World) invoke(phase string, en *scheduleEntry, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			w.fault(phase, en.entity, en.cause, fmt.Errorf("panic: %v", r))
			ok = false
		}
	}()
	if err := fn(); err != nil {
		w.fault(phase, en.entity, en.cause, err)
		return false
	}
	return true
}

func (w *World) fault(phase string, e Entity, cause Cause, err error) {
	w.metricsMu.Lock()
	w.metrics.behaviourFaults++
	w.metricsMu.Unlock()
	w.log.Error("behaviour fault",
		zap.String("phase", phase),
		zap.Uint32("entity_id", e.ID),
		zap.Uint32("generation", e.Generation),
		zap.Stringer("cause", cause),
		zap.Error(&FaultError{Phase: phase, Entity: e, Cause: err}),
	)
}

func (w *World) checkConsistency(frame uint64) {
	alive := w.pool.AliveCount()
	w.metricsMu.Lock()
	expected := w.metrics.expected()
	m := w.metrics
	if alive != expected {
		w.metrics.consistencyWarnings++
	}
	w.metricsMu.Unlock()

	if alive != expected {
		w.log.Warn("alive count mismatch",
			zap.Uint64("frame", frame),
			zap.Int("alive", alive),
			zap.Int("expected", expected),
			zap.Int("baseline", m.baseline),
			zap.Int("created", m.created),
			zap.Int("destroyed", m.destroyed),
		)
	}
}

func (w *World) maybeReport() {
	if w.cfg.ReportInterval <= 0 {
		return
	}
	w.metricsMu.Lock()
	if w.metrics.windowFrames < w.cfg.ReportInterval {
		w.metricsMu.Unlock()
		return
	}
	report := w.metrics.flushWindow(w.pool.AliveCount(), w.now())
	w.metricsMu.Unlock()

	for _, r := range w.reporters {
		r.Report(report)
	}
}

// Metrics returns a copy of the World's counters.
func (w *World) Metrics() MetricsSnapshot {
	alive := w.pool.AliveCount()
	w.metricsMu.Lock()
	defer w.metricsMu.Unlock()
	return w.metrics.snapshot(alive)
}

func (w *World) AliveCount() int { return w.pool.AliveCount() }

// Live returns a snapshot of the live entities in slot order.
func (w *World) Live() []Entity { return w.pool.Live() }

// BehaviourCount reports the registry size, including entries awaiting purge.
func (w *World) BehaviourCount() int { return w.registry.Len() }

// StoreCount reports how many component types have a store.
func (w *World) StoreCount() int { return w.stores.count() }

// CreationCause returns the cause recorded when e was created.
func (w *World) CreationCause(e Entity) Cause {
	if !w.pool.Alive(e) {
		return CauseUnknown
	}
	w.metricsMu.Lock()
	defer w.metricsMu.Unlock()
	return w.causes[e.ID]
}

// Close flushes queued destroys, force-destroys anything still alive and
// releases every store. Queued spawns are dropped.
func (w *World) Close() {
	if w.closed {
		return
	}
	w.closed = true

	w.FlushDestroyEndOfFrame()

	if live := w.pool.Live(); len(live) > 0 {
		w.log.Warn("entities alive at shutdown", zap.Int("count", len(live)))
		for _, e := range live {
			w.teardown(e, CauseShutdown)
		}
	}

	w.spawnMu.Lock()
	dropped := len(w.pendingSpawn)
	w.pendingSpawn = nil
	w.spawnMu.Unlock()
	if dropped > 0 {
		w.log.Warn("queued spawns dropped at shutdown", zap.Int("count", dropped))
	}

	w.registry.clear()
	w.stores.release()
	w.pool.Recycle()
}
