package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/tickforge/ecsrt/internal/component"
	"github.com/tickforge/ecsrt/internal/config"
	"github.com/tickforge/ecsrt/internal/core/ecs"
	"github.com/tickforge/ecsrt/internal/core/event"
	coresys "github.com/tickforge/ecsrt/internal/core/system"
	"github.com/tickforge/ecsrt/internal/data"
	"github.com/tickforge/ecsrt/internal/persist"
	"github.com/tickforge/ecsrt/internal/scripting"
	"github.com/tickforge/ecsrt/internal/system"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := "config/tickforge.toml"
	if p := os.Getenv("TICKFORGE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Report persistence is optional; without a DSN reports only go to the log.
	runID := uuid.New()
	var (
		runRepo *persist.RunRepo
		reports system.ReportSink = discardReports{}
		journal system.JournalSink
	)
	if cfg.Database.DSN != "" {
		dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		db, err := persist.NewDB(dbCtx, cfg.Database, log.Named("db"))
		if err != nil {
			cancel()
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		defer db.LogStats()
		if err := persist.RunMigrations(dbCtx, db.Pool); err != nil {
			cancel()
			return fmt.Errorf("migrations: %w", err)
		}
		runRepo = persist.NewRunRepo(db)
		runID, err = runRepo.Start(dbCtx, cfg.Host.Name, cfg.Loop.TickRate)
		cancel()
		if err != nil {
			return fmt.Errorf("start run: %w", err)
		}
		reports = persist.NewReportRepo(db)
		journal = persist.NewJournalRepo(db)
	}
	log = log.With(zap.String("run", runID.String()))

	scripts, err := scripting.NewEngine(cfg.Scripting.Dir, log.Named("lua"))
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer scripts.Close()

	bus := event.NewBus()
	stats := system.NewCauseStats(bus)
	persistSys := system.NewPersistenceSystem(runID, reports, journal, bus, log.Named("persist"), cfg.Database.FlushEvery)

	world := ecs.NewWorld(
		ecs.WithLogger(log),
		ecs.WithConfig(cfg.World.ECS()),
		ecs.WithReporter(ecs.NewLogReporter(log.Named("metrics"))),
		ecs.WithReporter(persistSys),
		ecs.WithLifecycleHook(event.NewLifecycleBridge(bus)),
	)
	scripts.Bind(world)

	if err := loadScene(cfg.Scene.Path, world, scripts, log); err != nil {
		world.Close()
		return err
	}

	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewWorldTickSystem(world))
	runner.Register(system.NewMovementSystem(world))
	runner.Register(persistSys)

	log.Info("tick loop starting",
		zap.Duration("tick_rate", cfg.Loop.TickRate),
		zap.Int("max_frames", cfg.Loop.MaxFrames),
		zap.Int("systems", runner.Len()),
		zap.Int("alive", world.AliveCount()),
	)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Loop.ProducerEvery > 0 {
		g.Go(func() error {
			produce(gctx, world, cfg.Loop.ProducerEvery)
			return nil
		})
	}
	g.Go(func() error {
		return loop(gctx, runner, cfg.Loop)
	})
	err = g.Wait()
	if errors.Is(err, errFrameLimit) {
		err = nil
	}

	frames := world.Metrics().Frames
	alive := world.AliveCount()
	world.Close()
	stop()

	// Lifecycle events from the final frames and Close.
	bus.SwapBuffers()
	bus.DispatchAll()
	persistSys.Flush()
	if runRepo != nil {
		finCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if ferr := runRepo.Finish(finCtx, runID, frames, alive); ferr != nil {
			log.Error("finish run", zap.Error(ferr))
		}
		cancel()
	}

	printSummary(world.Metrics(), frames, alive, stats.Summary())
	log.Info("stopped")
	return err
}

var errFrameLimit = errors.New("frame limit reached")

// loop drives the runner at the configured tick rate until ctx is done or
// MaxFrames frames have run.
func loop(ctx context.Context, runner *coresys.Runner, cfg config.LoopConfig) error {
	ticker := time.NewTicker(cfg.TickRate)
	defer ticker.Stop()

	last := time.Now()
	frames := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			runner.Tick(now.Sub(last))
			last = now
			frames++
			if cfg.MaxFrames > 0 && frames >= cfg.MaxFrames {
				return errFrameLimit
			}
		}
	}
}

// produce plays the part of an outside producer: it queues spawns and
// occasionally destroys a live entity from a goroutine other than the tick
// loop.
func produce(ctx context.Context, w *ecs.World, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		x, y := rng.Float64()*100, rng.Float64()*100
		vx, vy := rng.Float64()*10-5, rng.Float64()*10-5
		w.EnqueueSpawn(ecs.CauseSpawner, func(e ecs.Entity) {
			_, _ = ecs.With(ecs.With(ecs.With(w.Builder(e),
				component.Transform{X: x, Y: y}),
				component.Velocity{X: vx, Y: vy}),
				component.Lifetime{Remaining: 2 * time.Second}).Build()
		})
		if live := w.Live(); len(live) > 0 && rng.Intn(4) == 0 {
			w.DestroyEntity(live[rng.Intn(len(live))], ecs.CauseCollision)
		}
	}
}

func loadScene(path string, w *ecs.World, scripts *scripting.Engine, log *zap.Logger) error {
	if path == "" {
		return nil
	}
	scene, err := data.LoadScene(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("scene file not found, starting empty", zap.String("path", path))
			return nil
		}
		return fmt.Errorf("scene: %w", err)
	}
	n, err := scene.Instantiate(w, scripts)
	if err != nil {
		return fmt.Errorf("instantiate scene: %w", err)
	}
	log.Info("scene loaded",
		zap.String("path", path),
		zap.Int("templates", scene.Count()),
		zap.Int("entities", n),
	)
	return nil
}

func printSummary(m ecs.MetricsSnapshot, frames uint64, alive int, causes []system.CauseCount) {
	p := message.NewPrinter(language.English)
	p.Printf("\n  frames ............ %d\n", frames)
	p.Printf("  created ........... %d\n", m.CreatedTotal)
	p.Printf("  destroyed ......... %d\n", m.DestroyedTotal)
	p.Printf("  alive at stop ..... %d\n", alive)
	p.Printf("  behaviour faults .. %d\n", m.BehaviourFaults)
	p.Printf("  consistency warns . %d\n", m.ConsistencyWarnings)
	for _, c := range causes {
		p.Printf("  %-18s created %d, destroyed %d\n", c.Cause.String(), c.Created, c.Destroyed)
	}
	p.Println()
}

type discardReports struct{}

func (discardReports) WriteReports(context.Context, uuid.UUID, []ecs.FrameReport) error { return nil }

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
