package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tickforge/ecsrt/internal/config"
	"go.uber.org/zap"
)

// DB wraps the pgx pool used by the run, report and journal repositories.
type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

// poolConfig maps the [database] section onto a pgxpool config. Statements
// are capped at the flush timeout unless the DSN sets statement_timeout.
func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		pc.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pc.MinConns = min(int32(cfg.MaxIdleConns), pc.MaxConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pc.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.HealthCheck > 0 {
		pc.HealthCheckPeriod = cfg.HealthCheck
	}
	params := pc.ConnConfig.RuntimeParams
	if cfg.ApplicationName != "" {
		params["application_name"] = cfg.ApplicationName
	}
	if _, set := params["statement_timeout"]; !set {
		params["statement_timeout"] = "5000"
	}
	return pc, nil
}

func NewDB(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	log.Info("database connected",
		zap.String("application_name", pc.ConnConfig.RuntimeParams["application_name"]),
		zap.Int32("max_conns", pc.MaxConns),
		zap.Int32("min_conns", pc.MinConns),
	)
	return &DB{Pool: pool, log: log}, nil
}

// LogStats writes the pool counters, typically once at shutdown.
func (db *DB) LogStats() {
	st := db.Pool.Stat()
	db.log.Info("database pool",
		zap.Int32("total", st.TotalConns()),
		zap.Int32("idle", st.IdleConns()),
		zap.Int64("acquires", st.AcquireCount()),
		zap.Duration("acquire_wait", st.AcquireDuration()),
		zap.Int64("empty_acquires", st.EmptyAcquireCount()),
	)
}

func (db *DB) Close() {
	db.Pool.Close()
}
