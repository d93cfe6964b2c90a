package persist

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type RunRow struct {
	ID          uuid.UUID
	Host        string
	TickRate    time.Duration
	StartedAt   time.Time
	FinishedAt  *time.Time
	Frames      *int64
	AliveAtExit *int32
}

type RunRepo struct {
	db *DB
}

func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

// Start records a new run and returns its id.
func (r *RunRepo) Start(ctx context.Context, host string, tickRate time.Duration) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO runs (id, host, tick_rate_ms) VALUES ($1, $2, $3)`,
		id, host, tickRate.Milliseconds(),
	)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Finish stamps the run with its final frame count and surviving entities.
func (r *RunRepo) Finish(ctx context.Context, id uuid.UUID, frames uint64, alive int) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE runs SET finished_at = NOW(), frames = $2, alive_at_exit = $3 WHERE id = $1`,
		id, int64(frames), int32(alive),
	)
	return err
}

func (r *RunRepo) Load(ctx context.Context, id uuid.UUID) (*RunRow, error) {
	row := &RunRow{ID: id}
	var tickMs int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT host, tick_rate_ms, started_at, finished_at, frames, alive_at_exit
		 FROM runs WHERE id = $1`, id,
	).Scan(&row.Host, &tickMs, &row.StartedAt, &row.FinishedAt, &row.Frames, &row.AliveAtExit)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	row.TickRate = time.Duration(tickMs) * time.Millisecond
	return row, nil
}
