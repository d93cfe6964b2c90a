package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tickforge/ecsrt/internal/core/ecs"
)

type ReportRepo struct {
	db *DB
}

func NewReportRepo(db *DB) *ReportRepo {
	return &ReportRepo{db: db}
}

// WriteReports stores a batch of frame windows in a single transaction.
func (r *ReportRepo) WriteReports(ctx context.Context, runID uuid.UUID, reports []ecs.FrameReport) error {
	if len(reports) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("reports begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, fr := range reports {
		if _, err := tx.Exec(ctx,
			`INSERT INTO frame_reports (run_id, frames, dt_avg_us, dt_min_us, dt_max_us, created, destroyed, alive, reported_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			runID, fr.Frames, fr.DtAvg.Microseconds(), fr.DtMin.Microseconds(), fr.DtMax.Microseconds(),
			fr.Created, fr.Destroyed, fr.Alive, fr.At,
		); err != nil {
			return fmt.Errorf("reports insert: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// Recent returns up to limit reports of a run, newest first.
func (r *ReportRepo) Recent(ctx context.Context, runID uuid.UUID, limit int) ([]ecs.FrameReport, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT frames, dt_avg_us, dt_min_us, dt_max_us, created, destroyed, alive, reported_at
		 FROM frame_reports WHERE run_id = $1 ORDER BY reported_at DESC, id DESC LIMIT $2`,
		runID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ecs.FrameReport
	for rows.Next() {
		var fr ecs.FrameReport
		var avg, lo, hi int64
		if err := rows.Scan(&fr.Frames, &avg, &lo, &hi, &fr.Created, &fr.Destroyed, &fr.Alive, &fr.At); err != nil {
			return nil, err
		}
		fr.DtAvg = microseconds(avg)
		fr.DtMin = microseconds(lo)
		fr.DtMax = microseconds(hi)
		out = append(out, fr)
	}
	return out, rows.Err()
}

func microseconds(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}
