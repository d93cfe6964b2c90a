package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// JournalEntry is one entity lifecycle transition.
type JournalEntry struct {
	EntityID   uint32
	Generation uint32
	Kind       string // "created" or "destroyed"
	Cause      string
	At         time.Time
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// Append bulk-copies a batch of entries.
func (r *JournalRepo) Append(ctx context.Context, runID uuid.UUID, entries []JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	n, err := r.db.Pool.CopyFrom(ctx,
		pgx.Identifier{"lifecycle_journal"},
		[]string{"run_id", "entity_id", "generation", "kind", "cause", "recorded_at"},
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := entries[i]
			return []any{runID, int64(e.EntityID), int64(e.Generation), e.Kind, e.Cause, e.At}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("journal copy: %w", err)
	}
	if int(n) != len(entries) {
		return fmt.Errorf("journal copy: wrote %d of %d rows", n, len(entries))
	}
	return nil
}

// CauseCounts tallies destroyed entities per cause for a run.
func (r *JournalRepo) CauseCounts(ctx context.Context, runID uuid.UUID) (map[string]int64, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT cause, COUNT(*) FROM lifecycle_journal
		 WHERE run_id = $1 AND kind = 'destroyed' GROUP BY cause`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var cause string
		var n int64
		if err := rows.Scan(&cause, &n); err != nil {
			return nil, err
		}
		out[cause] = n
	}
	return out, rows.Err()
}

// Prune drops journal rows older than cutoff.
func (r *JournalRepo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM lifecycle_journal WHERE recorded_at < $1`, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
