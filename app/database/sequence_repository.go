package database

import (
	"context"
	"fmt"
)

var _ SequenceRepository = (*sequenceRepository)(nil)

type sequenceRepository struct {
	db *DB
}

func NewSequenceRepository(db *DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

// Next increments and reads the counter for scope in a single statement, so
// concurrent callers always observe distinct, strictly increasing values.
// The counter row is created on first use.
func (r *sequenceRepository) Next(ctx context.Context, scope string) (int64, error) {
	var seq int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO counters (scope, seq)
		VALUES ($1, 1)
		ON CONFLICT (scope) DO UPDATE SET seq = counters.seq + 1
		RETURNING seq
	`, scope).Scan(&seq)

	if err != nil {
		return 0, fmt.Errorf("failed to get next sequence for scope %q: %w", scope, err)
	}

	return seq, nil
}
