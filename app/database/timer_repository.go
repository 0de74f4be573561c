package database

import (
	"context"
	"fmt"
)

var _ TimerRepository = (*timerRepository)(nil)

type timerRepository struct {
	db *DB
}

func NewTimerRepository(db *DB) TimerRepository {
	return &timerRepository{db: db}
}

func (r *timerRepository) Insert(ctx context.Context, sourceName string, recordedAtMs, fetchDurationMs int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO timers (source_name, recorded_at, fetch_duration_ms)
		VALUES ($1, $2, $3)
	`, sourceName, recordedAtMs, fetchDurationMs)

	if err != nil {
		return fmt.Errorf("failed to insert timer for source %q: %w", sourceName, err)
	}

	return nil
}
