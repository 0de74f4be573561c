package database

import (
	"context"
	"errors"
)

// ErrEmptyInput is returned by bulk writes called with zero rows.
var ErrEmptyInput = errors.New("empty input")

// SourceRepository is the narrow contract the scheduler and the ingestion
// engine consume for sources.
type SourceRepository interface {
	// SelectReady returns every source whose next refresh time has passed,
	// in a single query. Ordered by weight, then by how overdue they are.
	SelectReady(ctx context.Context, nowMs int64) ([]Source, error)
	GetByName(ctx context.Context, name string) (*Source, error)
	GetAll(ctx context.Context) ([]Source, error)
	Create(ctx context.Context, src Source) error
	// UpdateRefresh sets last_refresh; last_successful_refresh is advanced
	// too iff success.
	UpdateRefresh(ctx context.Context, id int64, nowMs int64, success bool) error
	// NextDue returns the earliest next refresh instant across all sources.
	// ok is false when no sources exist.
	NextDue(ctx context.Context) (dueMs int64, ok bool, err error)
	Count(ctx context.Context) (int, error)
}

type ArticleRepository interface {
	FindByLinks(ctx context.Context, links []string) ([]Article, error)
	// Insert bulk-inserts articles and returns how many rows were actually
	// written; duplicate links already in the store are skipped, not fatal.
	Insert(ctx context.Context, articles []Article) (int64, error)
	GetLatestBySource(ctx context.Context, sourceName string, limit int) ([]Article, error)
	Count(ctx context.Context) (int, error)
}

type TimerRepository interface {
	Insert(ctx context.Context, sourceName string, recordedAtMs, fetchDurationMs int64) error
}

// SequenceRepository hands out unique, strictly increasing integers per
// scope, safe under concurrent callers.
type SequenceRepository interface {
	Next(ctx context.Context, scope string) (int64, error)
}
