package database

import (
	"context"
	"database/sql"
	"fmt"
)

var _ SourceRepository = (*sourceRepository)(nil)

type sourceRepository struct {
	db *DB
}

func NewSourceRepository(db *DB) SourceRepository {
	return &sourceRepository{db: db}
}

const sourceColumns = `id, name, url, source_kind, last_refresh, last_successful_refresh,
	       refresh_frequency, base_refresh_frequency, weight, created_at, updated_at`

func (r *sourceRepository) SelectReady(ctx context.Context, nowMs int64) ([]Source, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sourceColumns+`
		FROM sources
		WHERE last_refresh + refresh_frequency <= $1
		ORDER BY weight DESC, last_refresh + refresh_frequency ASC
	`, nowMs)
	if err != nil {
		return nil, fmt.Errorf("failed to select ready sources: %w", err)
	}
	defer rows.Close()

	return scanSources(rows)
}

func (r *sourceRepository) GetByName(ctx context.Context, name string) (*Source, error) {
	var src Source
	err := r.db.QueryRowContext(ctx, `
		SELECT `+sourceColumns+`
		FROM sources
		WHERE name = $1
	`, name).Scan(
		&src.ID, &src.Name, &src.URL, &src.Kind, &src.LastRefresh, &src.LastSuccessfulRefresh,
		&src.RefreshFrequency, &src.BaseRefreshFrequency, &src.Weight, &src.CreatedAt, &src.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source by name: %w", err)
	}

	return &src, nil
}

func (r *sourceRepository) GetAll(ctx context.Context) ([]Source, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sourceColumns+`
		FROM sources
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}
	defer rows.Close()

	return scanSources(rows)
}

func (r *sourceRepository) Create(ctx context.Context, src Source) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sources (id, name, url, source_kind, last_refresh, last_successful_refresh,
		                     refresh_frequency, base_refresh_frequency, weight)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, src.ID, src.Name, src.URL, src.Kind, src.LastRefresh, src.LastSuccessfulRefresh,
		src.RefreshFrequency, src.BaseRefreshFrequency, src.Weight)

	if err != nil {
		return fmt.Errorf("failed to create source %q: %w", src.Name, err)
	}

	return nil
}

func (r *sourceRepository) UpdateRefresh(ctx context.Context, id int64, nowMs int64, success bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sources
		SET last_refresh = $2,
		    last_successful_refresh = CASE WHEN $3 THEN $2 ELSE last_successful_refresh END,
		    updated_at = NOW()
		WHERE id = $1
	`, id, nowMs, success)

	if err != nil {
		return fmt.Errorf("failed to update refresh for source %d: %w", id, err)
	}

	return nil
}

func (r *sourceRepository) NextDue(ctx context.Context) (int64, bool, error) {
	var due sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT MIN(last_refresh + refresh_frequency) FROM sources
	`).Scan(&due)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get next due time: %w", err)
	}
	if !due.Valid {
		return 0, false, nil
	}
	return due.Int64, true, nil
}

func (r *sourceRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}

func scanSources(rows *sql.Rows) ([]Source, error) {
	var sources []Source
	for rows.Next() {
		var src Source
		err := rows.Scan(
			&src.ID, &src.Name, &src.URL, &src.Kind, &src.LastRefresh, &src.LastSuccessfulRefresh,
			&src.RefreshFrequency, &src.BaseRefreshFrequency, &src.Weight, &src.CreatedAt, &src.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, src)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}
