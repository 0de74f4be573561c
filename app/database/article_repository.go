package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

var _ ArticleRepository = (*articleRepository)(nil)

type articleRepository struct {
	db *DB
}

func NewArticleRepository(db *DB) ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) FindByLinks(ctx context.Context, links []string) ([]Article, error) {
	if len(links) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, link, title, description, image_url, categories,
		       create_date, source_name, source_id, created_at
		FROM articles
		WHERE link = ANY($1)
	`, pq.Array(links))
	if err != nil {
		return nil, fmt.Errorf("failed to find articles by links: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var a Article
		err := rows.Scan(
			&a.ID, &a.Link, &a.Title, &a.Description, &a.ImageURL, pq.Array(&a.Categories),
			&a.CreateDate, &a.SourceName, &a.SourceID, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

// Insert bulk-inserts articles in one statement. Links already present in the
// store are skipped via ON CONFLICT DO NOTHING, so a race with another writer
// degrades to a partial insert instead of failing the batch.
func (r *articleRepository) Insert(ctx context.Context, articles []Article) (int64, error) {
	if len(articles) == 0 {
		return 0, ErrEmptyInput
	}

	query, args := buildInsertArticlesQuery(articles)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert articles: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted row count: %w", err)
	}

	return inserted, nil
}

func buildInsertArticlesQuery(articles []Article) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO articles (link, title, description, image_url, categories, create_date, source_name, source_id) VALUES `)

	args := make([]interface{}, 0, len(articles)*8)
	for i, a := range articles {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 8
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		args = append(args, a.Link, a.Title, a.Description, a.ImageURL,
			pq.Array(a.Categories), a.CreateDate, a.SourceName, a.SourceID)
	}

	sb.WriteString(" ON CONFLICT (link) DO NOTHING")

	return sb.String(), args
}

func (r *articleRepository) GetLatestBySource(ctx context.Context, sourceName string, limit int) ([]Article, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, link, title, description, image_url, categories,
		       create_date, source_name, source_id, created_at
		FROM articles
		WHERE source_name = $1
		ORDER BY create_date DESC
		LIMIT $2
	`, sourceName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var a Article
		err := rows.Scan(
			&a.ID, &a.Link, &a.Title, &a.Description, &a.ImageURL, pq.Array(&a.Categories),
			&a.CreateDate, &a.SourceName, &a.SourceID, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

func (r *articleRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get article count: %w", err)
	}
	return count, nil
}
