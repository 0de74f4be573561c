package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/monkeydioude/patishie/app/database"
	"github.com/monkeydioude/patishie/app/fetch"
)

// sourceSequenceScope is the counter scope used to mint source ids.
const sourceSequenceScope = "sources"

// Engine compares candidate articles against the store by link and persists
// only the unseen ones, resolving or creating the owning source on the way.
type Engine struct {
	articles         database.ArticleRepository
	sources          database.SourceRepository
	sequences        database.SequenceRepository
	defaultFrequency int64 // ms, cadence for lazily created sources
}

func NewEngine(articles database.ArticleRepository, sources database.SourceRepository,
	sequences database.SequenceRepository, defaultFrequency int64) *Engine {
	return &Engine{
		articles:         articles,
		sources:          sources,
		sequences:        sequences,
		defaultFrequency: defaultFrequency,
	}
}

func (e *Engine) Ingest(ctx context.Context, candidates []fetch.CandidateArticle, sourceName, sourceURL string, kind database.SourceKind) error {
	if len(candidates) == 0 {
		return nil
	}

	links := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.Link != "" {
			links = append(links, c.Link)
		}
	}

	existing, err := e.articles.FindByLinks(ctx, links)
	if err != nil {
		return fmt.Errorf("failed to look up existing links: %w", err)
	}

	seen := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		seen[a.Link] = struct{}{}
	}

	// Candidates are filtered against the store only. Duplicate links within
	// the batch itself are left alone, the unique index on link absorbs them
	// at insert time.
	var toInsert []database.Article
	for _, c := range candidates {
		if c.Link == "" {
			continue
		}
		if _, ok := seen[c.Link]; ok {
			continue
		}
		toInsert = append(toInsert, database.Article{
			Link:        c.Link,
			Title:       c.Title,
			Description: c.Description,
			ImageURL:    c.ImageURL,
			Categories:  c.Categories,
			CreateDate:  c.CreateDate,
		})
	}

	if len(toInsert) == 0 {
		slog.Debug("No new articles after dedup", "source", sourceName, "candidates", len(candidates))
		return nil
	}

	src, err := e.resolveSource(ctx, sourceName, sourceURL, kind)
	if err != nil {
		return err
	}

	for i := range toInsert {
		toInsert[i].SourceName = src.Name
		toInsert[i].SourceID = src.ID
	}

	inserted, err := e.articles.Insert(ctx, toInsert)
	if err != nil {
		return fmt.Errorf("failed to insert articles for source %q: %w", sourceName, err)
	}

	if inserted < int64(len(toInsert)) {
		// A duplicate link slipped in between dedup and insert. Nothing to
		// roll back, the insert skips conflicts.
		slog.Warn("Partial article insert", "source", sourceName, "attempted", len(toInsert), "inserted", inserted)
	}

	slog.Info("Articles ingested", "source", sourceName, "candidates", len(candidates), "new", inserted)

	return nil
}

// RegisterSource creates a declared source unless one with the same name
// already exists. Declared sources start with a zero last_refresh so they are
// picked up on the first scheduling pass.
func (e *Engine) RegisterSource(ctx context.Context, name, url string, kind database.SourceKind, refreshFrequency int64, weight float64) error {
	src, err := e.sources.GetByName(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to look up source %q: %w", name, err)
	}
	if src != nil {
		return nil
	}

	id, err := e.sequences.Next(ctx, sourceSequenceScope)
	if err != nil {
		return fmt.Errorf("failed to allocate id for source %q: %w", name, err)
	}

	created := database.Source{
		ID:                   id,
		Name:                 name,
		URL:                  url,
		Kind:                 kind,
		RefreshFrequency:     refreshFrequency,
		BaseRefreshFrequency: refreshFrequency,
		Weight:               weight,
	}

	if err := e.sources.Create(ctx, created); err != nil {
		return err
	}

	slog.Info("Source registered", "source", name, "id", id, "kind", string(kind))

	return nil
}

// resolveSource looks the source up by name and lazily creates it with a
// freshly allocated id on first sighting. A failed id allocation aborts the
// whole ingestion call, a source must never get a colliding or zero id.
func (e *Engine) resolveSource(ctx context.Context, name, url string, kind database.SourceKind) (*database.Source, error) {
	src, err := e.sources.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up source %q: %w", name, err)
	}
	if src != nil {
		return src, nil
	}

	id, err := e.sequences.Next(ctx, sourceSequenceScope)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate id for source %q: %w", name, err)
	}

	created := database.Source{
		ID:                   id,
		Name:                 name,
		URL:                  url,
		Kind:                 kind,
		LastRefresh:          time.Now().UnixMilli(),
		RefreshFrequency:     e.defaultFrequency,
		BaseRefreshFrequency: e.defaultFrequency,
		Weight:               1,
	}

	if err := e.sources.Create(ctx, created); err != nil {
		return nil, err
	}

	slog.Info("Source created", "source", name, "id", id, "kind", string(kind))

	return &created, nil
}
