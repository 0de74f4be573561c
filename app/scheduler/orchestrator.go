package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/monkeydioude/patishie/app/database"
	"github.com/monkeydioude/patishie/app/fetch"
)

// Ingester is the slice of the ingestion engine the orchestrator drives.
type Ingester interface {
	Ingest(ctx context.Context, candidates []fetch.CandidateArticle, sourceName, sourceURL string, kind database.SourceKind) error
}

// FetchDispatcher routes a fetch to the fetcher for a source kind.
type FetchDispatcher interface {
	Fetch(ctx context.Context, kind database.SourceKind, url string, correlationID uuid.UUID) ([]fetch.CandidateArticle, error)
}

// Orchestrator runs one fetch-and-ingest cycle per source.
type Orchestrator struct {
	sources      database.SourceRepository
	timers       database.TimerRepository
	ingester     Ingester
	fetcher      FetchDispatcher
	fetchTimeout time.Duration
}

func NewOrchestrator(sources database.SourceRepository, timers database.TimerRepository,
	ingester Ingester, fetcher FetchDispatcher, fetchTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		sources:      sources,
		timers:       timers,
		ingester:     ingester,
		fetcher:      fetcher,
		fetchTimeout: fetchTimeout,
	}
}

// Refresh drives src through one cycle and returns the attempt timestamp in
// ms. last_refresh is advanced before any network call so that a crashed or
// failing fetch still pushes the source's next attempt a full cycle out.
func (o *Orchestrator) Refresh(ctx context.Context, src database.Source) (int64, error) {
	now := time.Now().UnixMilli()
	if err := o.sources.UpdateRefresh(ctx, src.ID, now, false); err != nil {
		return 0, fmt.Errorf("failed to mark refresh in progress for source %d (%s): %w", src.ID, src.Name, err)
	}

	correlationID := uuid.New()
	slog.Info("Refreshing source", "correlation_id", correlationID, "source", src.Name, "kind", string(src.Kind))

	fetchCtx, cancel := context.WithTimeout(ctx, o.fetchTimeout)
	fetchStart := time.Now()
	candidates, err := o.fetcher.Fetch(fetchCtx, src.Kind, src.URL, correlationID)
	fetchDuration := time.Since(fetchStart)
	cancel()

	if err != nil {
		if errors.Is(err, fetch.ErrUnsupportedSourceKind) {
			return 0, fmt.Errorf("source %d (%s): %w", src.ID, src.Name, err)
		}
		// Transport, timeout and parse failures all degrade to an empty
		// result, the source stays on its cadence.
		slog.Warn("Fetch failed, treating as empty result", "correlation_id", correlationID, "source", src.Name, "error", err)
		candidates = nil
	}

	success := len(candidates) > 0
	if success {
		if err := o.ingester.Ingest(ctx, candidates, src.Name, src.URL, src.Kind); err != nil {
			slog.Error("Ingestion failed", "correlation_id", correlationID, "source", src.Name, "error", err)
		}
		if err := o.timers.Insert(ctx, src.Name, time.Now().UnixMilli(), fetchDuration.Milliseconds()); err != nil {
			slog.Error("Failed to record fetch timer", "correlation_id", correlationID, "source", src.Name, "error", err)
		}
	} else {
		slog.Info("No articles found", "correlation_id", correlationID, "source", src.Name, "source_id", src.ID)
	}

	refreshedAt := time.Now().UnixMilli()
	if err := o.sources.UpdateRefresh(ctx, src.ID, refreshedAt, success); err != nil {
		return 0, fmt.Errorf("failed to record refresh outcome for source %d (%s): %w", src.ID, src.Name, err)
	}

	return refreshedAt, nil
}
