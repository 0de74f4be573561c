package fetch

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/monkeydioude/patishie/app/database"
)

// ErrUnsupportedSourceKind is returned when no fetcher exists for a source's
// kind.
var ErrUnsupportedSourceKind = errors.New("unsupported source kind")

// CandidateArticle is an article as returned by a fetch, not yet checked
// against the store. Link is the dedup key; SourceName and SourceID are
// stamped by the ingestion engine before persistence.
type CandidateArticle struct {
	Link        string
	Title       string
	Description string
	ImageURL    string
	Categories  []string
	CreateDate  int64 // ms, fetch time when the source omits it
	SourceName  string
	SourceID    int64
}

// Fetcher returns the candidate articles currently visible at a source URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string, correlationID uuid.UUID) ([]CandidateArticle, error)
}

// Dispatcher routes a fetch to the fetcher matching the source kind.
type Dispatcher struct {
	rss    Fetcher
	bakery Fetcher
}

func NewDispatcher(rss, bakery Fetcher) *Dispatcher {
	return &Dispatcher{rss: rss, bakery: bakery}
}

func (d *Dispatcher) Fetch(ctx context.Context, kind database.SourceKind, url string, correlationID uuid.UUID) ([]CandidateArticle, error) {
	switch kind {
	case database.SourceKindRSS:
		return d.rss.Fetch(ctx, url, correlationID)
	case database.SourceKindBakery:
		return d.bakery.Fetch(ctx, url, correlationID)
	default:
		return nil, ErrUnsupportedSourceKind
	}
}
