package database

import (
	"time"
)

// SourceKind selects which fetcher is used to refresh a source.
type SourceKind string

const (
	SourceKindRSS    SourceKind = "rss_feed"
	SourceKindBakery SourceKind = "bakery"
	SourceKindOther  SourceKind = "other"
)

func (k SourceKind) Valid() bool {
	switch k {
	case SourceKindRSS, SourceKindBakery, SourceKindOther:
		return true
	}
	return false
}

// Source is a pollable content origin with its own refresh cadence.
// Timestamps and intervals are unix epoch milliseconds.
type Source struct {
	ID                    int64
	Name                  string
	URL                   string
	Kind                  SourceKind
	LastRefresh           int64
	LastSuccessfulRefresh *int64 // nil until the first successful refresh
	RefreshFrequency      int64
	BaseRefreshFrequency  int64 // configured cadence, kept when the effective one is adapted
	Weight                float64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NextRefresh returns the instant at which the source becomes ready again.
func (s Source) NextRefresh() int64 {
	return s.LastRefresh + s.RefreshFrequency
}

// Ready reports whether the source is due for a refresh at nowMs.
func (s Source) Ready(nowMs int64) bool {
	return nowMs >= s.NextRefresh()
}

// Article is a stored article, unique on Link. Immutable once persisted.
type Article struct {
	ID          int64
	Link        string
	Title       string
	Description string
	ImageURL    string
	Categories  []string
	CreateDate  int64 // ms, fetch time when the source omits it
	SourceName  string
	SourceID    int64
	CreatedAt   time.Time
}

// Timer is an append-only record of one successful fetch.
type Timer struct {
	ID              int64
	SourceName      string
	RecordedAt      int64 // ms
	FetchDurationMs int64
}
