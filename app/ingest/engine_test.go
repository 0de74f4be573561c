package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/monkeydioude/patishie/app/database"
	"github.com/monkeydioude/patishie/app/fetch"
)

// mockArticleRepo mimics the store's link uniqueness: inserts skip links that
// are already present, like ON CONFLICT DO NOTHING does.
type mockArticleRepo struct {
	stored      []database.Article
	findErr     error
	insertErr   error
	insertCalls int
}

var _ database.ArticleRepository = (*mockArticleRepo)(nil)

func (m *mockArticleRepo) FindByLinks(ctx context.Context, links []string) ([]database.Article, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	wanted := make(map[string]struct{}, len(links))
	for _, l := range links {
		wanted[l] = struct{}{}
	}
	var found []database.Article
	for _, a := range m.stored {
		if _, ok := wanted[a.Link]; ok {
			found = append(found, a)
		}
	}
	return found, nil
}

func (m *mockArticleRepo) Insert(ctx context.Context, articles []database.Article) (int64, error) {
	m.insertCalls++
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	if len(articles) == 0 {
		return 0, database.ErrEmptyInput
	}
	existing := make(map[string]struct{}, len(m.stored))
	for _, a := range m.stored {
		existing[a.Link] = struct{}{}
	}
	var inserted int64
	for _, a := range articles {
		if _, ok := existing[a.Link]; ok {
			continue
		}
		existing[a.Link] = struct{}{}
		m.stored = append(m.stored, a)
		inserted++
	}
	return inserted, nil
}

func (m *mockArticleRepo) GetLatestBySource(ctx context.Context, sourceName string, limit int) ([]database.Article, error) {
	return nil, nil
}

func (m *mockArticleRepo) Count(ctx context.Context) (int, error) {
	return len(m.stored), nil
}

type mockSourceRepo struct {
	sources   map[string]database.Source
	createErr error
	created   []database.Source
}

var _ database.SourceRepository = (*mockSourceRepo)(nil)

func newMockSourceRepo() *mockSourceRepo {
	return &mockSourceRepo{sources: make(map[string]database.Source)}
}

func (m *mockSourceRepo) SelectReady(ctx context.Context, nowMs int64) ([]database.Source, error) {
	return nil, nil
}

func (m *mockSourceRepo) GetByName(ctx context.Context, name string) (*database.Source, error) {
	if src, ok := m.sources[name]; ok {
		return &src, nil
	}
	return nil, nil
}

func (m *mockSourceRepo) GetAll(ctx context.Context) ([]database.Source, error) {
	return nil, nil
}

func (m *mockSourceRepo) Create(ctx context.Context, src database.Source) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.sources[src.Name] = src
	m.created = append(m.created, src)
	return nil
}

func (m *mockSourceRepo) UpdateRefresh(ctx context.Context, id int64, nowMs int64, success bool) error {
	return nil
}

func (m *mockSourceRepo) NextDue(ctx context.Context) (int64, bool, error) {
	return 0, false, nil
}

func (m *mockSourceRepo) Count(ctx context.Context) (int, error) {
	return len(m.sources), nil
}

type mockSequenceRepo struct {
	seq int64
	err error
}

var _ database.SequenceRepository = (*mockSequenceRepo)(nil)

func (m *mockSequenceRepo) Next(ctx context.Context, scope string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.seq++
	return m.seq, nil
}

func TestIngestFiltersExistingLinks(t *testing.T) {
	articles := &mockArticleRepo{stored: []database.Article{{Link: "x", SourceName: "example", SourceID: 1}}}
	sources := newMockSourceRepo()
	sources.sources["example"] = database.Source{ID: 1, Name: "example"}
	engine := NewEngine(articles, sources, &mockSequenceRepo{}, 300000)

	candidates := []fetch.CandidateArticle{{Link: "x"}, {Link: "y"}}
	err := engine.Ingest(context.Background(), candidates, "example", "https://example.com", database.SourceKindRSS)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(articles.stored) != 2 {
		t.Fatalf("Expected 2 stored articles, got %d", len(articles.stored))
	}
	if articles.stored[1].Link != "y" {
		t.Errorf("Expected only 'y' to be inserted, got '%s'", articles.stored[1].Link)
	}
}

func TestIngestIdempotent(t *testing.T) {
	articles := &mockArticleRepo{}
	sources := newMockSourceRepo()
	engine := NewEngine(articles, sources, &mockSequenceRepo{}, 300000)

	candidates := []fetch.CandidateArticle{{Link: "a"}, {Link: "b"}}

	for i := 0; i < 2; i++ {
		err := engine.Ingest(context.Background(), candidates, "example", "https://example.com", database.SourceKindRSS)
		if err != nil {
			t.Fatalf("Ingest %d: expected no error, got: %v", i, err)
		}
	}

	if len(articles.stored) != 2 {
		t.Fatalf("Expected each article exactly once, got %d stored", len(articles.stored))
	}
	// The second pass found nothing new, so it never reached the insert.
	if articles.insertCalls != 1 {
		t.Errorf("Expected 1 insert call, got %d", articles.insertCalls)
	}
	if len(sources.created) != 1 {
		t.Errorf("Expected source to be created once, got %d", len(sources.created))
	}
}

func TestIngestCreatesSourceOnFirstSighting(t *testing.T) {
	articles := &mockArticleRepo{}
	sources := newMockSourceRepo()
	seq := &mockSequenceRepo{seq: 41}
	engine := NewEngine(articles, sources, seq, 300000)

	candidates := []fetch.CandidateArticle{{Link: "a"}, {Link: "b"}}
	err := engine.Ingest(context.Background(), candidates, "fresh", "https://fresh.example.com", database.SourceKindBakery)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(sources.created) != 1 {
		t.Fatalf("Expected exactly one source record, got %d", len(sources.created))
	}
	created := sources.created[0]
	if created.ID != 42 {
		t.Errorf("Expected allocated id 42, got %d", created.ID)
	}
	if created.Kind != database.SourceKindBakery {
		t.Errorf("Expected kind bakery, got %s", created.Kind)
	}
	if created.URL != "https://fresh.example.com" {
		t.Errorf("Expected source URL to be kept, got '%s'", created.URL)
	}
	if created.RefreshFrequency != 300000 || created.BaseRefreshFrequency != 300000 {
		t.Errorf("Expected default cadence 300000, got %d/%d", created.RefreshFrequency, created.BaseRefreshFrequency)
	}

	for _, a := range articles.stored {
		if a.SourceID != 42 {
			t.Errorf("Expected article %q to carry source id 42, got %d", a.Link, a.SourceID)
		}
		if a.SourceName != "fresh" {
			t.Errorf("Expected article %q to carry source name 'fresh', got '%s'", a.Link, a.SourceName)
		}
	}
}

func TestIngestAllocatorFailureAborts(t *testing.T) {
	articles := &mockArticleRepo{}
	sources := newMockSourceRepo()
	seq := &mockSequenceRepo{err: errors.New("counters unreachable")}
	engine := NewEngine(articles, sources, seq, 300000)

	candidates := []fetch.CandidateArticle{{Link: "a"}}
	err := engine.Ingest(context.Background(), candidates, "fresh", "https://fresh.example.com", database.SourceKindRSS)
	if err == nil {
		t.Fatal("Expected allocator failure to propagate")
	}

	if len(sources.created) != 0 {
		t.Errorf("Expected no source record, got %d", len(sources.created))
	}
	if len(articles.stored) != 0 {
		t.Errorf("Expected no articles persisted, got %d", len(articles.stored))
	}
}

func TestIngestEmptyBatch(t *testing.T) {
	articles := &mockArticleRepo{}
	engine := NewEngine(articles, newMockSourceRepo(), &mockSequenceRepo{}, 300000)

	err := engine.Ingest(context.Background(), nil, "example", "https://example.com", database.SourceKindRSS)
	if err != nil {
		t.Fatalf("Expected no error on empty batch, got: %v", err)
	}
	if articles.insertCalls != 0 {
		t.Errorf("Expected no insert call, got %d", articles.insertCalls)
	}
}

func TestIngestLookupFailureAborts(t *testing.T) {
	articles := &mockArticleRepo{findErr: errors.New("store unreachable")}
	engine := NewEngine(articles, newMockSourceRepo(), &mockSequenceRepo{}, 300000)

	err := engine.Ingest(context.Background(), []fetch.CandidateArticle{{Link: "a"}}, "example", "https://example.com", database.SourceKindRSS)
	if err == nil {
		t.Fatal("Expected lookup failure to abort the ingestion call")
	}
	if articles.insertCalls != 0 {
		t.Errorf("Expected no insert after failed lookup, got %d calls", articles.insertCalls)
	}
}

func TestRegisterSource(t *testing.T) {
	sources := newMockSourceRepo()
	engine := NewEngine(&mockArticleRepo{}, sources, &mockSequenceRepo{}, 300000)

	err := engine.RegisterSource(context.Background(), "seeded", "https://example.com/rss", database.SourceKindRSS, 120000, 2)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(sources.created) != 1 {
		t.Fatalf("Expected 1 created source, got %d", len(sources.created))
	}

	created := sources.created[0]
	if created.ID != 1 {
		t.Errorf("Expected allocated id 1, got %d", created.ID)
	}
	if created.RefreshFrequency != 120000 {
		t.Errorf("Expected refresh frequency 120000, got %d", created.RefreshFrequency)
	}
	if created.Weight != 2 {
		t.Errorf("Expected weight 2, got %f", created.Weight)
	}
	if created.LastRefresh != 0 {
		t.Errorf("Expected a declared source to be immediately due, got last refresh %d", created.LastRefresh)
	}
}

func TestRegisterSourceExisting(t *testing.T) {
	sources := newMockSourceRepo()
	sources.sources["seeded"] = database.Source{ID: 7, Name: "seeded"}
	engine := NewEngine(&mockArticleRepo{}, sources, &mockSequenceRepo{}, 300000)

	err := engine.RegisterSource(context.Background(), "seeded", "https://example.com/rss", database.SourceKindRSS, 120000, 1)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(sources.created) != 0 {
		t.Errorf("Expected no create for an existing source, got %d", len(sources.created))
	}
}
