package api

import (
	"github.com/monkeydioude/patishie/app/database"
	"github.com/monkeydioude/patishie/app/scheduler"
)

// Handler serves the HTTP endpoints backed by the repositories and the
// in-flight ledger.
type Handler struct {
	sourceRepo       database.SourceRepository
	articleRepo      database.ArticleRepository
	ledger           *scheduler.Ledger
	defaultItemLimit int
}
