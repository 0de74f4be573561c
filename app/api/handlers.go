package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/monkeydioude/patishie/app/database"
	"github.com/monkeydioude/patishie/app/scheduler"
)

func NewHandler(sourceRepo database.SourceRepository, articleRepo database.ArticleRepository,
	ledger *scheduler.Ledger, defaultItemLimit int) *Handler {
	return &Handler{
		sourceRepo:       sourceRepo,
		articleRepo:      articleRepo,
		ledger:           ledger,
		defaultItemLimit: defaultItemLimit,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"health": "OK"})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"in_flight": h.ledger.Len(),
	}

	if sourceCount, err := h.sourceRepo.Count(c.Request.Context()); err == nil {
		stats["sources"] = sourceCount
	}

	if articleCount, err := h.articleRepo.Count(c.Request.Context()); err == nil {
		stats["articles"] = articleCount
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListSources(c *gin.Context) {
	sources, err := h.sourceRepo.GetAll(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	list := make([]map[string]interface{}, 0, len(sources))
	for _, src := range sources {
		info := map[string]interface{}{
			"id":                      src.ID,
			"name":                    src.Name,
			"url":                     src.URL,
			"kind":                    string(src.Kind),
			"last_refresh":            src.LastRefresh,
			"last_successful_refresh": src.LastSuccessfulRefresh,
			"refresh_frequency":       src.RefreshFrequency,
			"weight":                  src.Weight,
			"next_refresh":            src.NextRefresh(),
		}
		list = append(list, info)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": list,
		"total":   len(list),
	})
}

func (h *Handler) GetSourceArticles(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	limit := h.defaultItemLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}

	source, err := h.sourceRepo.GetByName(c.Request.Context(), name)
	if err != nil {
		slog.Error("Database error", "operation", "get_source", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if source == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}

	articles, err := h.articleRepo.GetLatestBySource(c.Request.Context(), name, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_articles", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	list := make([]map[string]interface{}, 0, len(articles))
	for _, a := range articles {
		list = append(list, map[string]interface{}{
			"link":        a.Link,
			"title":       a.Title,
			"description": a.Description,
			"image_url":   a.ImageURL,
			"categories":  a.Categories,
			"create_date": a.CreateDate,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"source":   source.Name,
		"articles": list,
		"total":    len(list),
	})
}
