package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/google/uuid"
)

const (
	xRequestIDLabel   = "X-Request-ID"
	noXRequestIDLabel = "no_x_request_id"
)

// BakeryFetcher queries the bakery scraping service for sources that do not
// expose a feed of their own.
type BakeryFetcher struct {
	client    *http.Client
	apiBase   string
	userAgent string
}

func NewBakeryFetcher(client *http.Client, apiBase, userAgent string) *BakeryFetcher {
	return &BakeryFetcher{
		client:    client,
		apiBase:   apiBase,
		userAgent: userAgent,
	}
}

// bakeryArticle mirrors the bakery response payload. Older bakery versions
// send the creation timestamp as "date" instead of "create_date".
type bakeryArticle struct {
	Link       string   `json:"link"`
	Title      string   `json:"title"`
	Img        string   `json:"img"`
	Desc       string   `json:"desc"`
	Categories []string `json:"categories"`
	CreateDate int64    `json:"create_date"`
	LegacyDate int64    `json:"date"`
}

func (f *BakeryFetcher) Fetch(ctx context.Context, url string, correlationID uuid.UUID) ([]CandidateArticle, error) {
	endpoint := fmt.Sprintf("%s/bakery?url=%s", f.apiBase, neturl.QueryEscape(url))

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := correlationID.String()
	if correlationID == uuid.Nil {
		requestID = noXRequestIDLabel
	}
	req.Header.Set(xRequestIDLabel, requestID)
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query bakery: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	var raw []bakeryArticle
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode bakery response: %w", err)
	}

	now := time.Now().UnixMilli()
	articles := make([]CandidateArticle, 0, len(raw))
	for _, ba := range raw {
		if ba.Link == "" {
			continue
		}

		createDate := ba.CreateDate
		if createDate == 0 {
			createDate = ba.LegacyDate
		}
		if createDate == 0 {
			createDate = now
		}

		articles = append(articles, CandidateArticle{
			Link:        ba.Link,
			Title:       ba.Title,
			Description: ba.Desc,
			ImageURL:    ba.Img,
			Categories:  ba.Categories,
			CreateDate:  createDate,
		})
	}

	return articles, nil
}
