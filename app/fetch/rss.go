package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
)

// RSSFetcher fetches a feed URL directly and normalizes its items.
type RSSFetcher struct {
	client    *http.Client
	parser    *gofeed.Parser
	userAgent string
}

func NewRSSFetcher(client *http.Client, userAgent string) *RSSFetcher {
	return &RSSFetcher{
		client:    client,
		parser:    gofeed.NewParser(),
		userAgent: userAgent,
	}
}

func (f *RSSFetcher) Fetch(ctx context.Context, url string, correlationID uuid.UUID) ([]CandidateArticle, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	feed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	now := time.Now().UnixMilli()
	articles := make([]CandidateArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		// The link is the dedup key, items without one cannot be stored.
		if item.Link == "" {
			continue
		}

		createDate := now
		if item.PublishedParsed != nil {
			createDate = item.PublishedParsed.UnixMilli()
		}

		articles = append(articles, CandidateArticle{
			Link:        item.Link,
			Title:       item.Title,
			Description: item.Description,
			ImageURL:    itemImageURL(item),
			Categories:  item.Categories,
			CreateDate:  createDate,
		})
	}

	return articles, nil
}

func itemImageURL(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" {
			return enc.URL
		}
	}
	return ""
}
