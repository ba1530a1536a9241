package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"

	"github.com/newspilot/newspilot/internal/config"
	"github.com/newspilot/newspilot/internal/models"
)

// RSSSource implements an RSS/Atom feed source
type RSSSource struct {
	name   string
	url    string
	client *resty.Client
	parser *gofeed.Parser
	nowFn  func() time.Time
}

var _ Source = (*RSSSource)(nil)

// NewRSSSource creates a new RSS source for one configured feed
func NewRSSSource(feed config.Feed) *RSSSource {
	return &RSSSource{
		name: feed.Name,
		url:  feed.URL,
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", "NewsPilot/1.0"),
		parser: gofeed.NewParser(),
		nowFn:  time.Now,
	}
}

func (s *RSSSource) GetName() string {
	return s.name
}

func (s *RSSSource) IsEnabled() bool {
	return s.url != ""
}

// FetchArticles downloads the feed and maps entries published within the
// lookback window to pending articles.
func (s *RSSSource) FetchArticles(ctx context.Context, since time.Duration) ([]models.Article, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get(s.url)

	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", s.name, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("feed %s returned status %d", s.name, resp.StatusCode())
	}

	feed, err := s.parser.ParseString(resp.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", s.name, err)
	}

	now := s.nowFn()
	cutoff := now.Add(-since)
	var articles []models.Article

	for _, item := range feed.Items {
		if item.Link == "" || strings.TrimSpace(item.Title) == "" {
			continue
		}

		published := itemPublished(item)
		// Skip entries older than our cutoff; entries without any usable
		// date are kept so a broken feed still surfaces its items.
		if !published.IsZero() && published.Before(cutoff) {
			continue
		}

		articles = append(articles, models.Article{
			Title:       strings.TrimSpace(item.Title),
			URL:         item.Link,
			Content:     itemText(item.Content, item.Description),
			Summary:     itemText(item.Description, ""),
			Source:      s.name,
			PublishedAt: published,
			ScrapedAt:   now,
			Status:      models.StatusPending,
		})
	}

	logrus.Debugf("Fetched %d articles from %s (%d items in feed)", len(articles), s.name, len(feed.Items))
	return articles, nil
}

// itemPublished picks the best available timestamp for a feed entry.
func itemPublished(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	if item.Published != "" {
		if parsed, err := dateparse.ParseAny(item.Published); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// itemText prefers the full content over the description and strips markup.
func itemText(content, fallback string) string {
	raw := content
	if raw == "" {
		raw = fallback
	}
	if raw == "" {
		return ""
	}
	return stripHTML(raw)
}

// stripHTML reduces feed HTML to plain text.
func stripHTML(raw string) string {
	if !strings.Contains(raw, "<") {
		return strings.TrimSpace(raw)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(doc.Text())
}

// BuildSources constructs a source per configured feed.
func BuildSources(cfg *config.Config) []Source {
	var sources []Source
	for _, feed := range cfg.Feeds {
		sources = append(sources, NewRSSSource(feed))
	}
	return sources
}
