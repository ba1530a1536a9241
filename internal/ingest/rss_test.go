package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newspilot/newspilot/internal/config"
	"github.com/newspilot/newspilot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
<title>Example News</title>
<item>
<title> Fresh story </title>
<link>https://example.com/fresh</link>
<description><![CDATA[<p>Go 1.22 brings &amp; improves loops</p>]]></description>
<content:encoded><![CDATA[<p>The full body of the fresh story.</p>]]></content:encoded>
<pubDate>Sat, 15 Mar 2025 10:00:00 GMT</pubDate>
</item>
<item>
<title>Stale story</title>
<link>https://example.com/stale</link>
<description>Old news</description>
<pubDate>Mon, 10 Mar 2025 00:00:00 GMT</pubDate>
</item>
<item>
<title>No link story</title>
<description>Cannot be curated</description>
</item>
<item>
<title>Undated story</title>
<link>https://example.com/undated</link>
<description>Plain text body</description>
</item>
</channel>
</rss>`

func newTestRSSSource(t *testing.T, body string, status int) (*RSSSource, time.Time) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	source := NewRSSSource(config.Feed{Name: "example", URL: server.URL})
	source.nowFn = func() time.Time { return now }
	return source, now
}

func TestRSSSource_GetName(t *testing.T) {
	source := NewRSSSource(config.Feed{Name: "bbc", URL: "https://feeds.bbci.co.uk/news/rss.xml"})
	assert.Equal(t, "bbc", source.GetName())
}

func TestRSSSource_IsEnabled(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{
			name:     "URL configured",
			url:      "https://example.com/rss",
			expected: true,
		},
		{
			name:     "URL missing",
			url:      "",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := NewRSSSource(config.Feed{Name: "example", URL: tt.url})
			assert.Equal(t, tt.expected, source.IsEnabled())
		})
	}
}

func TestRSSSource_FetchArticles(t *testing.T) {
	source, now := newTestRSSSource(t, feedFixture, http.StatusOK)

	articles, err := source.FetchArticles(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	fresh := articles[0]
	assert.Equal(t, "Fresh story", fresh.Title)
	assert.Equal(t, "https://example.com/fresh", fresh.URL)
	assert.Equal(t, "The full body of the fresh story.", fresh.Content)
	assert.Equal(t, "Go 1.22 brings & improves loops", fresh.Summary)
	assert.Equal(t, "example", fresh.Source)
	assert.Equal(t, time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC), fresh.PublishedAt.UTC())
	assert.Equal(t, now, fresh.ScrapedAt)
	assert.Equal(t, models.StatusPending, fresh.Status)

	// Entries without a date are kept rather than guessed at.
	undated := articles[1]
	assert.Equal(t, "Undated story", undated.Title)
	assert.Equal(t, "Plain text body", undated.Content)
	assert.True(t, undated.PublishedAt.IsZero())
}

func TestRSSSource_FetchArticlesSkipsOldEntries(t *testing.T) {
	source, _ := newTestRSSSource(t, feedFixture, http.StatusOK)

	articles, err := source.FetchArticles(context.Background(), 24*time.Hour)
	require.NoError(t, err)

	for _, article := range articles {
		assert.NotEqual(t, "Stale story", article.Title)
	}
}

func TestRSSSource_FetchArticlesWideWindow(t *testing.T) {
	source, _ := newTestRSSSource(t, feedFixture, http.StatusOK)

	articles, err := source.FetchArticles(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)

	// The stale entry is inside a 30 day window; only the linkless entry drops.
	assert.Len(t, articles, 3)
	assert.Equal(t, "Stale story", articles[1].Title)
}

func TestRSSSource_FetchArticlesServerError(t *testing.T) {
	source, _ := newTestRSSSource(t, "oops", http.StatusBadGateway)

	articles, err := source.FetchArticles(context.Background(), time.Hour)
	assert.Nil(t, articles)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned status 502")
}

func TestRSSSource_FetchArticlesMalformedFeed(t *testing.T) {
	source, _ := newTestRSSSource(t, "this is not xml", http.StatusOK)

	articles, err := source.FetchArticles(context.Background(), time.Hour)
	assert.Nil(t, articles)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse feed")
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Basic HTML tags",
			input:    "<p>Hello <strong>world</strong></p>",
			expected: "Hello world",
		},
		{
			name:     "No HTML tags",
			input:    "  Plain text content  ",
			expected: "Plain text content",
		},
		{
			name:     "Entities",
			input:    "<div>Fish &amp; chips</div>",
			expected: "Fish & chips",
		},
		{
			name:     "Empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripHTML(tt.input))
		})
	}
}

func TestBuildSources(t *testing.T) {
	cfg := &config.Config{Feeds: []config.Feed{
		{Name: "bbc", URL: "https://feeds.bbci.co.uk/news/rss.xml"},
		{Name: "cnn", URL: "http://rss.cnn.com/rss/edition.rss"},
	}}

	sources := BuildSources(cfg)
	require.Len(t, sources, 2)
	assert.Equal(t, "bbc", sources[0].GetName())
	assert.Equal(t, "cnn", sources[1].GetName())
}
