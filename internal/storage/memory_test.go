package storage

import (
	"context"
	"testing"
	"time"

	"github.com/newspilot/newspilot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore() (*MemoryStore, time.Time) {
	store := NewMemoryStore()
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	store.nowFn = func() time.Time { return now }
	return store, now
}

func TestSaveArticleAssignsDefaults(t *testing.T) {
	store, now := testStore()
	ctx := context.Background()

	article := &models.Article{
		Title:  "Go 1.22 Released",
		URL:    "https://example.com/go122",
		Source: "example.com",
	}

	id, err := store.SaveArticle(ctx, article)
	require.NoError(t, err)
	assert.Equal(t, models.NewArticleID(article.URL, article.Title), id)

	stored, err := store.GetArticle(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Equal(t, now, stored.ScrapedAt)
	assert.Nil(t, stored.Score)
}

func TestSaveArticleDeduplicatesByURL(t *testing.T) {
	store, _ := testStore()
	ctx := context.Background()

	first, err := store.SaveArticle(ctx, &models.Article{
		Title: "Original headline",
		URL:   "https://example.com/story",
	})
	require.NoError(t, err)

	second, err := store.SaveArticle(ctx, &models.Article{
		Title: "Reworded headline",
		URL:   "https://example.com/story",
	})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	articles, err := store.GetArticles(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Original headline", articles[0].Title)
}

func TestGetArticleNotFound(t *testing.T) {
	store, _ := testStore()

	_, err := store.GetArticle(context.Background(), "art_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetArticlesFilters(t *testing.T) {
	store, now := testStore()
	ctx := context.Background()

	seed := []*models.Article{
		{Title: "a", URL: "https://example.com/a", Source: "bbc", PublishedAt: now.Add(-3 * time.Hour)},
		{Title: "b", URL: "https://example.com/b", Source: "cnn", PublishedAt: now.Add(-1 * time.Hour)},
		{Title: "c", URL: "https://example.com/c", Source: "bbc", PublishedAt: now.Add(-2 * time.Hour), Status: models.StatusPosted},
	}
	for _, article := range seed {
		_, err := store.SaveArticle(ctx, article)
		require.NoError(t, err)
	}

	t.Run("newest published first", func(t *testing.T) {
		articles, err := store.GetArticles(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, articles, 3)
		assert.Equal(t, "b", articles[0].Title)
		assert.Equal(t, "c", articles[1].Title)
		assert.Equal(t, "a", articles[2].Title)
	})

	t.Run("by status", func(t *testing.T) {
		articles, err := store.GetArticles(ctx, Filter{Status: models.StatusPending})
		require.NoError(t, err)
		require.Len(t, articles, 2)
	})

	t.Run("by source", func(t *testing.T) {
		articles, err := store.GetArticles(ctx, Filter{Source: "bbc"})
		require.NoError(t, err)
		require.Len(t, articles, 2)
	})

	t.Run("limited", func(t *testing.T) {
		articles, err := store.GetArticles(ctx, Filter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, articles, 1)
		assert.Equal(t, "b", articles[0].Title)
	})
}

func TestUpdateScore(t *testing.T) {
	store, _ := testStore()
	ctx := context.Background()

	id, err := store.SaveArticle(ctx, &models.Article{Title: "t", URL: "https://example.com/t"})
	require.NoError(t, err)

	analysis := &models.Analysis{Topics: []string{"technology"}}
	require.NoError(t, store.UpdateScore(ctx, id, 8.5, analysis))

	stored, err := store.GetArticle(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored.Score)
	assert.Equal(t, 8.5, *stored.Score)
	assert.Equal(t, analysis, stored.Analysis)

	assert.ErrorIs(t, store.UpdateScore(ctx, "art_missing", 5.0, nil), ErrNotFound)
}

func TestUpdateScoreRefusedAfterPosting(t *testing.T) {
	store, _ := testStore()
	ctx := context.Background()

	id, err := store.SaveArticle(ctx, &models.Article{Title: "t", URL: "https://example.com/t"})
	require.NoError(t, err)
	require.NoError(t, store.UpdateStatus(ctx, id, models.StatusPosted, []string{"twitter"}))

	err = store.UpdateScore(ctx, id, 9.0, nil)
	assert.ErrorIs(t, err, ErrTerminalState)
}

func TestUpdateStatusLifecycle(t *testing.T) {
	store, now := testStore()
	ctx := context.Background()

	id, err := store.SaveArticle(ctx, &models.Article{Title: "t", URL: "https://example.com/t"})
	require.NoError(t, err)

	require.NoError(t, store.UpdateStatus(ctx, id, models.StatusPosted, []string{"twitter", "linkedin"}))

	stored, err := store.GetArticle(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPosted, stored.Status)
	require.NotNil(t, stored.PostedAt)
	assert.Equal(t, now, *stored.PostedAt)
	assert.Equal(t, []string{"twitter", "linkedin"}, stored.PlatformsPosted)

	// Terminal states allow no further transitions.
	err = store.UpdateStatus(ctx, id, models.StatusRejected, nil)
	assert.ErrorIs(t, err, ErrTerminalState)

	assert.ErrorIs(t, store.UpdateStatus(ctx, "art_missing", models.StatusPosted, nil), ErrNotFound)
}

func TestCandidatesForPosting(t *testing.T) {
	store, _ := testStore()
	ctx := context.Background()

	seed := []struct {
		url    string
		score  float64
		posted bool
	}{
		{"https://example.com/1", 9.0, false},
		{"https://example.com/2", 7.5, false},
		{"https://example.com/3", 7.0, false},
		{"https://example.com/4", 6.0, false},
		{"https://example.com/5", 9.9, true},
	}
	for _, row := range seed {
		id, err := store.SaveArticle(ctx, &models.Article{Title: row.url, URL: row.url})
		require.NoError(t, err)
		require.NoError(t, store.UpdateScore(ctx, id, row.score, nil))
		if row.posted {
			require.NoError(t, store.UpdateStatus(ctx, id, models.StatusPosted, nil))
		}
	}
	// One unscored pending article never qualifies.
	_, err := store.SaveArticle(ctx, &models.Article{Title: "unscored", URL: "https://example.com/6"})
	require.NoError(t, err)

	candidates, err := store.CandidatesForPosting(ctx, 7.0, 2)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, 9.0, *candidates[0].Score)
	assert.Equal(t, 7.5, *candidates[1].Score)

	all, err := store.CandidatesForPosting(ctx, 7.0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 7.0, *all[2].Score)
}

func TestStats(t *testing.T) {
	store, now := testStore()
	ctx := context.Background()

	save := func(url, source string, scrapedAt time.Time) string {
		id, err := store.SaveArticle(ctx, &models.Article{
			Title:     url,
			URL:       url,
			Source:    source,
			ScrapedAt: scrapedAt,
		})
		require.NoError(t, err)
		return id
	}

	fresh := save("https://example.com/fresh", "bbc", now.Add(-1*time.Hour))
	require.NoError(t, store.UpdateScore(ctx, fresh, 8.0, nil))

	posted := save("https://example.com/posted", "bbc", now.Add(-2*time.Hour))
	require.NoError(t, store.UpdateScore(ctx, posted, 9.0, nil))
	require.NoError(t, store.UpdateStatus(ctx, posted, models.StatusPosted, []string{"twitter"}))

	thisWeek := save("https://example.com/week", "cnn", now.AddDate(0, 0, -3))
	require.NoError(t, store.UpdateScore(ctx, thisWeek, 7.0, nil))

	save("https://example.com/old", "cnn", now.AddDate(0, 0, -10))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.ArticlesToday)
	assert.Equal(t, 1, stats.PostedToday)
	assert.InDelta(t, 8.5, stats.AverageScore, 1e-9)
	assert.Equal(t, 3, stats.PendingArticles)
	assert.Equal(t, map[string]int{"bbc": 2, "cnn": 1}, stats.SourceCounts)

	require.Len(t, stats.TopArticles, 3)
	assert.Equal(t, 9.0, *stats.TopArticles[0].Score)
	assert.Equal(t, 8.0, *stats.TopArticles[1].Score)
	assert.Equal(t, 7.0, *stats.TopArticles[2].Score)
}

func TestCleanup(t *testing.T) {
	store, now := testStore()
	ctx := context.Background()

	_, err := store.SaveArticle(ctx, &models.Article{
		Title: "recent", URL: "https://example.com/recent", ScrapedAt: now.AddDate(0, 0, -1),
	})
	require.NoError(t, err)

	oldPosted, err := store.SaveArticle(ctx, &models.Article{
		Title: "old posted", URL: "https://example.com/old-posted", ScrapedAt: now.AddDate(0, 0, -40),
	})
	require.NoError(t, err)
	require.NoError(t, store.UpdateStatus(ctx, oldPosted, models.StatusPosted, nil))

	_, err = store.SaveArticle(ctx, &models.Article{
		Title: "old pending", URL: "https://example.com/old-pending", ScrapedAt: now.AddDate(0, 0, -31),
	})
	require.NoError(t, err)

	removed, err := store.Cleanup(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	articles, err := store.GetArticles(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "recent", articles[0].Title)
}

func TestReturnedArticlesAreIsolated(t *testing.T) {
	store, _ := testStore()
	ctx := context.Background()

	id, err := store.SaveArticle(ctx, &models.Article{Title: "t", URL: "https://example.com/t"})
	require.NoError(t, err)
	require.NoError(t, store.UpdateScore(ctx, id, 8.0, nil))

	fetched, err := store.GetArticle(ctx, id)
	require.NoError(t, err)
	*fetched.Score = 1.0
	fetched.Status = models.StatusRejected

	stored, err := store.GetArticle(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 8.0, *stored.Score)
	assert.Equal(t, models.StatusPending, stored.Status)
}
