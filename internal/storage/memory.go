package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/newspilot/newspilot/internal/models"
)

// MemoryStore keeps articles in memory. It backs local development and
// tests when no database is configured; everything is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	articles map[string]*models.Article

	nowFn func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		articles: make(map[string]*models.Article),
		nowFn:    time.Now,
	}
}

// SaveArticle stores a new article, or returns the existing ID when the URL
// is already known.
func (s *MemoryStore) SaveArticle(ctx context.Context, article *models.Article) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.articles {
		if existing.URL == article.URL {
			return existing.ID, nil
		}
	}

	stored := cloneArticle(article)
	if stored.ID == "" {
		stored.ID = models.NewArticleID(stored.URL, stored.Title)
	}
	if stored.ScrapedAt.IsZero() {
		stored.ScrapedAt = s.nowFn()
	}
	if stored.Status == "" {
		stored.Status = models.StatusPending
	}

	s.articles[stored.ID] = stored
	article.ID = stored.ID
	return stored.ID, nil
}

// GetArticle fetches one article by ID.
func (s *MemoryStore) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	article, ok := s.articles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneArticle(article), nil
}

// GetArticles lists articles matching the filter, newest published first.
func (s *MemoryStore) GetArticles(ctx context.Context, filter Filter) ([]*models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var articles []*models.Article
	for _, article := range s.articles {
		if filter.Status != "" && article.Status != filter.Status {
			continue
		}
		if filter.Source != "" && article.Source != filter.Source {
			continue
		}
		articles = append(articles, cloneArticle(article))
	}

	sort.Slice(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}

// UpdateScore attaches a score and analysis to a pending article.
func (s *MemoryStore) UpdateScore(ctx context.Context, id string, score float64, analysis *models.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	article, ok := s.articles[id]
	if !ok {
		return ErrNotFound
	}
	if article.Status != models.StatusPending {
		return fmt.Errorf("cannot rescore article %s in status %s: %w", id, article.Status, ErrTerminalState)
	}

	article.Score = &score
	if analysis != nil {
		article.Analysis = analysis
	}
	return nil
}

// UpdateStatus moves an article through its lifecycle.
func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, status models.ArticleStatus, platforms []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	article, ok := s.articles[id]
	if !ok {
		return ErrNotFound
	}
	if article.Status.Terminal() {
		return fmt.Errorf("article %s is already %s: %w", id, article.Status, ErrTerminalState)
	}

	article.Status = status
	if status == models.StatusPosted {
		now := s.nowFn()
		article.PostedAt = &now
		article.PlatformsPosted = append([]string(nil), platforms...)
	}
	return nil
}

// CandidatesForPosting lists pending articles scoring at least minScore.
func (s *MemoryStore) CandidatesForPosting(ctx context.Context, minScore float64, limit int) ([]*models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []*models.Article
	for _, article := range s.articles {
		if article.Status != models.StatusPending {
			continue
		}
		if article.Score == nil || *article.Score < minScore {
			continue
		}
		candidates = append(candidates, cloneArticle(article))
	}

	sort.Slice(candidates, func(i, j int) bool {
		return *candidates[i].Score > *candidates[j].Score
	})

	if limit <= 0 {
		limit = 5
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// Stats reports corpus counters.
func (s *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.nowFn().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := now.AddDate(0, 0, -7)

	stats := &Stats{SourceCounts: make(map[string]int)}
	scoreSum := 0.0
	scoredToday := 0

	var scored []*models.Article
	for _, article := range s.articles {
		if !article.ScrapedAt.Before(today) {
			stats.ArticlesToday++
			if article.Score != nil && *article.Score > 0 {
				scoreSum += *article.Score
				scoredToday++
			}
		}
		if article.Status == models.StatusPosted && article.PostedAt != nil && !article.PostedAt.Before(today) {
			stats.PostedToday++
		}
		if article.Status == models.StatusPending {
			stats.PendingArticles++
		}
		if !article.ScrapedAt.Before(weekAgo) {
			stats.SourceCounts[article.Source]++
		}
		if article.Score != nil && *article.Score > 0 {
			scored = append(scored, article)
		}
	}

	if scoredToday > 0 {
		stats.AverageScore = scoreSum / float64(scoredToday)
	}

	sort.Slice(scored, func(i, j int) bool {
		return *scored[i].Score > *scored[j].Score
	})
	if len(scored) > topArticleCount {
		scored = scored[:topArticleCount]
	}
	for _, article := range scored {
		stats.TopArticles = append(stats.TopArticles, *cloneArticle(article))
	}

	return stats, nil
}

// Cleanup deletes articles scraped before the cutoff.
func (s *MemoryStore) Cleanup(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, article := range s.articles {
		if article.ScrapedAt.Before(olderThan) {
			delete(s.articles, id)
			removed++
		}
	}
	return removed, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// cloneArticle copies an article so callers cannot mutate stored state
// through the returned pointer. The analysis is shared; it is treated as
// immutable everywhere.
func cloneArticle(a *models.Article) *models.Article {
	clone := *a
	if a.Score != nil {
		v := *a.Score
		clone.Score = &v
	}
	if a.PostedAt != nil {
		v := *a.PostedAt
		clone.PostedAt = &v
	}
	if a.PlatformsPosted != nil {
		clone.PlatformsPosted = append([]string(nil), a.PlatformsPosted...)
	}
	return &clone
}
