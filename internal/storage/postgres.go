package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/newspilot/newspilot/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const topArticleCount = 5

// PostgresStore persists articles in PostgreSQL through gorm.
type PostgresStore struct {
	db *gorm.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to the database and runs the schema migration.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := db.AutoMigrate(&models.Article{}); err != nil {
		return nil, fmt.Errorf("failed to migrate article schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// SaveArticle stores a new article, or returns the existing ID when the URL
// is already known.
func (s *PostgresStore) SaveArticle(ctx context.Context, article *models.Article) (string, error) {
	var existing models.Article
	err := s.db.WithContext(ctx).Where("url = ?", article.URL).First(&existing).Error
	if err == nil {
		logrus.Debugf("Article already stored as %s: %s", existing.ID, article.URL)
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to look up article by URL: %w", err)
	}

	if article.ID == "" {
		article.ID = models.NewArticleID(article.URL, article.Title)
	}
	if article.ScrapedAt.IsZero() {
		article.ScrapedAt = time.Now()
	}
	if article.Status == "" {
		article.Status = models.StatusPending
	}

	if err := s.db.WithContext(ctx).Create(article).Error; err != nil {
		return "", fmt.Errorf("failed to save article: %w", err)
	}
	return article.ID, nil
}

// GetArticle fetches one article by ID.
func (s *PostgresStore) GetArticle(ctx context.Context, id string) (*models.Article, error) {
	var article models.Article
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch article %s: %w", id, err)
	}
	return &article, nil
}

// GetArticles lists articles matching the filter, newest published first.
func (s *PostgresStore) GetArticles(ctx context.Context, filter Filter) ([]*models.Article, error) {
	query := s.db.WithContext(ctx).Model(&models.Article{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var articles []*models.Article
	if err := query.Order("published_at DESC").Limit(limit).Find(&articles).Error; err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return articles, nil
}

// UpdateScore attaches a score and analysis to a pending article.
func (s *PostgresStore) UpdateScore(ctx context.Context, id string, score float64, analysis *models.Analysis) error {
	article, err := s.GetArticle(ctx, id)
	if err != nil {
		return err
	}
	if article.Status != models.StatusPending {
		return fmt.Errorf("cannot rescore article %s in status %s: %w", id, article.Status, ErrTerminalState)
	}

	article.Score = &score
	if analysis != nil {
		article.Analysis = analysis
	}
	if err := s.db.WithContext(ctx).Save(article).Error; err != nil {
		return fmt.Errorf("failed to update score for article %s: %w", id, err)
	}
	return nil
}

// UpdateStatus moves an article through its lifecycle.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status models.ArticleStatus, platforms []string) error {
	article, err := s.GetArticle(ctx, id)
	if err != nil {
		return err
	}
	if article.Status.Terminal() {
		return fmt.Errorf("article %s is already %s: %w", id, article.Status, ErrTerminalState)
	}

	article.Status = status
	if status == models.StatusPosted {
		now := time.Now()
		article.PostedAt = &now
		article.PlatformsPosted = platforms
	}
	if err := s.db.WithContext(ctx).Save(article).Error; err != nil {
		return fmt.Errorf("failed to update status for article %s: %w", id, err)
	}
	return nil
}

// CandidatesForPosting lists pending articles scoring at least minScore.
func (s *PostgresStore) CandidatesForPosting(ctx context.Context, minScore float64, limit int) ([]*models.Article, error) {
	if limit <= 0 {
		limit = 5
	}

	var articles []*models.Article
	err := s.db.WithContext(ctx).
		Where("status = ? AND score >= ?", models.StatusPending, minScore).
		Order("score DESC").
		Limit(limit).
		Find(&articles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list posting candidates: %w", err)
	}
	return articles, nil
}

// Stats reports corpus counters.
func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := now.AddDate(0, 0, -7)

	stats := &Stats{SourceCounts: make(map[string]int)}

	var articlesToday int64
	if err := s.model(ctx).Where("scraped_at >= ?", today).Count(&articlesToday).Error; err != nil {
		return nil, fmt.Errorf("failed to count today's articles: %w", err)
	}
	stats.ArticlesToday = int(articlesToday)

	var postedToday int64
	if err := s.model(ctx).Where("status = ? AND posted_at >= ?", models.StatusPosted, today).Count(&postedToday).Error; err != nil {
		return nil, fmt.Errorf("failed to count today's posts: %w", err)
	}
	stats.PostedToday = int(postedToday)

	var avg float64
	err := s.model(ctx).
		Where("scraped_at >= ? AND score > 0", today).
		Select("COALESCE(AVG(score), 0)").
		Scan(&avg).Error
	if err != nil {
		return nil, fmt.Errorf("failed to average today's scores: %w", err)
	}
	stats.AverageScore = avg

	var pending int64
	if err := s.model(ctx).Where("status = ?", models.StatusPending).Count(&pending).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending articles: %w", err)
	}
	stats.PendingArticles = int(pending)

	var sourceCounts []struct {
		Source string
		Count  int
	}
	err = s.model(ctx).
		Select("source, COUNT(*) AS count").
		Where("scraped_at >= ?", weekAgo).
		Group("source").
		Scan(&sourceCounts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count articles by source: %w", err)
	}
	for _, row := range sourceCounts {
		stats.SourceCounts[row.Source] = row.Count
	}

	err = s.db.WithContext(ctx).
		Where("score > 0").
		Order("score DESC").
		Limit(topArticleCount).
		Find(&stats.TopArticles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list top articles: %w", err)
	}

	return stats, nil
}

// Cleanup deletes articles scraped before the cutoff.
func (s *PostgresStore) Cleanup(ctx context.Context, olderThan time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("scraped_at < ?", olderThan).Delete(&models.Article{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clean up old articles: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Close releases the database connection pool.
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *PostgresStore) model(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Article{})
}
