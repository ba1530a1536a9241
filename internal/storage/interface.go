package storage

import (
	"context"
	"errors"
	"time"

	"github.com/newspilot/newspilot/internal/models"
)

var (
	// ErrNotFound is returned when no article carries the requested ID.
	ErrNotFound = errors.New("article not found")

	// ErrTerminalState is returned when an update would transition an
	// article out of posted, rejected or skipped.
	ErrTerminalState = errors.New("article is in a terminal state")
)

// Filter narrows article listings. Zero values mean no constraint; a zero
// limit defaults to 100.
type Filter struct {
	Status models.ArticleStatus
	Source string
	Limit  int
}

// Stats summarizes the article corpus for operators.
type Stats struct {
	ArticlesToday   int              `json:"articles_today"`
	PostedToday     int              `json:"posted_today"`
	AverageScore    float64          `json:"average_score_today"`
	PendingArticles int              `json:"pending_articles"`
	SourceCounts    map[string]int   `json:"source_counts_7d"`
	TopArticles     []models.Article `json:"top_articles"`
}

// Store persists curated articles through their posting lifecycle.
type Store interface {
	// SaveArticle stores a new article and returns its ID. An article
	// with an already known URL is not stored again; the existing ID is
	// returned instead.
	SaveArticle(ctx context.Context, article *models.Article) (string, error)

	// GetArticle fetches one article by ID.
	GetArticle(ctx context.Context, id string) (*models.Article, error)

	// GetArticles lists articles matching the filter, newest published
	// first.
	GetArticles(ctx context.Context, filter Filter) ([]*models.Article, error)

	// UpdateScore attaches a score, and optionally the analysis behind
	// it, to a pending article.
	UpdateScore(ctx context.Context, id string, score float64, analysis *models.Analysis) error

	// UpdateStatus moves an article through its lifecycle. Moving to
	// posted records the posting time and platforms. Transitions out of
	// a terminal state are refused.
	UpdateStatus(ctx context.Context, id string, status models.ArticleStatus, platforms []string) error

	// CandidatesForPosting lists pending articles scoring at least
	// minScore, best first. A limit of zero or less defaults to 5.
	CandidatesForPosting(ctx context.Context, minScore float64, limit int) ([]*models.Article, error)

	// Stats reports corpus counters for the stats endpoint and digests.
	Stats(ctx context.Context) (*Stats, error)

	// Cleanup deletes articles scraped before the cutoff, whatever their
	// status, and returns how many were removed.
	Cleanup(ctx context.Context, olderThan time.Time) (int64, error)

	// Close releases the underlying connections.
	Close() error
}
