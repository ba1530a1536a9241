package ingest

import (
	"context"
	"time"

	"github.com/newspilot/newspilot/internal/models"
)

// Source interface defines the contract for all article feeds
type Source interface {
	GetName() string
	FetchArticles(ctx context.Context, since time.Duration) ([]models.Article, error)
	IsEnabled() bool
}
