package platforms

import (
	"context"

	"github.com/newspilot/newspilot/internal/models"
)

// Client publishes rendered posts to one social platform.
type Client interface {
	// GetName returns the platform name used in configuration, rate
	// limiting and reports ("twitter", "facebook", "linkedin").
	GetName() string

	// IsEnabled reports whether the client holds a complete credential
	// set. Disabled clients are skipped, not errored.
	IsEnabled() bool

	// Publish sends the rendered content to the platform. The article
	// supplies the link metadata some platforms attach separately.
	Publish(ctx context.Context, content string, article *models.Article) error
}
