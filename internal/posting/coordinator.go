package posting

import (
	"context"

	"github.com/newspilot/newspilot/internal/config"
	"github.com/newspilot/newspilot/internal/models"
	"github.com/newspilot/newspilot/internal/platforms"
	"github.com/newspilot/newspilot/internal/ratelimit"
	"github.com/sirupsen/logrus"
)

// Coordinator runs the posting pipeline for one article at a time: render,
// claim a rate limit slot, publish, and give the slot back when the send
// fails. It is safe for concurrent use.
type Coordinator struct {
	formatter *Formatter
	gate      *ratelimit.Gate
	clients   []platforms.Client
	enabled   map[string]bool
}

// NewCoordinator creates a coordinator with the standard platform clients.
func NewCoordinator(cfg *config.Config, gate *ratelimit.Gate) *Coordinator {
	return newCoordinator(cfg, gate, []platforms.Client{
		platforms.NewTwitterClient(cfg),
		platforms.NewFacebookClient(cfg),
		platforms.NewLinkedInClient(cfg),
	})
}

func newCoordinator(cfg *config.Config, gate *ratelimit.Gate, clients []platforms.Client) *Coordinator {
	enabled := make(map[string]bool, len(cfg.EnabledPlatforms))
	for _, platform := range cfg.EnabledPlatforms {
		enabled[platform] = true
	}
	return &Coordinator{
		formatter: NewFormatter(cfg.PlatformFormats),
		gate:      gate,
		clients:   clients,
		enabled:   enabled,
	}
}

// Post publishes one article to every enabled platform. The attempt counts
// as a success when at least one platform accepts it.
func (c *Coordinator) Post(ctx context.Context, article *models.Article) models.PostResult {
	return c.PostTo(ctx, article, nil)
}

// PostTo publishes one article to the requested platforms, or to every
// enabled platform when none are named. Requested platforms that are not
// enabled are reported, not silently dropped.
func (c *Coordinator) PostTo(ctx context.Context, article *models.Article, requested []string) models.PostResult {
	result := models.PostResult{ArticleID: article.ID}

	targets := requested
	if len(targets) == 0 {
		for _, client := range c.clients {
			if c.enabled[client.GetName()] {
				targets = append(targets, client.GetName())
			}
		}
	}

	for _, name := range targets {
		client := c.clientFor(name)
		if client == nil || !c.enabled[name] {
			result.Results = append(result.Results, models.PlatformResult{
				Platform: name,
				Reason:   "platform not enabled",
			})
			continue
		}

		outcome := c.publish(ctx, client, article)
		result.Results = append(result.Results, outcome)
		if outcome.Posted {
			result.Success = true
		}
	}
	return result
}

func (c *Coordinator) publish(ctx context.Context, client platforms.Client, article *models.Article) models.PlatformResult {
	name := client.GetName()

	if !client.IsEnabled() {
		return models.PlatformResult{Platform: name, Reason: "platform not configured"}
	}

	at, ok := c.gate.Reserve(name)
	if !ok {
		logrus.Infof("Rate limit reached for %s, skipping article %s", name, article.ID)
		return models.PlatformResult{Platform: name, Reason: "rate limit reached"}
	}

	content := c.formatter.Format(article, name)
	if err := client.Publish(ctx, content, article); err != nil {
		c.gate.Release(name, at)
		logrus.Errorf("Failed to post article %s to %s: %v", article.ID, name, err)
		return models.PlatformResult{Platform: name, Reason: err.Error()}
	}

	logrus.Infof("Posted article %s to %s", article.ID, name)
	return models.PlatformResult{Platform: name, Posted: true}
}

func (c *Coordinator) clientFor(name string) platforms.Client {
	for _, client := range c.clients {
		if client.GetName() == name {
			return client
		}
	}
	return nil
}
