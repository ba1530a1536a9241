package nlp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/newspilot/newspilot/internal/config"
	"github.com/newspilot/newspilot/internal/models"
)

// Analyzer produces the NLP feature set scoring is based on.
type Analyzer interface {
	// IsEnabled reports whether an analyzer service is configured.
	IsEnabled() bool

	// Analyze runs the analyzer over one article's title and body.
	Analyze(ctx context.Context, title, content string) (*models.Analysis, error)
}

// Client calls the external analyzer service over HTTP.
type Client struct {
	client  *resty.Client
	baseURL string
}

var _ Analyzer = (*Client)(nil)

// NewClient creates a new analyzer client
func NewClient(cfg *config.Config) *Client {
	return &Client{
		client:  resty.New().SetTimeout(30 * time.Second),
		baseURL: strings.TrimSuffix(cfg.NLPServiceURL, "/"),
	}
}

// IsEnabled reports whether a service URL is configured
func (c *Client) IsEnabled() bool {
	return c.baseURL != ""
}

type analyzeRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Analyze sends the article text to the analyzer and decodes the feature
// set. Fields the analyzer omits stay nil and score as neutral later on.
func (c *Client) Analyze(ctx context.Context, title, content string) (*models.Analysis, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(analyzeRequest{Title: title, Content: content}).
		Post(c.baseURL + "/analyze")

	if err != nil {
		return nil, fmt.Errorf("failed to call analyzer: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("analyzer returned status %d: %s", resp.StatusCode(), resp.String())
	}

	var analysis models.Analysis
	if err := json.Unmarshal(resp.Body(), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse analyzer response: %w", err)
	}
	return &analysis, nil
}
