package platforms

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/newspilot/newspilot/internal/config"
	"github.com/newspilot/newspilot/internal/models"
	"github.com/sirupsen/logrus"
)

const facebookGraphURL = "https://graph.facebook.com/v18.0"

// FacebookClient posts to a page feed through the Graph API.
type FacebookClient struct {
	client      *resty.Client
	accessToken string
	pageID      string

	apiURL string
}

var _ Client = (*FacebookClient)(nil)

// NewFacebookClient creates a new Facebook client
func NewFacebookClient(cfg *config.Config) *FacebookClient {
	return &FacebookClient{
		client:      resty.New().SetTimeout(30 * time.Second),
		accessToken: cfg.FacebookAccessToken,
		pageID:      cfg.FacebookPageID,
		apiURL:      facebookGraphURL,
	}
}

// GetName returns the platform name
func (f *FacebookClient) GetName() string {
	return "facebook"
}

// IsEnabled checks if the page credentials are configured
func (f *FacebookClient) IsEnabled() bool {
	return f.accessToken != "" && f.pageID != ""
}

// Publish posts the content to the page feed with the article as the
// attached link
func (f *FacebookClient) Publish(ctx context.Context, content string, article *models.Article) error {
	resp, err := f.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"message":      content,
			"link":         article.URL,
			"access_token": f.accessToken,
		}).
		Post(fmt.Sprintf("%s/%s/feed", f.apiURL, f.pageID))

	if err != nil {
		return fmt.Errorf("failed to post to facebook: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("facebook API returned status %d: %s", resp.StatusCode(), resp.String())
	}

	logrus.Debugf("Posted article %s to facebook page %s", article.ID, f.pageID)
	return nil
}
