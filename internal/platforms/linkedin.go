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

const linkedinAPIURL = "https://api.linkedin.com/v2/ugcPosts"

// LinkedInClient posts UGC shares on behalf of the configured author.
type LinkedInClient struct {
	client      *resty.Client
	accessToken string
	authorURN   string

	apiURL string
}

var _ Client = (*LinkedInClient)(nil)

// NewLinkedInClient creates a new LinkedIn client
func NewLinkedInClient(cfg *config.Config) *LinkedInClient {
	return &LinkedInClient{
		client:      resty.New().SetTimeout(30 * time.Second),
		accessToken: cfg.LinkedInAccessToken,
		authorURN:   cfg.LinkedInAuthorURN,
		apiURL:      linkedinAPIURL,
	}
}

// GetName returns the platform name
func (l *LinkedInClient) GetName() string {
	return "linkedin"
}

// IsEnabled checks if the access token is configured
func (l *LinkedInClient) IsEnabled() bool {
	return l.accessToken != ""
}

// Publish shares the content as a UGC post linking the article
func (l *LinkedInClient) Publish(ctx context.Context, content string, article *models.Article) error {
	body := map[string]interface{}{
		"author":         l.authorURN,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": map[string]interface{}{
				"shareCommentary": map[string]string{
					"text": content,
				},
				"shareMediaCategory": "ARTICLE",
				"media": []map[string]interface{}{
					{
						"status":      "READY",
						"originalUrl": article.URL,
					},
				},
			},
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	resp, err := l.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+l.accessToken).
		SetHeader("X-Restli-Protocol-Version", "2.0.0").
		SetBody(body).
		Post(l.apiURL)

	if err != nil {
		return fmt.Errorf("failed to post to linkedin: %w", err)
	}
	if resp.StatusCode() != 201 {
		return fmt.Errorf("linkedin API returned status %d: %s", resp.StatusCode(), resp.String())
	}

	logrus.Debugf("Posted article %s to linkedin", article.ID)
	return nil
}
