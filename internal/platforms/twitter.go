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

const twitterAPIURL = "https://api.twitter.com/2/tweets"

// TwitterClient posts tweets through the v2 API with OAuth 1.0a user
// context credentials.
type TwitterClient struct {
	client       *resty.Client
	apiKey       string
	apiSecret    string
	accessToken  string
	accessSecret string

	apiURL string
	nowFn  func() time.Time
}

var _ Client = (*TwitterClient)(nil)

// NewTwitterClient creates a new Twitter client
func NewTwitterClient(cfg *config.Config) *TwitterClient {
	return &TwitterClient{
		client:       resty.New().SetTimeout(30 * time.Second),
		apiKey:       cfg.TwitterAPIKey,
		apiSecret:    cfg.TwitterAPISecret,
		accessToken:  cfg.TwitterAccessToken,
		accessSecret: cfg.TwitterAccessTokenSecret,
		apiURL:       twitterAPIURL,
		nowFn:        time.Now,
	}
}

// GetName returns the platform name
func (t *TwitterClient) GetName() string {
	return "twitter"
}

// IsEnabled checks if all four OAuth credentials are configured
func (t *TwitterClient) IsEnabled() bool {
	return t.apiKey != "" && t.apiSecret != "" && t.accessToken != "" && t.accessSecret != ""
}

// Publish posts the content as a tweet
func (t *TwitterClient) Publish(ctx context.Context, content string, article *models.Article) error {
	creds := oauthCredentials{
		consumerKey:    t.apiKey,
		consumerSecret: t.apiSecret,
		token:          t.accessToken,
		tokenSecret:    t.accessSecret,
	}
	// The JSON body contributes no parameters to the OAuth signature.
	header := oauthHeader("POST", t.apiURL, nil, creds, newNonce(), t.nowFn().Unix())

	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Authorization", header).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"text": content}).
		Post(t.apiURL)

	if err != nil {
		return fmt.Errorf("failed to post tweet: %w", err)
	}
	if resp.StatusCode() != 201 {
		return fmt.Errorf("twitter API returned status %d: %s", resp.StatusCode(), resp.String())
	}

	logrus.Debugf("Posted article %s to twitter", article.ID)
	return nil
}
