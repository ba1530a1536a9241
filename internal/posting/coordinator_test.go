package posting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/newspilot/newspilot/internal/config"
	"github.com/newspilot/newspilot/internal/models"
	"github.com/newspilot/newspilot/internal/platforms"
	"github.com/newspilot/newspilot/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient is a mock platform client
type MockClient struct {
	mock.Mock
}

func (m *MockClient) GetName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClient) IsEnabled() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockClient) Publish(ctx context.Context, content string, article *models.Article) error {
	args := m.Called(ctx, content, article)
	return args.Error(0)
}

func newMockClient(name string, enabled bool) *MockClient {
	client := &MockClient{}
	client.On("GetName").Return(name)
	client.On("IsEnabled").Return(enabled)
	return client
}

func testPostingConfig() *config.Config {
	return &config.Config{
		EnabledPlatforms: []string{"twitter", "facebook"},
		PlatformFormats: map[string]models.PlatformFormat{
			"twitter":  {MaxLength: 280, HashtagLimit: 3, Template: "{title}\n\n{url}"},
			"facebook": {MaxLength: 2000, HashtagLimit: 5, Template: "{title}\n\n{url}"},
		},
	}
}

func testGate() *ratelimit.Gate {
	return ratelimit.NewGate(map[string]models.RateLimit{
		"twitter":  {PostsPerHour: 5, PostsPerDay: 50},
		"facebook": {PostsPerHour: 5, PostsPerDay: 50},
	})
}

func testArticle() *models.Article {
	return &models.Article{
		ID:    "art_1",
		Title: "Title",
		URL:   "https://example.com/story",
	}
}

func TestPostPublishesToAllEnabledPlatforms(t *testing.T) {
	twitter := newMockClient("twitter", true)
	twitter.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	facebook := newMockClient("facebook", true)
	facebook.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	gate := testGate()
	coordinator := newCoordinator(testPostingConfig(), gate, []platforms.Client{twitter, facebook})

	result := coordinator.Post(context.Background(), testArticle())

	assert.True(t, result.Success)
	require.Len(t, result.Results, 2)
	assert.True(t, result.Results[0].Posted)
	assert.True(t, result.Results[1].Posted)
	assert.Equal(t, []string{"twitter", "facebook"}, result.PostedPlatforms())

	stats := gate.Stats()
	assert.Equal(t, 1, stats["twitter"].PostsToday)
	assert.Equal(t, 1, stats["facebook"].PostsToday)

	twitter.AssertExpectations(t)
	facebook.AssertExpectations(t)
}

func TestPostPartialFailureStillSucceeds(t *testing.T) {
	twitter := newMockClient("twitter", true)
	twitter.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("twitter API returned status 403: duplicate"))
	facebook := newMockClient("facebook", true)
	facebook.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	gate := testGate()
	coordinator := newCoordinator(testPostingConfig(), gate, []platforms.Client{twitter, facebook})

	result := coordinator.Post(context.Background(), testArticle())

	assert.True(t, result.Success)
	assert.Equal(t, []string{"facebook"}, result.PostedPlatforms())

	require.Len(t, result.Results, 2)
	assert.False(t, result.Results[0].Posted)
	assert.Contains(t, result.Results[0].Reason, "403")

	// The failed send must hand its rate limit slot back.
	stats := gate.Stats()
	assert.Equal(t, 0, stats["twitter"].PostsToday)
	assert.Equal(t, 1, stats["facebook"].PostsToday)
}

func TestPostAllPlatformsFailing(t *testing.T) {
	twitter := newMockClient("twitter", true)
	twitter.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("boom"))
	facebook := newMockClient("facebook", true)
	facebook.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("boom"))

	coordinator := newCoordinator(testPostingConfig(), testGate(), []platforms.Client{twitter, facebook})

	result := coordinator.Post(context.Background(), testArticle())

	assert.False(t, result.Success)
	assert.Empty(t, result.PostedPlatforms())
}

func TestPostSkipsUnconfiguredClient(t *testing.T) {
	twitter := newMockClient("twitter", false)
	facebook := newMockClient("facebook", true)
	facebook.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	gate := testGate()
	coordinator := newCoordinator(testPostingConfig(), gate, []platforms.Client{twitter, facebook})

	result := coordinator.Post(context.Background(), testArticle())

	assert.True(t, result.Success)
	require.Len(t, result.Results, 2)
	assert.False(t, result.Results[0].Posted)
	assert.Equal(t, "platform not configured", result.Results[0].Reason)

	// A skipped platform must not consume a rate limit slot.
	assert.Equal(t, 0, gate.Stats()["twitter"].PostsToday)
	twitter.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestPostRespectsRateLimit(t *testing.T) {
	twitter := newMockClient("twitter", true)

	gate := ratelimit.NewGate(map[string]models.RateLimit{
		"twitter": {PostsPerHour: 0, PostsPerDay: 0},
	})
	cfg := testPostingConfig()
	cfg.EnabledPlatforms = []string{"twitter"}
	coordinator := newCoordinator(cfg, gate, []platforms.Client{twitter})

	result := coordinator.Post(context.Background(), testArticle())

	assert.False(t, result.Success)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "rate limit reached", result.Results[0].Reason)
	twitter.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestPostToNamedPlatforms(t *testing.T) {
	twitter := newMockClient("twitter", true)
	twitter.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	facebook := newMockClient("facebook", true)

	coordinator := newCoordinator(testPostingConfig(), testGate(), []platforms.Client{twitter, facebook})

	result := coordinator.PostTo(context.Background(), testArticle(), []string{"twitter"})

	assert.True(t, result.Success)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "twitter", result.Results[0].Platform)
	facebook.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestPostToUnknownPlatform(t *testing.T) {
	twitter := newMockClient("twitter", true)

	coordinator := newCoordinator(testPostingConfig(), testGate(), []platforms.Client{twitter})

	result := coordinator.PostTo(context.Background(), testArticle(), []string{"myspace"})

	assert.False(t, result.Success)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "platform not enabled", result.Results[0].Reason)
}

func TestConcurrentPostsHonorRateLimit(t *testing.T) {
	twitter := newMockClient("twitter", true)
	twitter.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		After(20 * time.Millisecond).
		Return(nil)

	gate := ratelimit.NewGate(map[string]models.RateLimit{
		"twitter": {PostsPerHour: 1, PostsPerDay: 10},
	})
	cfg := testPostingConfig()
	cfg.EnabledPlatforms = []string{"twitter"}
	coordinator := newCoordinator(cfg, gate, []platforms.Client{twitter})

	var wg sync.WaitGroup
	results := make(chan models.PostResult, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- coordinator.Post(context.Background(), testArticle())
		}()
	}
	wg.Wait()
	close(results)

	posted := 0
	limited := 0
	for result := range results {
		if result.Success {
			posted++
		} else if result.Results[0].Reason == "rate limit reached" {
			limited++
		}
	}
	assert.Equal(t, 1, posted)
	assert.Equal(t, 3, limited)
}
