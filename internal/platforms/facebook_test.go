package platforms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/newspilot/newspilot/internal/config"
	"github.com/newspilot/newspilot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacebookIsEnabled(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		expected bool
	}{
		{"token and page", config.Config{FacebookAccessToken: "t", FacebookPageID: "p"}, true},
		{"missing page", config.Config{FacebookAccessToken: "t"}, false},
		{"missing token", config.Config{FacebookPageID: "p"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewFacebookClient(&tt.cfg)
			assert.Equal(t, tt.expected, client.IsEnabled())
			assert.Equal(t, "facebook", client.GetName())
		})
	}
}

func TestFacebookPublish(t *testing.T) {
	var gotPath string
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"message":      r.PostFormValue("message"),
			"link":         r.PostFormValue("link"),
			"access_token": r.PostFormValue("access_token"),
		}
		w.Write([]byte(`{"id":"123_456"}`))
	}))
	defer server.Close()

	client := &FacebookClient{
		client:      resty.New(),
		accessToken: "token",
		pageID:      "page42",
		apiURL:      server.URL,
	}
	article := &models.Article{ID: "art_1", URL: "https://example.com/story"}

	err := client.Publish(context.Background(), "Worth a read", article)
	require.NoError(t, err)

	assert.Equal(t, "/page42/feed", gotPath)
	assert.Equal(t, "Worth a read", gotForm["message"])
	assert.Equal(t, "https://example.com/story", gotForm["link"])
	assert.Equal(t, "token", gotForm["access_token"])
}

func TestFacebookPublishRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	}))
	defer server.Close()

	client := &FacebookClient{
		client:      resty.New(),
		accessToken: "expired",
		pageID:      "page42",
		apiURL:      server.URL,
	}

	err := client.Publish(context.Background(), "post", &models.Article{ID: "art_1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
