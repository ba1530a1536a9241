package config

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/newspilot/newspilot/internal/models"
	"github.com/newspilot/newspilot/internal/ranking"
	"gopkg.in/yaml.v3"
)

// Feed identifies one upstream RSS feed to curate from.
type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Config holds all configuration for the application. Scalars come from
// environment variables; the table-shaped settings (weights, multipliers,
// platform formats, rate limits, feeds) can additionally be overridden
// through the YAML file named by CONFIG_FILE.
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Schedule configuration
	CurationSchedule string // "hourly" or "daily"
	TimeZone         string

	// Storage configuration
	DatabaseDSN string // empty falls back to the in-memory store

	// NLP analyzer service
	NLPServiceURL string

	// Posting configuration
	EnabledPlatforms  []string
	EnableAutoPosting bool
	MinPostingScore   float64
	MaxPostsPerRun    int
	MaxPostsPerDay    int
	RetentionDays     int

	// Ranking configuration
	RankingWeights   map[string]float64
	TopicMultipliers map[string]float64

	// Per-platform posting constraints
	PlatformFormats map[string]models.PlatformFormat
	RateLimits      map[string]models.RateLimit

	// Feeds to curate from
	Feeds []Feed

	// Platform API credentials
	TwitterAPIKey            string
	TwitterAPISecret         string
	TwitterAccessToken       string
	TwitterAccessTokenSecret string
	FacebookAccessToken      string
	FacebookPageID           string
	LinkedInAccessToken      string
	LinkedInAuthorURN        string

	// Notification configuration
	SlackWebhookURL   string
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Report archive configuration
	StorageAccount   string
	StorageContainer string
}

func defaultRankingWeights() map[string]float64 {
	return ranking.DefaultWeights()
}

func defaultTopicMultipliers() map[string]float64 {
	return ranking.DefaultMultipliers()
}

func defaultPlatformFormats() map[string]models.PlatformFormat {
	return map[string]models.PlatformFormat{
		"twitter": {
			MaxLength:    280,
			HashtagLimit: 3,
			Template:     "{title}\n\n{summary}\n\n{hashtags}\n\n{url}",
		},
		"facebook": {
			MaxLength:    2000,
			HashtagLimit: 5,
			Template:     "{title}\n\n{summary}\n\n{hashtags}\n\nRead more: {url}",
		},
		"linkedin": {
			MaxLength:    1300,
			HashtagLimit: 4,
			Template:     "{title}\n\n{summary}\n\n{hashtags}\n\nSource: {url}",
		},
	}
}

func defaultRateLimits() map[string]models.RateLimit {
	return map[string]models.RateLimit{
		"twitter":  {PostsPerHour: 5, PostsPerDay: 50},
		"facebook": {PostsPerHour: 10, PostsPerDay: 100},
		"linkedin": {PostsPerHour: 3, PostsPerDay: 20},
	}
}

// Load loads configuration from environment variables plus the optional
// YAML file. Invalid settings degrade with warnings (see Warnings) rather
// than failing startup; only an unreadable or malformed CONFIG_FILE is an
// error.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Debug:            getBoolEnv("DEBUG", false),
		CurationSchedule: getEnv("CURATION_SCHEDULE", "hourly"),
		TimeZone:         getEnv("TIMEZONE", "UTC"),

		DatabaseDSN:   getEnv("DATABASE_URL", ""),
		NLPServiceURL: getEnv("NLP_SERVICE_URL", ""),

		EnabledPlatforms:  getSliceEnv("ENABLED_PLATFORMS", []string{"twitter", "facebook", "linkedin"}),
		EnableAutoPosting: getBoolEnv("ENABLE_AUTO_POSTING", false),
		MinPostingScore:   getFloatEnv("MIN_POSTING_SCORE", 7.0),
		MaxPostsPerRun:    getIntEnv("MAX_POSTS_PER_RUN", 3),
		MaxPostsPerDay:    getIntEnv("MAX_POSTS_PER_DAY", 10),
		RetentionDays:     getIntEnv("RETENTION_DAYS", 30),

		RankingWeights:   defaultRankingWeights(),
		TopicMultipliers: defaultTopicMultipliers(),
		PlatformFormats:  defaultPlatformFormats(),
		RateLimits:       defaultRateLimits(),

		Feeds: feedsFromEnv(),

		TwitterAPIKey:            getEnv("TWITTER_API_KEY", ""),
		TwitterAPISecret:         getEnv("TWITTER_API_SECRET", ""),
		TwitterAccessToken:       getEnv("TWITTER_ACCESS_TOKEN", ""),
		TwitterAccessTokenSecret: getEnv("TWITTER_ACCESS_TOKEN_SECRET", ""),
		FacebookAccessToken:      getEnv("FACEBOOK_ACCESS_TOKEN", ""),
		FacebookPageID:           getEnv("FACEBOOK_PAGE_ID", ""),
		LinkedInAccessToken:      getEnv("LINKEDIN_ACCESS_TOKEN", ""),
		LinkedInAuthorURN:        getEnv("LINKEDIN_AUTHOR_URN", ""),

		SlackWebhookURL:   getEnv("SLACK_WEBHOOK_URL", ""),
		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "run-reports"),
	}

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("failed to apply config file %s: %w", path, err)
		}
	}

	return cfg, nil
}

// fileConfig is the YAML shape of the table-valued settings.
type fileConfig struct {
	RankingWeights   map[string]float64               `yaml:"ranking_weights"`
	TopicMultipliers map[string]float64               `yaml:"topic_multipliers"`
	Platforms        map[string]models.PlatformFormat `yaml:"platforms"`
	RateLimits       map[string]models.RateLimit      `yaml:"rate_limits"`
	Feeds            []Feed                           `yaml:"feeds"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}

	// File entries overlay the defaults key by key, so a file can adjust a
	// single weight without restating the whole table.
	for factor, weight := range file.RankingWeights {
		c.RankingWeights[factor] = weight
	}
	for topic, multiplier := range file.TopicMultipliers {
		c.TopicMultipliers[topic] = multiplier
	}
	for platform, format := range file.Platforms {
		c.PlatformFormats[platform] = format
	}
	for platform, limit := range file.RateLimits {
		c.RateLimits[platform] = limit
	}
	if len(file.Feeds) > 0 {
		c.Feeds = file.Feeds
	}

	return nil
}

// Warnings reports configuration problems that degrade the service without
// stopping it: the caller logs them and continues.
func (c *Config) Warnings() []string {
	var warnings []string

	if c.CurationSchedule != "hourly" && c.CurationSchedule != "daily" {
		warnings = append(warnings, fmt.Sprintf("CURATION_SCHEDULE %q is not 'hourly' or 'daily', using 'hourly'", c.CurationSchedule))
	}

	sum := 0.0
	for factor, weight := range c.RankingWeights {
		if !ranking.IsFactor(factor) {
			warnings = append(warnings, fmt.Sprintf("unknown ranking factor %q in weights table", factor))
		}
		if weight < 0 {
			warnings = append(warnings, fmt.Sprintf("ranking factor %q has negative weight %.2f", factor, weight))
		}
		sum += weight
	}
	if math.Abs(sum-1.0) > 0.01 {
		warnings = append(warnings, fmt.Sprintf("ranking weights sum to %.2f, expected 1.0; scores will be skewed", sum))
	}

	for _, platform := range c.EnabledPlatforms {
		switch platform {
		case "twitter":
			if c.TwitterAPIKey == "" || c.TwitterAPISecret == "" || c.TwitterAccessToken == "" || c.TwitterAccessTokenSecret == "" {
				warnings = append(warnings, "twitter is enabled but credentials are incomplete; posts to it will be skipped")
			}
		case "facebook":
			if c.FacebookAccessToken == "" || c.FacebookPageID == "" {
				warnings = append(warnings, "facebook is enabled but credentials are incomplete; posts to it will be skipped")
			}
		case "linkedin":
			if c.LinkedInAccessToken == "" {
				warnings = append(warnings, "linkedin is enabled but credentials are incomplete; posts to it will be skipped")
			}
		default:
			warnings = append(warnings, fmt.Sprintf("unknown platform %q in ENABLED_PLATFORMS", platform))
		}
		if _, ok := c.RateLimits[platform]; !ok {
			warnings = append(warnings, fmt.Sprintf("platform %q has no rate limit configured; posts to it will be refused", platform))
		}
	}

	if len(c.Feeds) == 0 {
		warnings = append(warnings, "no feeds configured; curation runs will find nothing to fetch")
	}
	if c.NLPServiceURL == "" {
		warnings = append(warnings, "NLP_SERVICE_URL is not set; articles will be stored unscored")
	}
	if c.DatabaseDSN == "" {
		warnings = append(warnings, "DATABASE_URL is not set; using the in-memory article store")
	}

	return warnings
}

// feedsFromEnv builds the feed list from the FEEDS variable, deriving a
// feed name from each URL host.
func feedsFromEnv() []Feed {
	var feeds []Feed
	for _, raw := range getSliceEnv("FEEDS", nil) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		feeds = append(feeds, Feed{Name: feedName(raw), URL: raw})
	}
	return feeds
}

func feedName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return strings.TrimPrefix(parsed.Host, "www.")
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
