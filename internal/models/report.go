package models

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

// PlatformResult describes one platform attempt within a posting run.
type PlatformResult struct {
	Platform string `json:"platform"`
	Posted   bool   `json:"posted"`
	Reason   string `json:"reason,omitempty"` // why the attempt was skipped or failed
}

// PostResult aggregates the per-platform outcomes for one article.
type PostResult struct {
	ArticleID string           `json:"article_id"`
	Success   bool             `json:"success"` // true when at least one platform accepted the post
	Results   []PlatformResult `json:"results"`
}

// PostedPlatforms lists the platforms that accepted the post.
func (r *PostResult) PostedPlatforms() []string {
	var platforms []string
	for _, result := range r.Results {
		if result.Posted {
			platforms = append(platforms, result.Platform)
		}
	}
	return platforms
}

// RunReport summarizes one curation or auto-post cycle.
type RunReport struct {
	RunID       string       `json:"run_id"`
	Kind        string       `json:"kind"` // "curation" or "autopost"
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
	Fetched     int          `json:"fetched"`
	Scored      int          `json:"scored"`
	Posted      int          `json:"posted"`
	Errors      int          `json:"errors"`
	PostResults []PostResult `json:"post_results,omitempty"`
}

// Digest is the operator-facing summary delivered through the notification
// channels after a run.
type Digest struct {
	GeneratedAt      time.Time      `json:"generated_at"`
	Period           string         `json:"period"` // "curation run", "auto-post run", ...
	ArticlesCurated  int            `json:"articles_curated"`
	ArticlesScored   int            `json:"articles_scored"`
	ArticlesPosted   int            `json:"articles_posted"`
	PostedByPlatform map[string]int `json:"posted_by_platform,omitempty"`
	AverageScore     float64        `json:"average_score"`
	TopArticles      []Article      `json:"top_articles,omitempty"`
	Failures         []string       `json:"failures,omitempty"`
}

// ScheduledPost is a queued posting request executed once due.
type ScheduledPost struct {
	ID        string    `json:"id"`
	ArticleID string    `json:"article_id"`
	Platforms []string  `json:"platforms"`
	At        time.Time `json:"scheduled_time"`
	CreatedAt time.Time `json:"created_at"`
}

// NewScheduleID derives a stable identifier for a scheduled post.
func NewScheduleID(articleID string, at time.Time) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s%s", articleID, at.Format(time.RFC3339))))
	return hex.EncodeToString(sum[:])[:8]
}
