package models

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// ArticleStatus tracks where an article sits in its posting lifecycle.
type ArticleStatus string

const (
	StatusPending  ArticleStatus = "pending"
	StatusPosted   ArticleStatus = "posted"
	StatusRejected ArticleStatus = "rejected"
	StatusSkipped  ArticleStatus = "skipped"
)

// Terminal reports whether the status allows no further transitions.
func (s ArticleStatus) Terminal() bool {
	return s == StatusPosted || s == StatusRejected || s == StatusSkipped
}

// Article represents a curated news article
type Article struct {
	ID              string        `json:"id" gorm:"primaryKey"`
	Title           string        `json:"title"`
	URL             string        `json:"url" gorm:"uniqueIndex"` // canonical URL, unique per article
	Content         string        `json:"content"`
	Summary         string        `json:"summary"`
	Source          string        `json:"source" gorm:"index"`
	PublishedAt     time.Time     `json:"published_date"`
	ScrapedAt       time.Time     `json:"scraped_date" gorm:"index"`
	Score           *float64      `json:"score,omitempty" gorm:"index"` // 0-10, nil until scored
	Status          ArticleStatus `json:"status" gorm:"index"`
	Analysis        *Analysis     `json:"nlp_analysis,omitempty" gorm:"serializer:json"`
	PostedAt        *time.Time    `json:"posted_date,omitempty"`
	PlatformsPosted []string      `json:"platforms_posted,omitempty" gorm:"serializer:json"`
}

// NewArticleID derives the stable article identifier from URL and title, so
// re-submitting the same article always maps to the same record.
func NewArticleID(url, title string) string {
	sum := md5.Sum([]byte(url + title))
	return "art_" + hex.EncodeToString(sum[:])[:12]
}

// RateLimit caps posts to one platform over rolling windows.
type RateLimit struct {
	PostsPerHour int `json:"posts_per_hour" yaml:"posts_per_hour"`
	PostsPerDay  int `json:"posts_per_day" yaml:"posts_per_day"`
}

// PlatformFormat holds the rendering constraints for one platform.
type PlatformFormat struct {
	MaxLength    int    `json:"max_length" yaml:"max_length"`
	HashtagLimit int    `json:"hashtag_limit" yaml:"hashtag_limit"`
	Template     string `json:"post_template" yaml:"post_template"`
}
