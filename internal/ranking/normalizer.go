package ranking

import (
	"math"
	"time"

	"github.com/newspilot/newspilot/internal/models"
)

// Factor scorers. Each maps one slice of the NLP analysis onto [0, 1].
// Sections the analyzer omitted score as neutral defaults so a sparse
// analysis still produces a usable score.

func sentimentScore(s *models.Sentiment) float64 {
	if s == nil {
		return 0.5
	}
	switch {
	case s.Score > 0.6:
		// Boost clearly positive articles
		return math.Min(s.Score*1.3, 1.0)
	case s.Score < 0.4:
		// Penalize negative ones
		return s.Score * 0.7
	default:
		return s.Score
	}
}

func qualityScore(q *models.ContentQuality) float64 {
	if q == nil {
		return 0.5
	}
	score := q.OverallScore
	if q.AvgSentenceLength >= 10 && q.AvgSentenceLength <= 20 {
		score += 0.1
	}
	if q.SentenceCount >= 5 && q.SentenceCount <= 50 {
		score += 0.05
	}
	return math.Min(score, 1.0)
}

func engagementScore(e *models.Engagement) float64 {
	if e == nil {
		return 0.5
	}
	score := 0.3
	if e.TitleLength >= 6 && e.TitleLength <= 12 {
		score += 0.15
	}
	if e.HasNumbers {
		score += 0.1
	}
	if e.HasQuestion {
		score += 0.05
	}
	score += math.Min(0.05*float64(e.TriggerWordCount), 0.15)
	switch {
	case e.ContentLength >= 200 && e.ContentLength <= 1000:
		score += 0.1
	case e.ContentLength > 1000:
		score += 0.05
	}
	score += math.Min(0.02*float64(e.QuotationCount), 0.08)
	return math.Min(score, 1.0)
}

// freshnessScore decays with article age. An unknown publication time is
// treated as fresh rather than stale.
func freshnessScore(now, published time.Time) float64 {
	if published.IsZero() {
		return 1.0
	}
	age := now.Sub(published)
	switch {
	case age <= time.Hour:
		return 1.0
	case age <= 6*time.Hour:
		return 0.9
	case age <= 24*time.Hour:
		return 0.7
	case age <= 48*time.Hour:
		return 0.5
	case age <= 7*24*time.Hour:
		return 0.3
	default:
		return 0.1
	}
}

// entityScore rewards entity-rich articles. A nil slice means the analyzer
// produced no entity section and scores higher than a confirmed-empty one.
func entityScore(entities []string) float64 {
	if entities == nil {
		return 0.3
	}
	switch n := len(entities); {
	case n >= 8:
		return 1.0
	case n >= 5:
		return 0.8
	case n >= 3:
		return 0.6
	case n >= 1:
		return 0.4
	default:
		return 0.2
	}
}

// readabilityScore prefers medium complexity, which reads best on social
// feeds.
func readabilityScore(r *models.Readability) float64 {
	if r == nil {
		return 0.5
	}
	switch r.Level {
	case "easy":
		return 0.9
	case "medium":
		return 1.0
	default:
		return 0.6
	}
}

func urgencyScore(urgency float64) float64 {
	return math.Min(urgency*1.2, 1.0)
}
