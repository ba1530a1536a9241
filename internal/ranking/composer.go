package ranking

import (
	"math"
	"time"

	"github.com/newspilot/newspilot/internal/models"
)

// NeutralScore is assigned when scoring fails on malformed analysis input.
const NeutralScore = 5.0

// Factors is the closed set of scoring factors, in weight order.
var Factors = []string{
	"sentiment",
	"content_quality",
	"engagement_potential",
	"freshness",
	"entity_richness",
	"readability",
	"urgency",
}

// DefaultWeights returns the built-in factor weights. They sum to 1.0.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"sentiment":            0.20,
		"content_quality":      0.18,
		"engagement_potential": 0.17,
		"freshness":            0.15,
		"entity_richness":      0.12,
		"readability":          0.10,
		"urgency":              0.08,
	}
}

// DefaultMultipliers returns the built-in topic multipliers.
func DefaultMultipliers() map[string]float64 {
	return map[string]float64{
		"technology":    1.2,
		"business":      1.1,
		"health":        1.1,
		"politics":      1.0,
		"sports":        0.9,
		"entertainment": 0.8,
	}
}

// IsFactor reports whether name is a recognized scoring factor.
func IsFactor(name string) bool {
	for _, factor := range Factors {
		if factor == name {
			return true
		}
	}
	return false
}

// factorScores computes every factor value for one article.
func factorScores(article *models.Article, now time.Time) map[string]float64 {
	a := article.Analysis
	return map[string]float64{
		"sentiment":            sentimentScore(a.Sentiment),
		"content_quality":      qualityScore(a.ContentQuality),
		"engagement_potential": engagementScore(a.Engagement),
		"freshness":            freshnessScore(now, article.PublishedAt),
		"entity_richness":      entityScore(a.Entities),
		"readability":          readabilityScore(a.Readability),
		"urgency":              urgencyScore(a.UrgencyScore),
	}
}

// topicMultiplier picks the strongest boost among the article's topics.
// Topics without a configured multiplier count as 1.0, as does an article
// with no topics at all.
func topicMultiplier(topics []string, multipliers map[string]float64) float64 {
	if len(topics) == 0 {
		return 1.0
	}
	best := 0.0
	for _, topic := range topics {
		m, ok := multipliers[topic]
		if !ok {
			m = 1.0
		}
		if m > best {
			best = m
		}
	}
	return best
}

// compose folds the factor values into the final 0-10 score: weighted sum,
// topic multiplier, title bonus, then scale, clamp and round to two decimals.
// Weight entries that name no computed factor are ignored.
func compose(factors, weights map[string]float64, multiplier float64, title *models.TitleAnalysis) float64 {
	weighted := 0.0
	for factor, weight := range weights {
		if value, ok := factors[factor]; ok {
			weighted += value * weight
		}
	}

	score := weighted * multiplier
	if title != nil {
		score += title.EffectivenessScore * 0.5
	}

	score *= 10
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return math.Round(score*100) / 100
}
