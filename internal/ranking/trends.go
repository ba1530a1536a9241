package ranking

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// PerformanceSample pairs an article's score with the engagement it actually
// earned after posting.
type PerformanceSample struct {
	ArticleID  string  `json:"article_id"`
	Score      float64 `json:"score"`
	Engagement float64 `json:"engagement_rate"`
	Clicks     int     `json:"clicks"`
	Shares     int     `json:"shares"`
}

// TrendReport summarizes how well scores predicted engagement.
type TrendReport struct {
	TotalArticles    int     `json:"total_articles_analyzed"`
	ScoreCorrelation float64 `json:"score_engagement_correlation"`
	AvgScoreTop      float64 `json:"avg_score_top_performers"`
	AvgScoreBottom   float64 `json:"avg_score_bottom_performers"`
	Recommendation   string  `json:"recommendation,omitempty"`
}

// AnalyzeTrends correlates historical scores with observed engagement and
// recommends a weight review when the two disagree. Returns nil when there
// are no samples.
func AnalyzeTrends(samples []PerformanceSample) *TrendReport {
	if len(samples) == 0 {
		return nil
	}

	scores := make([]float64, len(samples))
	engagement := make([]float64, len(samples))
	for i, sample := range samples {
		scores[i] = sample.Score
		engagement[i] = sample.Engagement
	}

	// Correlation is NaN when either series is constant; report 0 so the
	// value survives JSON encoding.
	correlation := stat.Correlation(scores, engagement, nil)
	if math.IsNaN(correlation) {
		correlation = 0
	}

	sorted := make([]PerformanceSample, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Engagement > sorted[j].Engagement
	})

	n := 5
	if len(sorted) < n {
		n = len(sorted)
	}
	top := make([]float64, 0, n)
	for _, sample := range sorted[:n] {
		top = append(top, sample.Score)
	}
	bottom := make([]float64, 0, n)
	for _, sample := range sorted[len(sorted)-n:] {
		bottom = append(bottom, sample.Score)
	}

	report := &TrendReport{
		TotalArticles:    len(samples),
		ScoreCorrelation: correlation,
		AvgScoreTop:      stat.Mean(top, nil),
		AvgScoreBottom:   stat.Mean(bottom, nil),
	}
	if report.ScoreCorrelation < 0.5 {
		report.Recommendation = "scores are weak predictors of engagement, consider adjusting ranking weights"
	}
	return report
}
