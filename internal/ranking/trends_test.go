package ranking

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeTrendsNoSamples(t *testing.T) {
	assert.Nil(t, AnalyzeTrends(nil))
	assert.Nil(t, AnalyzeTrends([]PerformanceSample{}))
}

func TestAnalyzeTrendsStrongCorrelation(t *testing.T) {
	samples := make([]PerformanceSample, 10)
	for i := range samples {
		score := float64(i)
		samples[i] = PerformanceSample{
			ArticleID:  fmt.Sprintf("art_%d", i),
			Score:      score,
			Engagement: score * 0.01,
		}
	}

	report := AnalyzeTrends(samples)
	require.NotNil(t, report)

	assert.Equal(t, 10, report.TotalArticles)
	assert.InDelta(t, 1.0, report.ScoreCorrelation, 1e-9)
	assert.Empty(t, report.Recommendation)

	// Engagement tracks score exactly, so the top five carry the five
	// highest scores and the bottom five the five lowest.
	assert.InDelta(t, 7.0, report.AvgScoreTop, 1e-9)
	assert.InDelta(t, 2.0, report.AvgScoreBottom, 1e-9)
}

func TestAnalyzeTrendsInverseCorrelation(t *testing.T) {
	samples := make([]PerformanceSample, 10)
	for i := range samples {
		samples[i] = PerformanceSample{
			ArticleID:  fmt.Sprintf("art_%d", i),
			Score:      float64(i),
			Engagement: float64(10 - i),
		}
	}

	report := AnalyzeTrends(samples)
	require.NotNil(t, report)

	assert.InDelta(t, -1.0, report.ScoreCorrelation, 1e-9)
	assert.NotEmpty(t, report.Recommendation)
}

func TestAnalyzeTrendsConstantEngagement(t *testing.T) {
	samples := []PerformanceSample{
		{ArticleID: "art_1", Score: 3.0, Engagement: 0.05},
		{ArticleID: "art_2", Score: 7.0, Engagement: 0.05},
		{ArticleID: "art_3", Score: 9.0, Engagement: 0.05},
	}

	report := AnalyzeTrends(samples)
	require.NotNil(t, report)

	// A constant series has no defined correlation; it reports as zero.
	assert.Equal(t, 0.0, report.ScoreCorrelation)
	assert.NotEmpty(t, report.Recommendation)
}

func TestAnalyzeTrendsFewerSamplesThanWindow(t *testing.T) {
	samples := []PerformanceSample{
		{ArticleID: "art_1", Score: 4.0, Engagement: 0.02},
		{ArticleID: "art_2", Score: 8.0, Engagement: 0.09},
	}

	report := AnalyzeTrends(samples)
	require.NotNil(t, report)

	assert.Equal(t, 2, report.TotalArticles)
	assert.InDelta(t, 6.0, report.AvgScoreTop, 1e-9)
	assert.InDelta(t, 6.0, report.AvgScoreBottom, 1e-9)
}
