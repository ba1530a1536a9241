package ranking

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/newspilot/newspilot/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrMissingAnalysis is returned when an article reaches the engine without
// an attached NLP analysis.
var ErrMissingAnalysis = errors.New("article has no analysis attached")

// Engine scores and ranks articles. It is safe for concurrent use: the
// weight and multiplier tables are replaced wholesale on update, never
// mutated in place.
type Engine struct {
	mu          sync.RWMutex
	weights     map[string]float64
	multipliers map[string]float64

	nowFn func() time.Time
}

// NewEngine creates an engine with the given weight and multiplier tables.
// Nil tables fall back to the built-in defaults.
func NewEngine(weights, multipliers map[string]float64) *Engine {
	if weights == nil {
		weights = DefaultWeights()
	}
	if multipliers == nil {
		multipliers = DefaultMultipliers()
	}
	return &Engine{
		weights:     copyTable(weights),
		multipliers: copyTable(multipliers),
		nowFn:       time.Now,
	}
}

// Score computes the 0-10 posting score for one article. The same article
// and tables always produce the same score, except for freshness decay over
// real time. A scoring failure on malformed analysis data degrades to
// NeutralScore instead of poisoning the whole ranking run.
func (e *Engine) Score(article *models.Article) (score float64, err error) {
	if article.Analysis == nil {
		return 0, ErrMissingAnalysis
	}

	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("Scoring article %s failed: %v, assigning neutral score", article.ID, r)
			score, err = NeutralScore, nil
		}
	}()

	e.mu.RLock()
	weights := e.weights
	multipliers := e.multipliers
	e.mu.RUnlock()

	factors := factorScores(article, e.nowFn())
	multiplier := topicMultiplier(article.Analysis.Topics, multipliers)
	return compose(factors, weights, multiplier, article.Analysis.TitleAnalysis), nil
}

// Rank scores every article that does not carry a score yet and returns the
// scorable ones in descending score order. Articles that cannot be scored
// are dropped with a warning. Ordering among equal scores is unspecified.
func (e *Engine) Rank(articles []*models.Article) []*models.Article {
	ranked := make([]*models.Article, 0, len(articles))
	for _, article := range articles {
		if article.Score == nil {
			score, err := e.Score(article)
			if err != nil {
				logrus.Warnf("Dropping article %s from ranking: %v", article.ID, err)
				continue
			}
			article.Score = &score
		}
		ranked = append(ranked, article)
	}

	sort.Slice(ranked, func(i, j int) bool {
		return *ranked[i].Score > *ranked[j].Score
	})
	return ranked
}

// SelectCandidates filters a ranked list down to the articles worth posting:
// score at least minScore, at most maxCount of them. A maxCount of zero or
// less means no cap.
func SelectCandidates(ranked []*models.Article, minScore float64, maxCount int) []*models.Article {
	var candidates []*models.Article
	for _, article := range ranked {
		if article.Score == nil || *article.Score < minScore {
			continue
		}
		if maxCount > 0 && len(candidates) >= maxCount {
			break
		}
		candidates = append(candidates, article)
	}
	return candidates
}

// UpdateWeights merges the given factor weights into the current table. The
// merge is all-or-nothing: one unknown factor or negative weight rejects the
// whole update. A merged table that no longer sums to 1.0 is accepted with a
// warning.
func (e *Engine) UpdateWeights(updates map[string]float64) error {
	if len(updates) == 0 {
		return nil
	}
	for factor, weight := range updates {
		if !IsFactor(factor) {
			return fmt.Errorf("unknown ranking factor %q", factor)
		}
		if weight < 0 {
			return fmt.Errorf("ranking factor %q has negative weight %.2f", factor, weight)
		}
	}

	e.mu.Lock()
	merged := copyTable(e.weights)
	for factor, weight := range updates {
		merged[factor] = weight
	}
	e.weights = merged
	e.mu.Unlock()

	sum := 0.0
	for _, weight := range merged {
		sum += weight
	}
	if math.Abs(sum-1.0) > 0.01 {
		logrus.Warnf("Ranking weights now sum to %.2f, scores will be skewed", sum)
	}
	return nil
}

// Weights returns a copy of the current factor weights.
func (e *Engine) Weights() map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return copyTable(e.weights)
}

func copyTable(table map[string]float64) map[string]float64 {
	copied := make(map[string]float64, len(table))
	for k, v := range table {
		copied[k] = v
	}
	return copied
}
