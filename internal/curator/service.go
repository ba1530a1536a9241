package curator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/newspilot/newspilot/internal/archive"
	"github.com/newspilot/newspilot/internal/config"
	"github.com/newspilot/newspilot/internal/ingest"
	"github.com/newspilot/newspilot/internal/models"
	"github.com/newspilot/newspilot/internal/nlp"
	"github.com/newspilot/newspilot/internal/notifications"
	"github.com/newspilot/newspilot/internal/ranking"
	"github.com/newspilot/newspilot/internal/storage"
)

var (
	// ErrScheduleNotFound is returned when no queued post carries the ID.
	ErrScheduleNotFound = errors.New("scheduled post not found")

	// ErrSchedulePast is returned when the requested posting time has
	// already passed.
	ErrSchedulePast = errors.New("scheduled time is not in the future")
)

// Poster publishes one article to a set of platforms.
type Poster interface {
	Post(ctx context.Context, article *models.Article) models.PostResult
	PostTo(ctx context.Context, article *models.Article, requested []string) models.PostResult
}

// Service orchestrates the curation pipeline: fetch, analyze, score,
// store, post, report.
type Service struct {
	config   *config.Config
	store    storage.Store
	engine   *ranking.Engine
	analyzer nlp.Analyzer
	poster   Poster
	notifier notifications.Notifier
	archive  archive.Archive
	sources  []ingest.Source

	mu        sync.RWMutex
	metrics   *Metrics
	scheduled map[string]*models.ScheduledPost

	nowFn    func() time.Time
	newRunID func() string
}

// Metrics holds run metrics surfaced on the metrics endpoint
type Metrics struct {
	LastRun         time.Time      `json:"last_run"`
	LastRunKind     string         `json:"last_run_kind"`
	LastRunDuration string         `json:"last_run_duration"`
	ArticlesFetched int            `json:"articles_fetched"`
	ArticlesScored  int            `json:"articles_scored"`
	ArticlesPosted  int            `json:"articles_posted"`
	SourceMetrics   map[string]int `json:"source_metrics"`
	ErrorCount      int            `json:"error_count"`
}

// NewService creates a new curation service
func NewService(cfg *config.Config, store storage.Store, engine *ranking.Engine, poster Poster, notifier notifications.Notifier, arch archive.Archive) *Service {
	return &Service{
		config:   cfg,
		store:    store,
		engine:   engine,
		analyzer: nlp.NewClient(cfg),
		poster:   poster,
		notifier: notifier,
		archive:  arch,
		sources:  ingest.BuildSources(cfg),
		metrics: &Metrics{
			SourceMetrics: make(map[string]int),
		},
		scheduled: make(map[string]*models.ScheduledPost),
		nowFn:     time.Now,
		newRunID:  uuid.NewString,
	}
}

// Engine exposes the ranking engine for the weights endpoints.
func (s *Service) Engine() *ranking.Engine {
	return s.engine
}

// RunCuration performs one curation cycle: fetch all feeds concurrently,
// persist new articles, attach analysis and score whatever is still
// unscored, then report.
func (s *Service) RunCuration() (*models.RunReport, error) {
	start := s.nowFn()
	runID := s.newRunID()
	logrus.Infof("Starting curation run %s", runID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	window := s.lookbackWindow()
	logrus.Infof("Searching %d feeds for articles in the last %v", len(s.sources), window)

	var wg sync.WaitGroup
	articlesChan := make(chan []models.Article, len(s.sources))
	errorsChan := make(chan error, len(s.sources))

	for _, source := range s.sources {
		if !source.IsEnabled() {
			logrus.Debugf("Skipping disabled feed %s", source.GetName())
			continue
		}

		wg.Add(1)
		go func(src ingest.Source) {
			defer wg.Done()

			articles, err := src.FetchArticles(ctx, window)
			if err != nil {
				logrus.Errorf("Error fetching from %s: %v", src.GetName(), err)
				errorsChan <- fmt.Errorf("%s: %w", src.GetName(), err)
				return
			}

			logrus.Infof("Found %d articles from %s", len(articles), src.GetName())
			articlesChan <- articles
		}(source)
	}

	// Close channels when all goroutines complete
	go func() {
		wg.Wait()
		close(articlesChan)
		close(errorsChan)
	}()

	var fetched []models.Article
	for articles := range articlesChan {
		fetched = append(fetched, articles...)
	}

	var failures []string
	for err := range errorsChan {
		failures = append(failures, err.Error())
	}
	errorCount := len(failures)

	logrus.Infof("Collected %d articles from all feeds", len(fetched))

	scored := 0
	sourceCounts := make(map[string]int)
	for i := range fetched {
		article := &fetched[i]
		sourceCounts[article.Source]++

		ok, err := s.processArticle(ctx, article)
		if err != nil {
			logrus.Errorf("Failed to process article %q: %v", article.Title, err)
			failures = append(failures, err.Error())
			errorCount++
			continue
		}
		if ok {
			scored++
		}
	}

	report := &models.RunReport{
		RunID:      runID,
		Kind:       "curation",
		StartedAt:  start,
		FinishedAt: s.nowFn(),
		Fetched:    len(fetched),
		Scored:     scored,
		Errors:     errorCount,
	}

	articlesFetchedCounter.Add(float64(report.Fetched))
	articlesScoredCounter.Add(float64(report.Scored))
	runErrorsCounter.Add(float64(report.Errors))

	s.updateMetrics(report, sourceCounts)

	logrus.Infof("Curation run %s completed in %v: %d fetched, %d scored, %d errors",
		runID, report.FinishedAt.Sub(report.StartedAt), report.Fetched, report.Scored, report.Errors)

	return report, s.finishRun(ctx, report, "curation run", failures)
}

// processArticle persists one fetched article and scores it when it is
// new. Returns true when a score was attached.
func (s *Service) processArticle(ctx context.Context, article *models.Article) (bool, error) {
	id, err := s.store.SaveArticle(ctx, article)
	if err != nil {
		return false, fmt.Errorf("failed to save article: %w", err)
	}

	stored, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to load article %s: %w", id, err)
	}

	// Re-fetched articles that already carry a score or reached a
	// terminal state are left alone.
	if stored.Score != nil || stored.Status.Terminal() {
		return false, nil
	}

	analysis := stored.Analysis
	if analysis == nil {
		if !s.analyzer.IsEnabled() {
			logrus.Debugf("No analyzer configured; article %s stays unscored", id)
			return false, nil
		}

		analysis, err = s.analyzer.Analyze(ctx, stored.Title, stored.Content)
		if err != nil {
			return false, fmt.Errorf("analyzer failed for article %s: %w", id, err)
		}
	}

	stored.Analysis = analysis
	score, err := s.engine.Score(stored)
	if err != nil {
		logrus.Warnf("Skipping unscorable article %s: %v", id, err)
		return false, nil
	}

	if err := s.store.UpdateScore(ctx, id, score, analysis); err != nil {
		return false, fmt.Errorf("failed to store score for article %s: %w", id, err)
	}

	logrus.Debugf("Scored article %s: %.2f", id, score)
	return true, nil
}

// RunAutoPost selects the best pending candidates and posts them, bounded
// by the per-run batch size and the global daily cap.
func (s *Service) RunAutoPost() (*models.RunReport, error) {
	start := s.nowFn()
	runID := s.newRunID()
	logrus.Infof("Starting auto-post run %s", runID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read store stats: %w", err)
	}

	remaining := s.config.MaxPostsPerDay - stats.PostedToday
	if remaining <= 0 {
		logrus.Infof("Daily posting cap of %d reached; skipping auto-post run", s.config.MaxPostsPerDay)
		return &models.RunReport{
			RunID:      runID,
			Kind:       "autopost",
			StartedAt:  start,
			FinishedAt: s.nowFn(),
		}, nil
	}

	limit := s.config.MaxPostsPerRun
	if remaining < limit {
		limit = remaining
	}

	candidates, err := s.store.CandidatesForPosting(ctx, s.config.MinPostingScore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select candidates: %w", err)
	}

	logrus.Infof("Selected %d candidates (min score %.1f, limit %d)", len(candidates), s.config.MinPostingScore, limit)

	posted := 0
	errorCount := 0
	var failures []string
	var results []models.PostResult

	for _, article := range candidates {
		result := s.poster.Post(ctx, article)
		results = append(results, result)

		if !result.Success {
			for _, pr := range result.Results {
				if !pr.Posted && pr.Reason != "" {
					failures = append(failures, fmt.Sprintf("%s: %s", pr.Platform, pr.Reason))
				}
			}
			continue
		}

		posted++
		if err := s.store.UpdateStatus(ctx, article.ID, models.StatusPosted, result.PostedPlatforms()); err != nil {
			logrus.Errorf("Failed to mark article %s as posted: %v", article.ID, err)
			failures = append(failures, fmt.Sprintf("%s: %v", article.ID, err))
			errorCount++
		}
	}

	report := &models.RunReport{
		RunID:       runID,
		Kind:        "autopost",
		StartedAt:   start,
		FinishedAt:  s.nowFn(),
		Posted:      posted,
		Errors:      errorCount,
		PostResults: results,
	}

	articlesPostedCounter.Add(float64(report.Posted))
	runErrorsCounter.Add(float64(report.Errors))

	s.updateMetrics(report, nil)

	logrus.Infof("Auto-post run %s completed: %d posted, %d errors", runID, report.Posted, report.Errors)

	return report, s.finishRun(ctx, report, "auto-post run", failures)
}

// PostArticle posts one article immediately. An empty platform list means
// every enabled platform.
func (s *Service) PostArticle(ctx context.Context, id string, platforms []string) (*models.PostResult, error) {
	article, err := s.store.GetArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.Status.Terminal() {
		return nil, fmt.Errorf("article %s is already %s: %w", id, article.Status, storage.ErrTerminalState)
	}

	result := s.poster.PostTo(ctx, article, platforms)
	if result.Success {
		articlesPostedCounter.Inc()
		if err := s.store.UpdateStatus(ctx, id, models.StatusPosted, result.PostedPlatforms()); err != nil {
			logrus.Errorf("Failed to mark article %s as posted: %v", id, err)
		}
	}

	return &result, nil
}

// SchedulePost queues an article to be posted at a future time.
func (s *Service) SchedulePost(ctx context.Context, articleID string, platforms []string, at time.Time) (*models.ScheduledPost, error) {
	article, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if article.Status.Terminal() {
		return nil, fmt.Errorf("article %s is already %s: %w", articleID, article.Status, storage.ErrTerminalState)
	}
	if !at.After(s.nowFn()) {
		return nil, fmt.Errorf("scheduled time %s: %w", at.Format(time.RFC3339), ErrSchedulePast)
	}

	post := &models.ScheduledPost{
		ID:        models.NewScheduleID(articleID, at),
		ArticleID: articleID,
		Platforms: platforms,
		At:        at,
		CreatedAt: s.nowFn(),
	}

	s.mu.Lock()
	s.scheduled[post.ID] = post
	s.mu.Unlock()

	logrus.Infof("Scheduled post %s for article %s at %s", post.ID, articleID, at.Format(time.RFC3339))
	return post, nil
}

// ScheduledPosts lists queued posts, soonest first.
func (s *Service) ScheduledPosts() []*models.ScheduledPost {
	s.mu.RLock()
	posts := make([]*models.ScheduledPost, 0, len(s.scheduled))
	for _, post := range s.scheduled {
		posts = append(posts, post)
	}
	s.mu.RUnlock()

	sort.Slice(posts, func(i, j int) bool {
		return posts[i].At.Before(posts[j].At)
	})
	return posts
}

// CancelScheduledPost removes a queued post.
func (s *Service) CancelScheduledPost(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scheduled[id]; !ok {
		return ErrScheduleNotFound
	}
	delete(s.scheduled, id)
	logrus.Infof("Cancelled scheduled post %s", id)
	return nil
}

// RunDuePosts executes queued posts whose time has come. Due posts are
// dequeued before posting, so a failed attempt is not retried forever.
func (s *Service) RunDuePosts() error {
	now := s.nowFn()

	s.mu.Lock()
	var due []*models.ScheduledPost
	for id, post := range s.scheduled {
		if !post.At.After(now) {
			due = append(due, post)
			delete(s.scheduled, id)
		}
	}
	s.mu.Unlock()

	if len(due) == 0 {
		return nil
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].At.Before(due[j].At)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var errs []string
	for _, post := range due {
		logrus.Infof("Executing scheduled post %s for article %s", post.ID, post.ArticleID)

		result, err := s.PostArticle(ctx, post.ArticleID, post.Platforms)
		if err != nil {
			logrus.Errorf("Scheduled post %s failed: %v", post.ID, err)
			errs = append(errs, fmt.Sprintf("%s: %v", post.ID, err))
			continue
		}
		if !result.Success {
			logrus.Warnf("Scheduled post %s: no platform accepted article %s", post.ID, post.ArticleID)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("scheduled post errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// RunCleanup removes articles older than the configured retention.
func (s *Service) RunCleanup() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := s.nowFn().AddDate(0, 0, -s.config.RetentionDays)
	removed, err := s.store.Cleanup(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	logrus.Infof("Cleanup removed %d articles older than %s", removed, cutoff.Format("2006-01-02"))
	return nil
}

// lookbackWindow sizes the fetch window to the curation schedule, with an
// hour of overlap so slow feeds are not missed between runs.
func (s *Service) lookbackWindow() time.Duration {
	switch s.config.CurationSchedule {
	case "hourly":
		return 2 * time.Hour
	default:
		return 24 * time.Hour
	}
}

func (s *Service) finishRun(ctx context.Context, report *models.RunReport, period string, failures []string) error {
	if s.archive != nil {
		if err := s.archive.StoreReport(report); err != nil {
			logrus.Errorf("Failed to archive run report %s: %v", report.RunID, err)
		}
	}

	digest := s.buildDigest(ctx, period, report, failures)
	if err := s.notifier.SendDigest(digest); err != nil {
		return fmt.Errorf("failed to send digest: %w", err)
	}
	return nil
}

func (s *Service) buildDigest(ctx context.Context, period string, report *models.RunReport, failures []string) *models.Digest {
	digest := &models.Digest{
		GeneratedAt:     report.FinishedAt,
		Period:          period,
		ArticlesCurated: report.Fetched,
		ArticlesScored:  report.Scored,
		ArticlesPosted:  report.Posted,
		Failures:        failures,
	}

	if report.Posted > 0 {
		counts := make(map[string]int)
		for _, postResult := range report.PostResults {
			for _, platformResult := range postResult.Results {
				if platformResult.Posted {
					counts[platformResult.Platform]++
				}
			}
		}
		digest.PostedByPlatform = counts
	}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		logrus.Warnf("Failed to read store stats for digest: %v", err)
		return digest
	}
	digest.AverageScore = stats.AverageScore
	digest.TopArticles = stats.TopArticles

	return digest
}

func (s *Service) updateMetrics(report *models.RunReport, sourceCounts map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.LastRun = report.FinishedAt
	s.metrics.LastRunKind = report.Kind
	s.metrics.LastRunDuration = report.FinishedAt.Sub(report.StartedAt).String()
	s.metrics.ErrorCount = report.Errors

	switch report.Kind {
	case "curation":
		s.metrics.ArticlesFetched = report.Fetched
		s.metrics.ArticlesScored = report.Scored
		s.metrics.SourceMetrics = make(map[string]int)
		for source, count := range sourceCounts {
			s.metrics.SourceMetrics[source] += count
		}
	case "autopost":
		s.metrics.ArticlesPosted += report.Posted
	}
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
