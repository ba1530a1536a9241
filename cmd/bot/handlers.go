package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/newspilot/newspilot/internal/archive"
	"github.com/newspilot/newspilot/internal/config"
	"github.com/newspilot/newspilot/internal/curator"
	"github.com/newspilot/newspilot/internal/models"
	"github.com/newspilot/newspilot/internal/ranking"
	"github.com/newspilot/newspilot/internal/ratelimit"
	"github.com/newspilot/newspilot/internal/storage"
)

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func statsHandler(svc *curator.Service, gate *ratelimit.Gate, store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeStats, err := store.Stats(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"platforms": gate.Stats(),
			"store":     storeStats,
			"runs":      json.RawMessage(svc.GetMetrics()),
		})
	}
}

func listArticlesHandler(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		filter := storage.Filter{Source: query.Get("source")}
		if status := query.Get("status"); status != "" {
			parsed := models.ArticleStatus(status)
			switch parsed {
			case models.StatusPending, models.StatusPosted, models.StatusRejected, models.StatusSkipped:
				filter.Status = parsed
			default:
				writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", status))
				return
			}
		}
		if raw := query.Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "limit must be an integer")
				return
			}
			filter.Limit = parsed
		}

		minScore := math.Inf(-1)
		if raw := query.Get("min_score"); raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "min_score must be a number")
				return
			}
			minScore = parsed
		}

		articles, err := store.GetArticles(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		if !math.IsInf(minScore, -1) {
			kept := articles[:0]
			for _, article := range articles {
				if article.Score != nil && *article.Score >= minScore {
					kept = append(kept, article)
				}
			}
			articles = kept
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"count":    len(articles),
			"articles": articles,
		})
	}
}

// submitArticleRequest mirrors the article JSON shape but takes the
// published date as a free-form string.
type submitArticleRequest struct {
	Title         string           `json:"title"`
	URL           string           `json:"url"`
	Content       string           `json:"content"`
	Summary       string           `json:"summary"`
	Source        string           `json:"source"`
	PublishedDate string           `json:"published_date"`
	Analysis      *models.Analysis `json:"nlp_analysis"`
}

func createArticleHandler(store storage.Store, engine *ranking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitArticleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		if req.Title == "" || req.URL == "" {
			writeError(w, http.StatusBadRequest, "title and url are required")
			return
		}

		article := &models.Article{
			Title:     req.Title,
			URL:       req.URL,
			Content:   req.Content,
			Summary:   req.Summary,
			Source:    req.Source,
			ScrapedAt: time.Now(),
			Status:    models.StatusPending,
			Analysis:  req.Analysis,
		}
		if req.PublishedDate != "" {
			published, err := dateparse.ParseAny(req.PublishedDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("unparseable published_date %q", req.PublishedDate))
				return
			}
			article.PublishedAt = published
		}

		id, err := store.SaveArticle(r.Context(), article)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		response := map[string]interface{}{"id": id}
		if req.Analysis != nil {
			if score, err := engine.Score(article); err == nil {
				if err := store.UpdateScore(r.Context(), id, score, req.Analysis); err != nil {
					logrus.Warnf("Submitted article %s was not rescored: %v", id, err)
				} else {
					response["score"] = score
				}
			}
		}

		writeJSON(w, http.StatusCreated, response)
	}
}

func candidatesHandler(store storage.Store, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		minScore := cfg.MinPostingScore
		if raw := query.Get("min_score"); raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "min_score must be a number")
				return
			}
			minScore = parsed
		}
		limit := 0
		if raw := query.Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "limit must be an integer")
				return
			}
			limit = parsed
		}

		candidates, err := store.CandidatesForPosting(r.Context(), minScore, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"count":      len(candidates),
			"candidates": candidates,
		})
	}
}

func postArticleHandler(svc *curator.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Platforms []string `json:"platforms"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}

		result, err := svc.PostArticle(r.Context(), mux.Vars(r)["id"], req.Platforms)
		if err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func triggerHandler(svc *curator.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			if _, err := svc.RunCuration(); err != nil {
				logrus.Errorf("Manual curation trigger failed: %v", err)
			}
		}()

		writeJSON(w, http.StatusOK, map[string]string{"message": "Curation run triggered"})
	}
}

func getWeightsHandler(engine *ranking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"weights": engine.Weights()})
	}
}

func updateWeightsHandler(engine *ranking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var updates map[string]float64
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}

		if err := engine.UpdateWeights(updates); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		weights := engine.Weights()
		sum := 0.0
		for _, weight := range weights {
			sum += weight
		}

		response := map[string]interface{}{"weights": weights}
		if math.Abs(sum-1.0) > 0.01 {
			response["warning"] = fmt.Sprintf("weights sum to %.2f, expected 1.0", sum)
		}
		writeJSON(w, http.StatusOK, response)
	}
}

func trendsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var samples []ranking.PerformanceSample
		if err := json.NewDecoder(r.Body).Decode(&samples); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}

		report := ranking.AnalyzeTrends(samples)
		if report == nil {
			writeError(w, http.StatusBadRequest, "no samples provided")
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func scheduleArticleHandler(svc *curator.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Platforms []string `json:"platforms"`
			At        string   `json:"scheduled_time"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}
		if req.At == "" {
			writeError(w, http.StatusBadRequest, "scheduled_time is required")
			return
		}
		at, err := dateparse.ParseAny(req.At)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unparseable scheduled_time %q", req.At))
			return
		}

		post, err := svc.SchedulePost(r.Context(), mux.Vars(r)["id"], req.Platforms, at)
		if err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, post)
	}
}

func listScheduledHandler(svc *curator.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts := svc.ScheduledPosts()
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"count":     len(posts),
			"scheduled": posts,
		})
	}
}

func cancelScheduledHandler(svc *curator.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CancelScheduledPost(mux.Vars(r)["id"]); err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listReportsHandler(arch archive.Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if arch == nil {
			writeError(w, http.StatusNotFound, "no report archive configured")
			return
		}

		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "reports/"
		}
		names, err := arch.List(prefix)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"count":   len(names),
			"reports": names,
		})
	}
}

func getReportHandler(arch archive.Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if arch == nil {
			writeError(w, http.StatusNotFound, "no report archive configured")
			return
		}

		data, err := arch.Retrieve(mux.Vars(r)["name"])
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, curator.ErrScheduleNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrTerminalState):
		return http.StatusConflict
	case errors.Is(err, curator.ErrSchedulePast):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
