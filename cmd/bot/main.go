package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/newspilot/newspilot/internal/archive"
	"github.com/newspilot/newspilot/internal/config"
	"github.com/newspilot/newspilot/internal/curator"
	"github.com/newspilot/newspilot/internal/notifications"
	"github.com/newspilot/newspilot/internal/posting"
	"github.com/newspilot/newspilot/internal/ranking"
	"github.com/newspilot/newspilot/internal/ratelimit"
	"github.com/newspilot/newspilot/internal/scheduler"
	"github.com/newspilot/newspilot/internal/storage"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting NewsPilot")

	for _, warning := range cfg.Warnings() {
		logrus.Warn(warning)
	}

	// Pick the article store
	var store storage.Store
	if cfg.DatabaseDSN != "" {
		store, err = storage.NewPostgresStore(cfg.DatabaseDSN)
		if err != nil {
			logrus.Warnf("Failed to connect to Postgres, falling back to the in-memory store: %v", err)
			store = storage.NewMemoryStore()
		}
	} else {
		store = storage.NewMemoryStore()
	}
	defer store.Close()

	// The report archive is optional
	var reportArchive archive.Archive
	if cfg.StorageAccount != "" {
		azureArchive, err := archive.NewAzureArchive(cfg.StorageAccount, cfg.StorageContainer)
		if err != nil {
			logrus.Warnf("Failed to initialize report archive: %v", err)
		} else {
			reportArchive = azureArchive
		}
	} else {
		logrus.Info("No storage account configured, run reports will not be archived")
	}

	// Initialize the pipeline
	engine := ranking.NewEngine(cfg.RankingWeights, cfg.TopicMultipliers)
	gate := ratelimit.NewGate(cfg.RateLimits)
	coordinator := posting.NewCoordinator(cfg, gate)
	notificationService := notifications.NewService(cfg)
	curatorService := curator.NewService(cfg, store, engine, coordinator, notificationService, reportArchive)

	// Start scheduler
	schedulerService := scheduler.NewService(cfg, curatorService, notificationService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// Set up HTTP server
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stats", statsHandler(curatorService, gate, store)).Methods("GET")
	api.HandleFunc("/articles", listArticlesHandler(store)).Methods("GET")
	api.HandleFunc("/articles", createArticleHandler(store, engine)).Methods("POST")
	api.HandleFunc("/articles/{id}/post", postArticleHandler(curatorService)).Methods("POST")
	api.HandleFunc("/articles/{id}/schedule", scheduleArticleHandler(curatorService)).Methods("POST")
	api.HandleFunc("/candidates", candidatesHandler(store, cfg)).Methods("GET")
	api.HandleFunc("/trigger", triggerHandler(curatorService)).Methods("POST")
	api.HandleFunc("/weights", getWeightsHandler(engine)).Methods("GET")
	api.HandleFunc("/weights", updateWeightsHandler(engine)).Methods("PUT")
	api.HandleFunc("/trends", trendsHandler()).Methods("POST")
	api.HandleFunc("/scheduled", listScheduledHandler(curatorService)).Methods("GET")
	api.HandleFunc("/scheduled/{id}", cancelScheduledHandler(curatorService)).Methods("DELETE")
	api.HandleFunc("/reports", listReportsHandler(reportArchive)).Methods("GET")
	api.HandleFunc("/reports/{name:.+}", getReportHandler(reportArchive)).Methods("GET")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
