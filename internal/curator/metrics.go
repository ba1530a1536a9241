package curator

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	articlesFetchedCounter prometheus.Counter
	articlesScoredCounter  prometheus.Counter
	articlesPostedCounter  prometheus.Counter
	runErrorsCounter       prometheus.Counter
)

func init() {
	articlesFetchedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newspilot_articles_fetched_total",
			Help: "Total number of articles fetched from feeds.",
		},
	)
	articlesScoredCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newspilot_articles_scored_total",
			Help: "Total number of articles scored.",
		},
	)
	articlesPostedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newspilot_articles_posted_total",
			Help: "Total number of articles posted to platforms.",
		},
	)
	runErrorsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "newspilot_run_errors_total",
			Help: "Total number of errors across curation and posting runs.",
		},
	)
	prometheus.MustRegister(articlesFetchedCounter, articlesScoredCounter, articlesPostedCounter, runErrorsCounter)
}
