package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/newspilot/newspilot/internal/config"
	"github.com/newspilot/newspilot/internal/curator"
	"github.com/newspilot/newspilot/internal/notifications"
)

// Service handles scheduling of curation and posting tasks
type Service struct {
	config         *config.Config
	curatorService *curator.Service
	notifier       notifications.Notifier
	cron           *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, curatorService *curator.Service, notifier notifications.Notifier) *Service {
	return &Service{
		config:         cfg,
		curatorService: curatorService,
		notifier:       notifier,
		cron:           cron.New(cron.WithSeconds(), cron.WithLocation(location(cfg.TimeZone))),
	}
}

// Start registers the cron jobs and begins running them
func (s *Service) Start() error {
	var cronExpression string

	switch s.config.CurationSchedule {
	case "daily":
		// Run daily at 9 AM
		cronExpression = "0 0 9 * * *"
	default:
		// Default to hourly, on the hour
		cronExpression = "0 0 * * * *"
	}

	_, err := s.cron.AddFunc(cronExpression, func() {
		logrus.Info("Starting scheduled curation run")
		if _, err := s.curatorService.RunCuration(); err != nil {
			s.reportFailure("Curation run failed", err)
		}
	})
	if err != nil {
		return err
	}

	if s.config.EnableAutoPosting {
		// Run at half past, after the top-of-hour curation has scored
		_, err = s.cron.AddFunc("0 30 * * * *", func() {
			logrus.Info("Starting scheduled auto-post run")
			if _, err := s.curatorService.RunAutoPost(); err != nil {
				s.reportFailure("Auto-post run failed", err)
			}
		})
		if err != nil {
			return err
		}
	}

	// Sweep for due scheduled posts every minute
	_, err = s.cron.AddFunc("0 * * * * *", func() {
		if err := s.curatorService.RunDuePosts(); err != nil {
			s.reportFailure("Scheduled posts failed", err)
		}
	})
	if err != nil {
		return err
	}

	// Prune articles past retention nightly at 3 AM
	_, err = s.cron.AddFunc("0 0 3 * * *", func() {
		logrus.Info("Starting scheduled cleanup run")
		if err := s.curatorService.RunCleanup(); err != nil {
			s.reportFailure("Cleanup run failed", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s curation (auto-posting: %t)", s.config.CurationSchedule, s.config.EnableAutoPosting)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}

func (s *Service) reportFailure(subject string, err error) {
	logrus.Errorf("%s: %v", subject, err)
	if alertErr := s.notifier.SendAlert(subject, err.Error()); alertErr != nil {
		logrus.Errorf("Failed to send alert: %v", alertErr)
	}
}

func location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logrus.Warnf("Unknown timezone %q, scheduling in UTC", name)
		return time.UTC
	}
	return loc
}
