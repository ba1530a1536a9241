package notifications

import "github.com/newspilot/newspilot/internal/models"

// Notifier defines the contract for operator-facing delivery channels
type Notifier interface {
	SendDigest(digest *models.Digest) error
	SendAlert(subject, message string) error
}
