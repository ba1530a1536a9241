package archive

import (
	"github.com/newspilot/newspilot/internal/models"
)

// Archive persists run reports outside the article database so they
// survive cleanup and can be audited later
type Archive interface {
	StoreReport(report *models.RunReport) error
	Retrieve(filename string) ([]byte, error)
	List(prefix string) ([]string, error)
	Delete(filename string) error
}
