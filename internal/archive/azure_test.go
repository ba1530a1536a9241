package archive

import (
	"testing"
	"time"

	"github.com/newspilot/newspilot/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestReportFilename(t *testing.T) {
	report := &models.RunReport{
		RunID:     "3f2a9c1d",
		Kind:      "curation",
		StartedAt: time.Date(2025, 3, 16, 0, 30, 0, 0, time.FixedZone("CET", 3600)),
	}

	// Date prefix comes from the UTC start time, not the local one.
	assert.Equal(t, "reports/2025-03-15/curation_3f2a9c1d.json", ReportFilename(report))
}

func TestNewAzureArchiveRequiresAccount(t *testing.T) {
	archive, err := NewAzureArchive("", "run-reports")
	assert.Nil(t, archive)
	assert.Error(t, err)
}
