package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	insmodels "docscan/internal/inspector/models"
)

func sampleResult() insmodels.ScanResult {
	return insmodels.ScanResult{
		DocumentName: "contract.pdf",
		TotalPages:   2,
		Pages: []insmodels.PageResult{
			{PageNumber: 1, Annotations: []insmodels.Detection{
				{ID: "detection_1", Category: insmodels.CategoryQRCode, Content: "INV-2024-001"},
			}},
			{PageNumber: 2, Annotations: []insmodels.Detection{
				{ID: "detection_1", Category: insmodels.CategorySignature, Content: "detected"},
				{ID: "detection_2", Category: insmodels.CategoryStamp, Content: "no text detected"},
			}},
		},
		ProcessingTime: 1.5,
	}
}

func TestNewScanRecord(t *testing.T) {
	createdAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	record := NewScanRecord(42, "contract.pdf", "uploads/scans/42/abc_contract.pdf", "application/pdf", sampleResult(), createdAt)

	t.Run("expiry is exactly creation plus retention window", func(t *testing.T) {
		assert.Equal(t, createdAt.Add(90*24*time.Hour), record.ExpiresAt)
	})

	t.Run("counts match recomputation from the payload", func(t *testing.T) {
		counts := record.Result.CountByCategory()
		assert.Equal(t, counts.QR, record.QRCount)
		assert.Equal(t, counts.Signature, record.SignatureCount)
		assert.Equal(t, counts.Stamp, record.StampCount)
	})

	t.Run("identity and metadata carried over", func(t *testing.T) {
		require.NotEqual(t, record.ID.String(), "00000000-0000-0000-0000-000000000000")
		assert.Equal(t, int64(42), record.OwnerID)
		assert.Equal(t, 2, record.TotalPages)
		assert.Equal(t, 1.5, record.ProcessingTime)
	})
}

func TestExpired(t *testing.T) {
	createdAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	record := NewScanRecord(1, "doc.pdf", "p", "application/pdf", sampleResult(), createdAt)

	assert.False(t, record.Expired(createdAt.Add(89*24*time.Hour)))
	assert.False(t, record.Expired(createdAt.Add(90*24*time.Hour))) // boundary is exclusive
	assert.True(t, record.Expired(createdAt.Add(91*24*time.Hour)))
}

func TestSummarizeOmitsPayload(t *testing.T) {
	record := NewScanRecord(7, "doc.pdf", "p", "application/pdf", sampleResult(), time.Now())
	summary := record.Summarize()

	assert.Equal(t, record.ID, summary.ID)
	assert.Equal(t, record.QRCount, summary.QRCount)
	assert.Equal(t, record.ExpiresAt, summary.ExpiresAt)
}
