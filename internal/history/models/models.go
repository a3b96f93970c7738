// Package models defines the persisted scan history model.
package models

import (
	"time"

	"github.com/google/uuid"

	insmodels "docscan/internal/inspector/models"
)

// RetentionWindow is the fixed period a scan record is kept before it
// becomes eligible for deletion. Applied at construction, never reevaluated.
const RetentionWindow = 90 * 24 * time.Hour

// ScanRecord is the persisted outcome of one document scan. Records are
// immutable after creation: they are destroyed by owner deletion or by the
// retention reaper, never updated.
type ScanRecord struct {
	ID             uuid.UUID             `json:"id"`
	OwnerID        int64                 `json:"owner_id"`
	DocumentName   string                `json:"document_name"`
	FilePath       string                `json:"file_path"`
	FileMime       string                `json:"file_mime"`
	CreatedAt      time.Time             `json:"created_at"`
	ExpiresAt      time.Time             `json:"expires_at"`
	TotalPages     int                   `json:"total_pages"`
	QRCount        int                   `json:"qr_count"`
	SignatureCount int                   `json:"signature_count"`
	StampCount     int                   `json:"stamp_count"`
	Result         insmodels.ScanResult  `json:"results"`
	ProcessingTime float64               `json:"processing_time"`
}

// NewScanRecord builds a record from a scan result. Category counts are
// derived from the result payload (the persisted counts are a cache of that
// derivation) and expiry is always createdAt + RetentionWindow.
func NewScanRecord(ownerID int64, documentName, filePath, fileMime string, result insmodels.ScanResult, createdAt time.Time) *ScanRecord {
	counts := result.CountByCategory()
	return &ScanRecord{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		DocumentName:   documentName,
		FilePath:       filePath,
		FileMime:       fileMime,
		CreatedAt:      createdAt,
		ExpiresAt:      createdAt.Add(RetentionWindow),
		TotalPages:     result.TotalPages,
		QRCount:        counts.QR,
		SignatureCount: counts.Signature,
		StampCount:     counts.Stamp,
		Result:         result,
		ProcessingTime: result.ProcessingTime,
	}
}

// Expired reports whether the record is past its retention window at now.
func (r *ScanRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Summary is the list projection of a record, omitting the full payload.
type Summary struct {
	ID             uuid.UUID `json:"id"`
	OwnerID        int64     `json:"owner_id"`
	DocumentName   string    `json:"document_name"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	TotalPages     int       `json:"total_pages"`
	QRCount        int       `json:"qr_count"`
	SignatureCount int       `json:"signature_count"`
	StampCount     int       `json:"stamp_count"`
	ProcessingTime float64   `json:"processing_time"`
}

// Summarize projects the record onto its list form.
func (r *ScanRecord) Summarize() Summary {
	return Summary{
		ID:             r.ID,
		OwnerID:        r.OwnerID,
		DocumentName:   r.DocumentName,
		CreatedAt:      r.CreatedAt,
		ExpiresAt:      r.ExpiresAt,
		TotalPages:     r.TotalPages,
		QRCount:        r.QRCount,
		SignatureCount: r.SignatureCount,
		StampCount:     r.StampCount,
		ProcessingTime: r.ProcessingTime,
	}
}

// Stats aggregates one owner's scan history.
type Stats struct {
	TotalScans      int `json:"total_scans"`
	TotalPages      int `json:"total_pages"`
	TotalQR         int `json:"total_qr"`
	TotalSignatures int `json:"total_signatures"`
	TotalStamps     int `json:"total_stamps"`
}
