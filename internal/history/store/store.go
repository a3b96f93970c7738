// Package store persists scan records. Stores are interface-driven so the
// service layer can run against in-memory or PostgreSQL persistence without
// rewiring.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"docscan/internal/history/models"
)

// RecordStore is the persistence contract for scan records. All lookups are
// owner-scoped: a record that exists under a different owner behaves exactly
// like a record that does not exist (sentinel.ErrNotFound), so cross-owner
// probes cannot distinguish the two.
type RecordStore interface {
	Create(ctx context.Context, record *models.ScanRecord) error
	ListByOwner(ctx context.Context, ownerID int64, offset, limit int) ([]models.Summary, error)
	FindByOwner(ctx context.Context, id uuid.UUID, ownerID int64) (*models.ScanRecord, error)
	Delete(ctx context.Context, id uuid.UUID, ownerID int64) error
	StatsByOwner(ctx context.Context, ownerID int64) (models.Stats, error)

	// ListExpired returns records whose expiry is strictly before now.
	ListExpired(ctx context.Context, now time.Time) ([]*models.ScanRecord, error)
	// DeleteByID removes a single record unconditionally; the reaper uses it
	// so each expired record is its own unit of work.
	DeleteByID(ctx context.Context, id uuid.UUID) error
}
