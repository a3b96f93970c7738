package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"docscan/internal/history/models"
	"docscan/pkg/platform/sentinel"
)

// InMemory is a map-backed RecordStore for tests and single-node dev runs.
type InMemory struct {
	mu      sync.RWMutex
	records map[uuid.UUID]models.ScanRecord
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{records: make(map[uuid.UUID]models.ScanRecord)}
}

func (s *InMemory) Create(_ context.Context, record *models.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = *record
	return nil
}

func (s *InMemory) ListByOwner(_ context.Context, ownerID int64, offset, limit int) ([]models.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := make([]models.ScanRecord, 0)
	for _, record := range s.records {
		if record.OwnerID == ownerID {
			owned = append(owned, record)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].ID.String() > owned[j].ID.String()
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	if offset >= len(owned) {
		return []models.Summary{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(owned) {
		end = len(owned)
	}

	summaries := make([]models.Summary, 0, end-offset)
	for _, record := range owned[offset:end] {
		summaries = append(summaries, record.Summarize())
	}
	return summaries, nil
}

func (s *InMemory) FindByOwner(_ context.Context, id uuid.UUID, ownerID int64) (*models.ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok || record.OwnerID != ownerID {
		return nil, sentinel.ErrNotFound
	}
	copied := record
	return &copied, nil
}

func (s *InMemory) Delete(_ context.Context, id uuid.UUID, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok || record.OwnerID != ownerID {
		return sentinel.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *InMemory) StatsByOwner(_ context.Context, ownerID int64) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats models.Stats
	for _, record := range s.records {
		if record.OwnerID != ownerID {
			continue
		}
		stats.TotalScans++
		stats.TotalPages += record.TotalPages
		stats.TotalQR += record.QRCount
		stats.TotalSignatures += record.SignatureCount
		stats.TotalStamps += record.StampCount
	}
	return stats, nil
}

func (s *InMemory) ListExpired(_ context.Context, now time.Time) ([]*models.ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expired := make([]*models.ScanRecord, 0)
	for _, record := range s.records {
		if record.ExpiresAt.Before(now) {
			copied := record
			expired = append(expired, &copied)
		}
	}
	return expired, nil
}

func (s *InMemory) DeleteByID(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, id)
	return nil
}
