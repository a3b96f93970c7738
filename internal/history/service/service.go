// Package service implements the scan history lifecycle: best-effort capture
// of scan outcomes, owner-scoped retrieval, and deletion.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"docscan/internal/history/models"
	"docscan/internal/history/store"
	insmodels "docscan/internal/inspector/models"
	"docscan/internal/platform/metrics"
	dErrors "docscan/pkg/domain-errors"
	"docscan/pkg/platform/sentinel"
	"docscan/pkg/requestcontext"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// BlobStore abstracts document byte storage.
type BlobStore interface {
	Save(ownerID int64, id uuid.UUID, filename string, data []byte) (string, error)
	Open(key string) (io.ReadCloser, error)
	Remove(key string) error
}

// Service coordinates record persistence and blob storage for scan history.
type Service struct {
	store   store.RecordStore
	blobs   BlobStore
	cache   StatsCache
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithStatsCache sets an optional stats cache. Without one, stats queries
// always hit the store.
func WithStatsCache(cache StatsCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// New constructs a history Service.
func New(recordStore store.RecordStore, blobs BlobStore, opts ...Option) *Service {
	s := &Service{
		store:  recordStore,
		blobs:  blobs,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists the original document bytes and a scan record derived from
// the result. Record creation time comes from the request context so the
// record and its expiry align with the request that produced them.
//
// If the record insert fails after the blob was written, the blob is removed
// so no orphan bytes accumulate.
func (s *Service) Save(ctx context.Context, ownerID int64, documentBytes []byte, documentName string, result *insmodels.ScanResult) (*models.ScanRecord, error) {
	if ownerID <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "owner is required")
	}
	if result == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "scan result is required")
	}

	recordID := uuid.New()
	key, err := s.blobs.Save(ownerID, recordID, documentName, documentBytes)
	if err != nil {
		if s.metrics != nil {
			s.metrics.SaveFailures.Inc()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store document bytes")
	}

	record := models.NewScanRecord(ownerID, documentName, key, "application/pdf", *result, requestcontext.Now(ctx))
	record.ID = recordID

	if err := s.store.Create(ctx, record); err != nil {
		if removeErr := s.blobs.Remove(key); removeErr != nil {
			s.logger.Warn("orphan blob cleanup failed",
				slog.String("path", key),
				slog.String("error", removeErr.Error()))
		}
		if s.metrics != nil {
			s.metrics.SaveFailures.Inc()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist scan record")
	}

	if s.metrics != nil {
		s.metrics.RecordsSaved.Inc()
	}
	s.invalidateStats(ctx, ownerID)

	s.logger.Info("scan record saved",
		slog.String("record_id", record.ID.String()),
		slog.Int64("owner_id", ownerID),
		slog.String("document", documentName),
		slog.Time("expires_at", record.ExpiresAt))
	return record, nil
}

// List returns the owner's scan summaries, newest first. The limit is
// clamped to keep a single response bounded.
func (s *Service) List(ctx context.Context, ownerID int64, offset, limit int) ([]models.Summary, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	summaries, err := s.store.ListByOwner(ctx, ownerID, offset, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list scan records")
	}
	return summaries, nil
}

// Get returns a single record, scoped to the owner.
func (s *Service) Get(ctx context.Context, id uuid.UUID, ownerID int64) (*models.ScanRecord, error) {
	record, err := s.store.FindByOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "scan record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load scan record")
	}
	return record, nil
}

// Download returns a reader over the original document bytes plus the record
// describing them. A record whose bytes are gone yields CodeStaleFile, which
// is distinct from a missing record.
func (s *Service) Download(ctx context.Context, id uuid.UUID, ownerID int64) (io.ReadCloser, *models.ScanRecord, error) {
	record, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, nil, err
	}

	reader, err := s.blobs.Open(record.FilePath)
	if err != nil {
		if errors.Is(err, sentinel.ErrStaleFile) {
			return nil, nil, dErrors.New(dErrors.CodeStaleFile, "stored document is no longer available")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "open stored document")
	}
	return reader, record, nil
}

// Delete removes the record and its stored bytes. The record row is the
// source of truth: if the bytes are already gone the deletion still
// succeeds, with the orphan logged.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, ownerID int64) error {
	record, err := s.store.FindByOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "scan record not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "load scan record")
	}

	if err := s.store.Delete(ctx, id, ownerID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "scan record not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete scan record")
	}

	if err := s.blobs.Remove(record.FilePath); err != nil {
		s.logger.Warn("stored document removal failed",
			slog.String("record_id", id.String()),
			slog.String("path", record.FilePath),
			slog.String("error", err.Error()))
	}

	s.invalidateStats(ctx, ownerID)
	s.logger.Info("scan record deleted",
		slog.String("record_id", id.String()),
		slog.Int64("owner_id", ownerID))
	return nil
}

// Stats aggregates the owner's history, consulting the cache first when one
// is configured. Cache failures degrade to a store read.
func (s *Service) Stats(ctx context.Context, ownerID int64) (models.Stats, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, ownerID)
		if err != nil {
			s.logger.Warn("stats cache read failed", slog.String("error", err.Error()))
		} else if cached != nil {
			return *cached, nil
		}
	}

	stats, err := s.store.StatsByOwner(ctx, ownerID)
	if err != nil {
		return models.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "aggregate scan stats")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, ownerID, stats); err != nil {
			s.logger.Warn("stats cache write failed", slog.String("error", err.Error()))
		}
	}
	return stats, nil
}

func (s *Service) invalidateStats(ctx context.Context, ownerID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, ownerID); err != nil {
		s.logger.Warn("stats cache invalidation failed",
			slog.Int64("owner_id", ownerID),
			slog.String("error", err.Error()))
	}
}
