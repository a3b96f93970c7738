// Package reaper removes scan records past their retention window. It is the
// only automated deletion path; owners can always delete earlier themselves.
package reaper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"docscan/internal/history/store"
	"docscan/internal/platform/metrics"
	"docscan/pkg/platform/sentinel"
)

// BlobRemover deletes stored document bytes by key.
type BlobRemover interface {
	Remove(key string) error
}

// Reaper periodically sweeps expired scan records. Each record is its own
// unit of work: a failure on one never blocks the rest of the sweep.
type Reaper struct {
	store   store.RecordStore
	blobs   BlobRemover
	logger  *slog.Logger
	metrics *metrics.Metrics
	cron    *cron.Cron
}

// Option configures the Reaper.
type Option func(*Reaper)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reaper) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reaper) {
		r.metrics = m
	}
}

// New constructs a Reaper.
func New(recordStore store.RecordStore, blobs BlobRemover, opts ...Option) *Reaper {
	r := &Reaper{
		store:  recordStore,
		blobs:  blobs,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start schedules sweeps on the given cron expression and begins running
// them. The first sweep happens at the first scheduled tick, not at startup.
func (r *Reaper) Start(schedule string) error {
	r.cron = cron.New()
	_, err := r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := r.RunOnce(ctx, time.Now()); err != nil {
			r.logger.Error("retention sweep failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("retention reaper started", slog.String("schedule", schedule))
	return nil
}

// Stop halts scheduled sweeps and waits for a running one to finish.
func (r *Reaper) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	r.logger.Info("retention reaper stopped")
}

// RunOnce sweeps all records whose expiry is strictly before now and returns
// how many were removed. Stored bytes are removed before the record row so a
// crash leaves a re-discoverable record rather than orphan bytes.
func (r *Reaper) RunOnce(ctx context.Context, now time.Time) (int, error) {
	if r.metrics != nil {
		r.metrics.ReaperSweeps.Inc()
	}

	expired, err := r.store.ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, record := range expired {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		if err := r.blobs.Remove(record.FilePath); err != nil && !errors.Is(err, sentinel.ErrStaleFile) {
			r.logger.Warn("expired document removal failed",
				slog.String("record_id", record.ID.String()),
				slog.String("path", record.FilePath),
				slog.String("error", err.Error()))
			continue
		}

		if err := r.store.DeleteByID(ctx, record.ID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			r.logger.Warn("expired record removal failed",
				slog.String("record_id", record.ID.String()),
				slog.String("error", err.Error()))
			continue
		}

		removed++
		if r.metrics != nil {
			r.metrics.RecordsReaped.Inc()
		}
	}

	if removed > 0 || len(expired) > 0 {
		r.logger.Info("retention sweep complete",
			slog.Int("expired", len(expired)),
			slog.Int("removed", removed))
	}
	return removed, nil
}
