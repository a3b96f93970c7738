package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"docscan/internal/history/blob"
	"docscan/internal/history/models"
	"docscan/internal/history/store"
	insmodels "docscan/internal/inspector/models"
	dErrors "docscan/pkg/domain-errors"
	"docscan/pkg/requestcontext"
)

type HistoryServiceSuite struct {
	suite.Suite
	store   *store.InMemory
	blobs   *blob.Store
	blobDir string
	service *Service
	ctx     context.Context
}

func TestHistoryServiceSuite(t *testing.T) {
	suite.Run(t, new(HistoryServiceSuite))
}

func (s *HistoryServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.blobDir = s.T().TempDir()

	blobs, err := blob.New(s.blobDir)
	s.Require().NoError(err)
	s.blobs = blobs

	s.service = New(s.store, s.blobs)
	s.ctx = context.Background()
}

func (s *HistoryServiceSuite) scanResult() *insmodels.ScanResult {
	return &insmodels.ScanResult{
		DocumentName: "contract.pdf",
		TotalPages:   2,
		Pages: []insmodels.PageResult{
			{PageNumber: 1, Annotations: []insmodels.Detection{
				{ID: "detection_1", Category: insmodels.CategorySignature, Content: insmodels.ContentSignatureDetected},
			}},
			{PageNumber: 2, Annotations: []insmodels.Detection{}},
		},
	}
}

func (s *HistoryServiceSuite) TestSave() {
	s.Run("persists record and bytes with fixed expiry", func() {
		createdAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithTime(s.ctx, createdAt)

		record, err := s.service.Save(ctx, 7, []byte("%PDF-1.4"), "contract.pdf", s.scanResult())
		s.Require().NoError(err)
		s.Equal(createdAt.Add(models.RetentionWindow), record.ExpiresAt)
		s.Equal(1, record.SignatureCount)

		found, err := s.store.FindByOwner(s.ctx, record.ID, 7)
		s.Require().NoError(err)
		s.Equal(record.ExpiresAt, found.ExpiresAt)

		reader, err := s.blobs.Open(record.FilePath)
		s.Require().NoError(err)
		defer reader.Close()
		data, err := io.ReadAll(reader)
		s.Require().NoError(err)
		s.Equal([]byte("%PDF-1.4"), data)
	})

	s.Run("rejects missing owner", func() {
		_, err := s.service.Save(s.ctx, 0, []byte("x"), "a.pdf", s.scanResult())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("removes blob when record insert fails", func() {
		failing := &failingStore{RecordStore: s.store}
		svc := New(failing, s.blobs)

		_, err := svc.Save(s.ctx, 9, []byte("%PDF-1.4"), "doomed.pdf", s.scanResult())
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))

		entries, readErr := os.ReadDir(filepath.Join(s.blobDir, "9"))
		s.Require().NoError(readErr)
		s.Empty(entries)
	})
}

func (s *HistoryServiceSuite) TestListClampsLimit() {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 120; i++ {
		ctx := requestcontext.WithTime(s.ctx, base.Add(time.Duration(i)*time.Minute))
		_, err := s.service.Save(ctx, 7, []byte("x"), "doc.pdf", s.scanResult())
		s.Require().NoError(err)
	}

	s.Run("default limit is 50", func() {
		summaries, err := s.service.List(s.ctx, 7, 0, 0)
		s.Require().NoError(err)
		s.Len(summaries, 50)
	})

	s.Run("limit is capped at 100", func() {
		summaries, err := s.service.List(s.ctx, 7, 0, 500)
		s.Require().NoError(err)
		s.Len(summaries, 100)
	})

	s.Run("negative offset is treated as zero", func() {
		summaries, err := s.service.List(s.ctx, 7, -5, 10)
		s.Require().NoError(err)
		s.Len(summaries, 10)
	})
}

func (s *HistoryServiceSuite) TestGet() {
	record, err := s.service.Save(s.ctx, 7, []byte("x"), "doc.pdf", s.scanResult())
	s.Require().NoError(err)

	s.Run("returns the owner's record", func() {
		found, err := s.service.Get(s.ctx, record.ID, 7)
		s.Require().NoError(err)
		s.Equal(record.ID, found.ID)
	})

	s.Run("wrong owner is not found", func() {
		_, err := s.service.Get(s.ctx, record.ID, 8)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unknown id is not found", func() {
		_, err := s.service.Get(s.ctx, uuid.New(), 7)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *HistoryServiceSuite) TestDownload() {
	record, err := s.service.Save(s.ctx, 7, []byte("%PDF-1.4 body"), "doc.pdf", s.scanResult())
	s.Require().NoError(err)

	s.Run("streams the original bytes", func() {
		reader, got, err := s.service.Download(s.ctx, record.ID, 7)
		s.Require().NoError(err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		s.Require().NoError(err)
		s.Equal([]byte("%PDF-1.4 body"), data)
		s.Equal("application/pdf", got.FileMime)
	})

	s.Run("missing bytes yield stale file, not not found", func() {
		s.Require().NoError(s.blobs.Remove(record.FilePath))

		_, _, err := s.service.Download(s.ctx, record.ID, 7)
		s.True(dErrors.HasCode(err, dErrors.CodeStaleFile))
		s.False(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *HistoryServiceSuite) TestDelete() {
	s.Run("removes record and bytes", func() {
		record, err := s.service.Save(s.ctx, 7, []byte("x"), "doc.pdf", s.scanResult())
		s.Require().NoError(err)

		s.Require().NoError(s.service.Delete(s.ctx, record.ID, 7))

		_, err = s.service.Get(s.ctx, record.ID, 7)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		_, err = s.blobs.Open(record.FilePath)
		s.Error(err)
	})

	s.Run("succeeds when bytes are already gone", func() {
		record, err := s.service.Save(s.ctx, 7, []byte("x"), "doc.pdf", s.scanResult())
		s.Require().NoError(err)
		s.Require().NoError(s.blobs.Remove(record.FilePath))

		s.NoError(s.service.Delete(s.ctx, record.ID, 7))
	})

	s.Run("wrong owner is not found", func() {
		record, err := s.service.Save(s.ctx, 7, []byte("x"), "doc.pdf", s.scanResult())
		s.Require().NoError(err)

		err = s.service.Delete(s.ctx, record.ID, 8)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *HistoryServiceSuite) TestStats() {
	for i := 0; i < 3; i++ {
		_, err := s.service.Save(s.ctx, 7, []byte("x"), "doc.pdf", s.scanResult())
		s.Require().NoError(err)
	}

	stats, err := s.service.Stats(s.ctx, 7)
	s.Require().NoError(err)
	s.Equal(3, stats.TotalScans)
	s.Equal(6, stats.TotalPages)
	s.Equal(3, stats.TotalSignatures)
}

func (s *HistoryServiceSuite) TestStatsCache() {
	cache := &stubCache{entries: make(map[int64]models.Stats)}
	svc := New(s.store, s.blobs, WithStatsCache(cache))

	record, err := svc.Save(s.ctx, 7, []byte("x"), "doc.pdf", s.scanResult())
	s.Require().NoError(err)
	s.Equal(1, cache.invalidations, "save invalidates cached stats")

	_, err = svc.Stats(s.ctx, 7)
	s.Require().NoError(err)
	_, err = svc.Stats(s.ctx, 7)
	s.Require().NoError(err)
	s.Equal(1, cache.misses, "second read is served from cache")

	s.Require().NoError(svc.Delete(s.ctx, record.ID, 7))
	s.Equal(2, cache.invalidations, "delete invalidates cached stats")
}

type failingStore struct {
	store.RecordStore
}

func (f *failingStore) Create(context.Context, *models.ScanRecord) error {
	return errors.New("insert failed")
}

type stubCache struct {
	entries       map[int64]models.Stats
	misses        int
	invalidations int
}

func (c *stubCache) Get(_ context.Context, ownerID int64) (*models.Stats, error) {
	if stats, ok := c.entries[ownerID]; ok {
		return &stats, nil
	}
	c.misses++
	return nil, nil
}

func (c *stubCache) Set(_ context.Context, ownerID int64, stats models.Stats) error {
	c.entries[ownerID] = stats
	return nil
}

func (c *stubCache) Invalidate(_ context.Context, ownerID int64) error {
	delete(c.entries, ownerID)
	c.invalidations++
	return nil
}
