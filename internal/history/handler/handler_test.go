package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"docscan/internal/history/blob"
	"docscan/internal/history/models"
	"docscan/internal/history/service"
	"docscan/internal/history/store"
	insmodels "docscan/internal/inspector/models"
	"docscan/pkg/requestcontext"
)

type HistoryHandlerSuite struct {
	suite.Suite
	service *service.Service
	blobs   *blob.Store
	router  chi.Router
	ownerID int64
}

func TestHistoryHandlerSuite(t *testing.T) {
	suite.Run(t, new(HistoryHandlerSuite))
}

func (s *HistoryHandlerSuite) SetupTest() {
	blobs, err := blob.New(s.T().TempDir())
	s.Require().NoError(err)
	s.blobs = blobs

	s.service = service.New(store.NewInMemory(), blobs)
	s.ownerID = 7

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(s.service, logger)

	s.router = chi.NewRouter()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithOwnerID(r.Context(), s.ownerID)))
		})
	})
	h.Register(s.router)
}

func (s *HistoryHandlerSuite) saveRecord(content string) *models.ScanRecord {
	result := &insmodels.ScanResult{
		DocumentName: "contract.pdf",
		TotalPages:   1,
		Pages: []insmodels.PageResult{
			{PageNumber: 1, Annotations: []insmodels.Detection{
				{ID: "detection_1", Category: insmodels.CategoryQRCode, Content: "INV-001"},
			}},
		},
	}
	record, err := s.service.Save(context.Background(), 7, []byte(content), "contract.pdf", result)
	s.Require().NoError(err)
	return record
}

func (s *HistoryHandlerSuite) do(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HistoryHandlerSuite) TestList() {
	s.saveRecord("%PDF-1.4 a")
	s.saveRecord("%PDF-1.4 b")

	s.Run("returns the owner's summaries", func() {
		rec := s.do(http.MethodGet, "/history")
		s.Require().Equal(http.StatusOK, rec.Code)

		var resp struct {
			Items []models.Summary `json:"items"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Len(resp.Items, 2)
	})

	s.Run("rejects a negative skip", func() {
		rec := s.do(http.MethodGet, "/history?skip=-1")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("rejects a non-numeric limit", func() {
		rec := s.do(http.MethodGet, "/history?limit=lots")
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HistoryHandlerSuite) TestStats() {
	s.saveRecord("%PDF-1.4 a")

	rec := s.do(http.MethodGet, "/history/stats")
	s.Require().Equal(http.StatusOK, rec.Code)

	var stats models.Stats
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &stats))
	s.Equal(1, stats.TotalScans)
	s.Equal(1, stats.TotalQR)
}

func (s *HistoryHandlerSuite) TestGet() {
	record := s.saveRecord("%PDF-1.4 a")

	s.Run("returns the full record", func() {
		rec := s.do(http.MethodGet, "/history/"+record.ID.String())
		s.Require().Equal(http.StatusOK, rec.Code)

		var got models.ScanRecord
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &got))
		s.Equal(record.ID, got.ID)
		s.Require().Len(got.Result.Pages, 1)
		s.Equal("INV-001", got.Result.Pages[0].Annotations[0].Content)
	})

	s.Run("unknown id is 404", func() {
		rec := s.do(http.MethodGet, "/history/"+uuid.NewString())
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("malformed id is 400", func() {
		rec := s.do(http.MethodGet, "/history/not-a-uuid")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("another owner's record is 404", func() {
		s.ownerID = 8
		defer func() { s.ownerID = 7 }()

		rec := s.do(http.MethodGet, "/history/"+record.ID.String())
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *HistoryHandlerSuite) TestDownload() {
	record := s.saveRecord("%PDF-1.4 original bytes")

	s.Run("streams bytes with download headers", func() {
		rec := s.do(http.MethodGet, "/history/"+record.ID.String()+"/download")
		s.Require().Equal(http.StatusOK, rec.Code)
		s.Equal("application/pdf", rec.Header().Get("Content-Type"))
		s.Contains(rec.Header().Get("Content-Disposition"), "contract.pdf")
		s.Equal("%PDF-1.4 original bytes", rec.Body.String())
	})

	s.Run("missing bytes are 410 Gone", func() {
		stale := s.saveRecord("%PDF-1.4 doomed")
		s.Require().NoError(s.blobs.Remove(stale.FilePath))

		rec := s.do(http.MethodGet, "/history/"+stale.ID.String()+"/download")
		s.Equal(http.StatusGone, rec.Code)
	})
}

func (s *HistoryHandlerSuite) TestDelete() {
	record := s.saveRecord("%PDF-1.4 a")

	rec := s.do(http.MethodDelete, "/history/"+record.ID.String())
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/history/"+record.ID.String())
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodDelete, "/history/"+record.ID.String())
	s.Equal(http.StatusNotFound, rec.Code)
}
