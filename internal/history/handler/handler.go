// Package handler exposes scan history over HTTP. All routes require an
// authenticated owner; records belonging to other owners are indistinguishable
// from absent ones.
package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"docscan/internal/history/models"
	dErrors "docscan/pkg/domain-errors"
	"docscan/pkg/platform/httputil"
	"docscan/pkg/requestcontext"
)

// HistoryService is the history surface the handler needs.
type HistoryService interface {
	List(ctx context.Context, ownerID int64, offset, limit int) ([]models.Summary, error)
	Get(ctx context.Context, id uuid.UUID, ownerID int64) (*models.ScanRecord, error)
	Download(ctx context.Context, id uuid.UUID, ownerID int64) (io.ReadCloser, *models.ScanRecord, error)
	Delete(ctx context.Context, id uuid.UUID, ownerID int64) error
	Stats(ctx context.Context, ownerID int64) (models.Stats, error)
}

// Handler wires history endpoints to the history service.
type Handler struct {
	service HistoryService
	logger  *slog.Logger
}

// New constructs a history handler.
func New(service HistoryService, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts history endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/history", h.HandleList)
	r.Get("/history/stats", h.HandleStats)
	r.Get("/history/{id}", h.HandleGet)
	r.Get("/history/{id}/download", h.HandleDownload)
	r.Delete("/history/{id}", h.HandleDelete)
}

// listResponse wraps summaries so pagination metadata has a place to live.
type listResponse struct {
	Items  []models.Summary `json:"items"`
	Offset int              `json:"offset"`
	Limit  int              `json:"limit"`
}

// HandleList handles GET /history with optional skip and limit query
// parameters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := requestcontext.OwnerID(ctx)

	offset, err := parseIntParam(r, "skip", 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, err := parseIntParam(r, "limit", 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	summaries, err := h.service.List(ctx, ownerID, offset, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "history list failed",
			"request_id", requestcontext.RequestID(ctx),
			"owner_id", ownerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, listResponse{
		Items:  summaries,
		Offset: offset,
		Limit:  len(summaries),
	})
}

// HandleStats handles GET /history/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID := requestcontext.OwnerID(ctx)

	stats, err := h.service.Stats(ctx, ownerID)
	if err != nil {
		h.logger.ErrorContext(ctx, "history stats failed",
			"request_id", requestcontext.RequestID(ctx),
			"owner_id", ownerID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandleGet handles GET /history/{id}, returning the full record including
// the per-page scan payload.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := recordID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.Get(ctx, id, requestcontext.OwnerID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

// HandleDownload handles GET /history/{id}/download, streaming the original
// document bytes.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := recordID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	reader, record, err := h.service.Download(ctx, id, requestcontext.OwnerID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", record.FileMime)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", record.DocumentName))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.WarnContext(ctx, "document download interrupted",
			"request_id", requestcontext.RequestID(ctx),
			"record_id", id.String(),
			"error", err,
		)
	}
}

// HandleDelete handles DELETE /history/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := recordID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Delete(ctx, id, requestcontext.OwnerID(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func recordID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "record id must be a UUID")
	}
	return id, nil
}

func parseIntParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, dErrors.New(dErrors.CodeValidation, name+" must be a non-negative integer")
	}
	return value, nil
}
