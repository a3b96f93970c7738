// Package handler exposes the scan pipeline over HTTP.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	insmodels "docscan/internal/inspector/models"
	histmodels "docscan/internal/history/models"
	dErrors "docscan/pkg/domain-errors"
	"docscan/pkg/platform/httputil"
	"docscan/pkg/requestcontext"
)

// maxUploadBytes caps document uploads at 50 MB.
const maxUploadBytes = 50 << 20

// Pipeline is the scan pipeline surface the handler needs.
type Pipeline interface {
	Process(ctx context.Context, documentBytes []byte, documentName string, threshold float64) (*insmodels.ScanResult, error)
	Ready(ctx context.Context) bool
}

// HistorySaver persists completed scans. Saving is best-effort: failures are
// logged and never surfaced to the scan response.
type HistorySaver interface {
	Save(ctx context.Context, ownerID int64, documentBytes []byte, documentName string, result *insmodels.ScanResult) (*histmodels.ScanRecord, error)
}

// Handler wires inspection endpoints to the scan pipeline.
type Handler struct {
	pipeline         Pipeline
	history          HistorySaver
	logger           *slog.Logger
	defaultThreshold float64
}

// New constructs an inspection handler. history may be nil when persistence
// is not wired.
func New(pipeline Pipeline, history HistorySaver, logger *slog.Logger, defaultThreshold float64) *Handler {
	if defaultThreshold <= 0 || defaultThreshold > 1 {
		defaultThreshold = 0.25
	}
	return &Handler{
		pipeline:         pipeline,
		history:          history,
		logger:           logger,
		defaultThreshold: defaultThreshold,
	}
}

// Register mounts inspection endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/inspect/detect", h.HandleDetect)
	r.Get("/inspect/health", h.HandleHealth)
}

// healthResponse reports whether the detection capability is loaded.
type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

// HandleHealth handles GET /inspect/health. Degraded means documents are
// still accepted but come back with zero detections.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ready := h.pipeline.Ready(r.Context())
	resp := healthResponse{Status: "healthy", ModelLoaded: ready}
	if !ready {
		resp.Status = "degraded"
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleDetect handles POST /inspect/detect: a multipart PDF upload plus an
// optional conf_threshold query parameter.
func (h *Handler) HandleDetect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	threshold, err := h.parseThreshold(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "multipart field 'file' is required"))
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "only PDF files are supported"))
		return
	}

	documentBytes, err := io.ReadAll(file)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read uploaded file"))
		return
	}

	result, err := h.pipeline.Process(ctx, documentBytes, header.Filename, threshold)
	if err != nil {
		h.logger.ErrorContext(ctx, "document scan failed",
			"request_id", requestID,
			"document", header.Filename,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	// Persistence never blocks or fails the scan response.
	if ownerID := requestcontext.OwnerID(ctx); ownerID != 0 && h.history != nil {
		if _, err := h.history.Save(ctx, ownerID, documentBytes, header.Filename, result); err != nil {
			h.logger.WarnContext(ctx, "failed to save scan to history",
				"request_id", requestID,
				"owner_id", ownerID,
				"document", header.Filename,
				"error", err,
			)
		}
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) parseThreshold(r *http.Request) (float64, error) {
	raw := r.URL.Query().Get("conf_threshold")
	if raw == "" {
		return h.defaultThreshold, nil
	}
	threshold, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeValidation, "conf_threshold must be a number")
	}
	if threshold < 0 || threshold > 1 {
		return 0, dErrors.New(dErrors.CodeValidation, "conf_threshold must be between 0 and 1")
	}
	return threshold, nil
}
