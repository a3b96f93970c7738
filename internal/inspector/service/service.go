// Package service orchestrates the document scan pipeline: render pages,
// detect regions, extract content, aggregate into a single scan result.
package service

import (
	"context"
	"image"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"docscan/internal/inspector/models"
	"docscan/internal/inspector/renderer"
	"docscan/internal/platform/metrics"
	dErrors "docscan/pkg/domain-errors"
	"docscan/pkg/platform/sentinel"
)

// Renderer converts document bytes into ordered page images.
type Renderer interface {
	Render(ctx context.Context, documentBytes []byte) ([]renderer.Page, error)
}

// Detector locates typed regions in a page image. Ready reports whether the
// detection capability is loaded; an unready detector is a valid, reportable
// state, not a pipeline failure.
type Detector interface {
	Detect(ctx context.Context, pageImage image.Image, threshold float64) ([]models.Detection, error)
	Ready(ctx context.Context) bool
}

// Extractor produces the content string for one detected region.
type Extractor interface {
	Extract(ctx context.Context, pageImage image.Image, det models.Detection) string
}

// Pipeline runs document scans.
type Pipeline struct {
	renderer  Renderer
	detector  Detector
	extractor Extractor
	logger    *slog.Logger
	metrics   *metrics.Metrics
	workers   int
	tracer    trace.Tracer
}

type Option func(p *Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithPageWorkers bounds how many pages are detected concurrently within one
// document. Page output order is always by page number regardless.
func WithPageWorkers(workers int) Option {
	return func(p *Pipeline) {
		if workers > 0 {
			p.workers = workers
		}
	}
}

// New constructs a Pipeline.
func New(r Renderer, d Detector, e Extractor, opts ...Option) *Pipeline {
	p := &Pipeline{
		renderer:  r,
		detector:  d,
		extractor: e,
		logger:    slog.Default(),
		workers:   4,
		tracer:    otel.Tracer("docscan/inspector"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process scans a document: renders all pages, detects regions per page,
// extracts region content, and aggregates everything in page order.
//
// Rendering failure aborts the whole request as bad input. A detection
// failure on one page degrades that page to zero detections and never aborts
// the others. Re-running with identical bytes and threshold yields identical
// page content; only processing time varies.
func (p *Pipeline) Process(ctx context.Context, documentBytes []byte, documentName string, threshold float64) (*models.ScanResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.process",
		trace.WithAttributes(attribute.String("document.name", documentName)))
	defer span.End()

	start := time.Now()

	pages, err := p.renderer.Render(ctx, documentBytes)
	if err != nil {
		if dErrors.Is(err, sentinel.ErrUnreadableDocument) {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "document is not a readable PDF")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render document")
	}
	if p.metrics != nil {
		p.metrics.PagesRendered.Add(float64(len(pages)))
	}

	results := make([]models.PageResult, len(pages))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.workers)

	for i, page := range pages {
		group.Go(func() error {
			results[i] = p.processPage(groupCtx, page, threshold)
			return nil
		})
	}
	// Page workers never return errors; Wait only propagates ctx cancellation.
	if err := group.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "scan interrupted")
	}

	result := &models.ScanResult{
		DocumentName:   documentName,
		TotalPages:     len(pages),
		Pages:          results,
		ProcessingTime: time.Since(start).Seconds(),
	}

	counts := result.CountByCategory()
	if p.metrics != nil {
		p.metrics.ScansProcessed.Inc()
		p.metrics.ScanDuration.Observe(result.ProcessingTime)
		p.metrics.Detections.WithLabelValues(string(models.CategoryQRCode)).Add(float64(counts.QR))
		p.metrics.Detections.WithLabelValues(string(models.CategorySignature)).Add(float64(counts.Signature))
		p.metrics.Detections.WithLabelValues(string(models.CategoryStamp)).Add(float64(counts.Stamp))
	}
	p.logger.InfoContext(ctx, "document scanned",
		"document", documentName,
		"pages", result.TotalPages,
		"qr", counts.QR,
		"signatures", counts.Signature,
		"stamps", counts.Stamp,
		"duration_s", result.ProcessingTime,
	)
	return result, nil
}

func (p *Pipeline) processPage(ctx context.Context, page renderer.Page, threshold float64) models.PageResult {
	annotations := make([]models.Detection, 0)

	detections, err := p.detector.Detect(ctx, page.Image, threshold)
	switch {
	case err != nil && dErrors.Is(err, sentinel.ErrUnavailable):
		// Degraded mode: keep scanning, report zero detections.
		if p.metrics != nil {
			p.metrics.DegradedScans.Inc()
		}
		p.logger.WarnContext(ctx, "detection unavailable, page degraded to zero detections",
			"page", page.Number)
	case err != nil:
		p.logger.WarnContext(ctx, "page detection failed, continuing without detections",
			"page", page.Number, "error", err)
	default:
		for _, det := range detections {
			det.Content = p.extractor.Extract(ctx, page.Image, det)
			annotations = append(annotations, det)
		}
	}

	return models.PageResult{
		PageNumber:  page.Number,
		PageSize:    models.PageSize{Width: page.Width, Height: page.Height},
		Annotations: annotations,
	}
}

// Ready reports whether the detection capability is loaded. False means the
// service runs degraded: documents are accepted, detections are empty.
func (p *Pipeline) Ready(ctx context.Context) bool {
	return p.detector.Ready(ctx)
}
