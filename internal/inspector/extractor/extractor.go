// Package extractor turns detected regions into semantic content. Extraction
// never fails a scan: every error path degrades to a sentinel content string
// so one bad region cannot abort a multi-page document.
package extractor

import (
	"context"
	"image"
	"log/slog"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"docscan/internal/inspector/models"
)

// OCRReader recognizes text fragments in a region image, in reading order.
type OCRReader interface {
	ReadText(ctx context.Context, regionImage image.Image) ([]string, error)
}

// Extractor extracts content per detection category.
type Extractor struct {
	ocr    OCRReader
	logger *slog.Logger
}

// New constructs an Extractor. The OCR reader may be nil; stamp extraction
// then degrades to the no-text sentinel.
func New(ocr OCRReader, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{ocr: ocr, logger: logger}
}

// Extract returns the content string for one detected region:
//   - qr_code: decoded text, or a sentinel when the code cannot be read
//   - stamp: recognized text fragments joined with single spaces, or a
//     sentinel when nothing is recognized
//   - signature: a fixed "detected" marker, no extraction attempted
func (e *Extractor) Extract(ctx context.Context, pageImage image.Image, det models.Detection) string {
	switch det.Category {
	case models.CategorySignature:
		return models.ContentSignatureDetected
	case models.CategoryQRCode:
		return e.decodeQR(ctx, cropRegion(pageImage, det.BBox))
	case models.CategoryStamp:
		return e.readStamp(ctx, cropRegion(pageImage, det.BBox))
	default:
		return ""
	}
}

func (e *Extractor) decodeQR(ctx context.Context, region image.Image) string {
	bitmap, err := gozxing.NewBinaryBitmapFromImage(region)
	if err != nil {
		e.logger.WarnContext(ctx, "qr region could not be binarized", "error", err)
		return models.ContentQRDecodeFailed
	}
	result, err := qrcode.NewQRCodeReader().Decode(bitmap, nil)
	if err != nil {
		e.logger.WarnContext(ctx, "qr decode failed", "error", err)
		return models.ContentQRDecodeFailed
	}
	return result.GetText()
}

func (e *Extractor) readStamp(ctx context.Context, region image.Image) string {
	if e.ocr == nil {
		return models.ContentNoTextDetected
	}
	fragments, err := e.ocr.ReadText(ctx, region)
	if err != nil {
		e.logger.WarnContext(ctx, "stamp ocr failed", "error", err)
		return models.ContentNoTextDetected
	}
	joined := strings.TrimSpace(strings.Join(fragments, " "))
	if joined == "" {
		return models.ContentNoTextDetected
	}
	return joined
}

// cropRegion cuts the bounding box out of the page, clamped to page bounds.
func cropRegion(pageImage image.Image, bbox models.BoundingBox) image.Image {
	bounds := pageImage.Bounds()
	x0 := clamp(int(math.Floor(bbox.X)), bounds.Min.X, bounds.Max.X)
	y0 := clamp(int(math.Floor(bbox.Y)), bounds.Min.Y, bounds.Max.Y)
	x1 := clamp(int(math.Ceil(bbox.X+bbox.Width)), bounds.Min.X, bounds.Max.X)
	y1 := clamp(int(math.Ceil(bbox.Y+bbox.Height)), bounds.Min.Y, bounds.Max.Y)
	return imaging.Crop(pageImage, image.Rect(x0, y0, x1, y1))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
