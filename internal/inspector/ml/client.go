// Package ml talks to the inference sidecar that hosts the detection model
// and the OCR reader. The sidecar is an opaque capability: given an image it
// returns located regions or recognized text fragments.
package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"docscan/internal/inspector/models"
	"docscan/pkg/platform/sentinel"
)

// Client calls the inference sidecar over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New constructs a Client. An empty baseURL means no detection capability is
// configured; Ready reports false and Detect returns ErrUnavailable.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// wireDetection is the sidecar's response shape for one region.
type wireDetection struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// Detect runs object detection on a page image and returns detections with
// confidence >= threshold, IDs assigned in detection order.
func (c *Client) Detect(ctx context.Context, pageImage image.Image, threshold float64) ([]models.Detection, error) {
	if c.baseURL == "" {
		return nil, sentinel.ErrUnavailable
	}

	body, contentType, err := encodePageUpload(pageImage)
	if err != nil {
		return nil, fmt.Errorf("encode page image: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", body)
	if err != nil {
		return nil, fmt.Errorf("create detect request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detect failed with status %d", resp.StatusCode)
	}

	var result struct {
		Detections []wireDetection `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode detect response: %w", err)
	}

	detections := make([]models.Detection, 0, len(result.Detections))
	for _, det := range result.Detections {
		if det.Confidence < threshold {
			continue
		}
		category, ok := normalizeCategory(det.Class)
		if !ok {
			continue
		}
		detections = append(detections, models.Detection{
			ID:       fmt.Sprintf("detection_%d", len(detections)+1),
			Category: category,
			BBox: models.BoundingBox{
				X:      det.X,
				Y:      det.Y,
				Width:  det.Width,
				Height: det.Height,
			},
			Confidence: det.Confidence,
		})
	}
	return detections, nil
}

// ReadText runs OCR over a region image and returns recognized fragments in
// reading order.
func (c *Client) ReadText(ctx context.Context, regionImage image.Image) ([]string, error) {
	if c.baseURL == "" {
		return nil, sentinel.ErrUnavailable
	}

	body, contentType, err := encodePageUpload(regionImage)
	if err != nil {
		return nil, fmt.Errorf("encode region image: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr", body)
	if err != nil {
		return nil, fmt.Errorf("create ocr request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocr failed with status %d", resp.StatusCode)
	}

	var result struct {
		Fragments []string `json:"fragments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode ocr response: %w", err)
	}
	return result.Fragments, nil
}

// Ready probes the sidecar health endpoint. A false result means the service
// operates in degraded mode: documents are still accepted but detection
// returns no regions.
func (c *Client) Ready(ctx context.Context) bool {
	if c.baseURL == "" {
		return false
	}
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// normalizeCategory maps model class names onto domain categories. The model
// reports "qr" while older checkpoints used "qrcode"; both map to qr_code.
func normalizeCategory(class string) (models.Category, bool) {
	switch strings.ToLower(class) {
	case "qr", "qrcode", "qr_code":
		return models.CategoryQRCode, true
	case "signature":
		return models.CategorySignature, true
	case "stamp":
		return models.CategoryStamp, true
	default:
		return "", false
	}
}

func encodePageUpload(img image.Image) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "page.png")
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if err := imaging.Encode(part, img, imaging.PNG); err != nil {
		return nil, "", fmt.Errorf("encode png: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}
