// Package models defines the detection domain model shared by the scan
// pipeline and the history store.
package models

// Category classifies a detected region.
type Category string

const (
	CategorySignature Category = "signature"
	CategoryStamp     Category = "stamp"
	CategoryQRCode    Category = "qr_code"
)

// Content markers returned by extraction when no real content is available.
const (
	ContentSignatureDetected = "detected"
	ContentQRDecodeFailed    = "unable to decode qr code"
	ContentNoTextDetected    = "no text detected"
)

// BoundingBox locates a region in page-pixel units, origin top-left.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PageSize is the rendered page's pixel dimensions.
type PageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Detection is one located, classified, confidence-scored region within a
// page image. Immutable once produced.
type Detection struct {
	ID         string      `json:"id"`
	Category   Category    `json:"category"`
	BBox       BoundingBox `json:"bbox"`
	Confidence float64     `json:"confidence"`
	Content    string      `json:"content,omitempty"`
}

// PageResult holds detections for a single page. Ordering of pages by
// PageNumber is significant and preserved by the pipeline.
type PageResult struct {
	PageNumber  int         `json:"page_number"`
	PageSize    PageSize    `json:"page_size"`
	Annotations []Detection `json:"annotations"`
}

// ScanResult is the aggregate outcome of one pipeline run. Immutable once
// produced; processing time is environment-dependent and excluded from
// equality in tests.
type ScanResult struct {
	DocumentName   string       `json:"document_name"`
	TotalPages     int          `json:"total_pages"`
	Pages          []PageResult `json:"pages"`
	ProcessingTime float64      `json:"processing_time"`
}

// CategoryCounts are detection totals derived from a scan result.
type CategoryCounts struct {
	QR        int
	Signature int
	Stamp     int
}

// CountByCategory recomputes detection totals from the pages. Persisted
// counts are a cache of this derivation, never an independent source of
// truth.
func (r ScanResult) CountByCategory() CategoryCounts {
	var counts CategoryCounts
	for _, page := range r.Pages {
		for _, det := range page.Annotations {
			switch det.Category {
			case CategoryQRCode:
				counts.QR++
			case CategorySignature:
				counts.Signature++
			case CategoryStamp:
				counts.Stamp++
			}
		}
	}
	return counts
}
