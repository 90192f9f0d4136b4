package ocr

import "context"

// BBox is a rectangle in page-raster pixel coordinates, origin top-left.
type BBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Word is a single recognized token as emitted by the OCR engine.
type Word struct {
	Text       string
	Confidence int // 0-100
	BBox       BBox
	BlockID    int // engine-assigned layout grouping
}

// TextBlock aggregates the surviving words of one engine block. The
// bounding box encloses every constituent word and Confidence is the
// truncated integer mean of word confidences.
type TextBlock struct {
	Text       string `json:"text"`
	BBox       BBox   `json:"bbox"`
	Page       int    `json:"page"` // 1-indexed
	Confidence int    `json:"confidence"`
	BlockID    int    `json:"block_id"`
}

// WordScanner is the OCR engine capability: one encoded raster image in,
// word-level records out. Implementations report engine failures as
// errors; the extractor absorbs them.
type WordScanner interface {
	ScanWords(ctx context.Context, image []byte) ([]Word, error)
}
