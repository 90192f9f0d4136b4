/**
 * Tesseract-backed word scanner.
 *
 * Wraps the gosseract client to produce word-level records with bounding
 * boxes, confidences, and the engine's block numbering. A fresh client is
 * created and closed per call; no state is shared across submissions.
 */

package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractScanner implements WordScanner using a local Tesseract install.
type TesseractScanner struct {
	clientFactory func() *gosseract.Client
	languages     []string
}

// NewTesseractScanner constructs a scanner. languages are Tesseract
// trained-data names ("eng"); empty means the engine default.
func NewTesseractScanner(languages ...string) *TesseractScanner {
	return &TesseractScanner{
		clientFactory: gosseract.NewClient,
		languages:     languages,
	}
}

// ScanWords runs word-level recognition over one encoded image.
func (s *TesseractScanner) ScanWords(ctx context.Context, image []byte) ([]Word, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	client := s.clientFactory()
	defer client.Close()

	if err := client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	if len(s.languages) > 0 {
		if err := client.SetLanguage(s.languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, fmt.Errorf("word recognition failed: %w", err)
	}

	words := make([]Word, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, Word{
			Text:       b.Word,
			Confidence: int(b.Confidence),
			BBox: BBox{
				X:      b.Box.Min.X,
				Y:      b.Box.Min.Y,
				Width:  b.Box.Dx(),
				Height: b.Box.Dy(),
			},
			BlockID: b.BlockNum,
		})
	}
	return words, nil
}
