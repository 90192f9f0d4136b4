/**
 * OCR block extractor.
 *
 * Aggregates word-level OCR output into spatial text blocks: words are
 * filtered by a confidence floor, grouped by the engine's block id, and
 * each group collapses to one block with a merged bounding box. The
 * extractor never fails a submission: an engine error degrades to an
 * empty block list for that page.
 */

package ocr

import (
	"context"
	"strings"

	"github.com/planroom/review-worker/internal/logging"
)

// MinWordConfidence is the noise floor: OCR words at or below this
// confidence are unreliable enough to corrupt block geometry and text.
const MinWordConfidence = 30

// BlockExtractor turns raster pages into TextBlocks using an injected
// word scanner.
type BlockExtractor struct {
	scanner       WordScanner
	minConfidence int
	logger        *logging.Logger
}

// NewBlockExtractor creates an extractor over the given scanner. A
// non-positive minConfidence falls back to MinWordConfidence.
func NewBlockExtractor(scanner WordScanner, minConfidence int) *BlockExtractor {
	if minConfidence <= 0 {
		minConfidence = MinWordConfidence
	}
	return &BlockExtractor{
		scanner:       scanner,
		minConfidence: minConfidence,
		logger:        logging.NewLogger("BlockExtractor"),
	}
}

// ExtractBlocks runs OCR over one raster page image and aggregates the
// words into blocks. page is the 1-indexed page number tagged onto every
// emitted block. Engine failure returns an empty list, never an error.
func (e *BlockExtractor) ExtractBlocks(ctx context.Context, image []byte, page int) []TextBlock {
	words, err := e.scanner.ScanWords(ctx, image)
	if err != nil {
		e.logger.Warn("OCR engine failed, continuing without text blocks",
			"page", page, "error", err)
		return []TextBlock{}
	}
	return e.aggregate(words, page)
}

// aggregate groups filtered words by block id, preserving the engine's
// emission order for both groups and words within a group so the output
// is deterministic for a fixed engine result.
func (e *BlockExtractor) aggregate(words []Word, page int) []TextBlock {
	groups := make(map[int][]Word)
	var order []int

	for _, w := range words {
		if strings.TrimSpace(w.Text) == "" || w.Confidence <= e.minConfidence {
			continue
		}
		if _, seen := groups[w.BlockID]; !seen {
			order = append(order, w.BlockID)
		}
		groups[w.BlockID] = append(groups[w.BlockID], w)
	}

	blocks := make([]TextBlock, 0, len(order))
	for _, id := range order {
		blocks = append(blocks, mergeGroup(groups[id], page, id))
	}
	return blocks
}

// mergeGroup collapses one block's words into a single TextBlock. The
// group is never empty: aggregate only records ids with a surviving word.
func mergeGroup(words []Word, page int, blockID int) TextBlock {
	texts := make([]string, 0, len(words))
	minX, minY := words[0].BBox.X, words[0].BBox.Y
	maxX := words[0].BBox.X + words[0].BBox.Width
	maxY := words[0].BBox.Y + words[0].BBox.Height
	confSum := 0

	for _, w := range words {
		texts = append(texts, strings.TrimSpace(w.Text))
		confSum += w.Confidence
		if w.BBox.X < minX {
			minX = w.BBox.X
		}
		if w.BBox.Y < minY {
			minY = w.BBox.Y
		}
		if right := w.BBox.X + w.BBox.Width; right > maxX {
			maxX = right
		}
		if bottom := w.BBox.Y + w.BBox.Height; bottom > maxY {
			maxY = bottom
		}
	}

	return TextBlock{
		Text:       strings.Join(texts, " "),
		BBox:       BBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY},
		Page:       page,
		Confidence: confSum / len(words),
		BlockID:    blockID,
	}
}
