/**
 * Prompt formatter.
 *
 * Renders extracted OCR blocks into a deterministic, position-annotated
 * text document so a text-only reviewer can reference specific plan
 * regions without image input. Blocks are ordered top-to-bottom then
 * left-to-right within each page; identical input always produces an
 * identical document.
 */

package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/planroom/review-worker/internal/ocr"
)

const noTextExtracted = "No text extracted from the document."

// FormatBlocks renders OCR blocks into the reference text stream embedded
// in text-grounded review prompts.
func FormatBlocks(blocks []ocr.TextBlock) string {
	if len(blocks) == 0 {
		return noTextExtracted
	}

	pages := make(map[int][]ocr.TextBlock)
	var pageOrder []int
	for _, b := range blocks {
		if _, seen := pages[b.Page]; !seen {
			pageOrder = append(pageOrder, b.Page)
		}
		pages[b.Page] = append(pages[b.Page], b)
	}
	sort.Ints(pageOrder)

	var sb strings.Builder
	sb.WriteString("=== EXTRACTED TEXT FROM PLAN DOCUMENTS: USE ONLY FOR REFERENCE NOT COMMENTS ===\n\n")

	for _, page := range pageOrder {
		pageBlocks := pages[page]

		// Approximate natural reading order. Stable sort keeps the engine's
		// emission order for blocks sharing a position.
		sort.SliceStable(pageBlocks, func(i, j int) bool {
			if pageBlocks[i].BBox.Y != pageBlocks[j].BBox.Y {
				return pageBlocks[i].BBox.Y < pageBlocks[j].BBox.Y
			}
			return pageBlocks[i].BBox.X < pageBlocks[j].BBox.X
		})

		fmt.Fprintf(&sb, "PAGE %d (%d text blocks):\n", page, len(pageBlocks))
		sb.WriteString(strings.Repeat("-", 40))
		sb.WriteString("\n")

		for i, b := range pageBlocks {
			fmt.Fprintf(&sb, "Block %d [Position: x=%d, y=%d, size=%dx%d, confidence=%d%%]:\n",
				i+1, b.BBox.X, b.BBox.Y, b.BBox.Width, b.BBox.Height, b.Confidence)
			fmt.Fprintf(&sb, "  %q\n", b.Text)
			sb.WriteString("\n")
		}

		sb.WriteString("\n")
	}

	sb.WriteString("=== END EXTRACTED TEXT ===\n")
	return sb.String()
}
