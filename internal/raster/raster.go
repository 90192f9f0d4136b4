/**
 * PDF rasterizer.
 *
 * Renders plan-set PDF pages to in-memory PNG buffers through MuPDF
 * (go-fitz). Two policies: a moderate-DPI render for OCR across pages,
 * and a high-magnification render of the first sheet for vision input.
 * Encrypted or corrupt documents surface ErrRasterizationUnavailable so
 * callers can degrade instead of failing the submission.
 */

package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

// ErrRasterizationUnavailable indicates the document cannot be rendered
// (encrypted, corrupt, or otherwise unreadable by the PDF engine).
var ErrRasterizationUnavailable = errors.New("rasterization unavailable")

const (
	// DefaultDPI balances OCR accuracy against render time across
	// potentially many sheets.
	DefaultDPI = 150

	// VisionScale is the linear magnification applied to the first sheet
	// when image input is needed for a vision-capable reviewer.
	VisionScale = 4

	baseDPI = 72
)

// Page is one rendered page.
type Page struct {
	Number int // 1-indexed
	PNG    []byte
}

// Renderer converts PDF bytes to page raster images.
type Renderer struct {
	dpi float64
}

// NewRenderer creates a renderer at the given OCR DPI. A non-positive
// value falls back to DefaultDPI.
func NewRenderer(dpi float64) *Renderer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Renderer{dpi: dpi}
}

// RenderPages rasterizes the requested pages (1-indexed) at the OCR DPI.
// A nil or empty selector renders every page.
func (r *Renderer) RenderPages(pdf []byte, pages []int) ([]Page, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterizationUnavailable, err)
	}
	defer doc.Close()

	if len(pages) == 0 {
		pages = make([]int, doc.NumPage())
		for i := range pages {
			pages[i] = i + 1
		}
	}

	rendered := make([]Page, 0, len(pages))
	for _, n := range pages {
		if n < 1 || n > doc.NumPage() {
			return nil, fmt.Errorf("page %d out of range (document has %d)", n, doc.NumPage())
		}
		buf, err := r.renderPage(doc, n-1, r.dpi)
		if err != nil {
			return nil, err
		}
		rendered = append(rendered, Page{Number: n, PNG: buf})
	}
	return rendered, nil
}

// RenderFirstPageScaled renders only the first sheet at scale times the
// base 72 DPI for vision input. A non-positive scale uses VisionScale.
func (r *Renderer) RenderFirstPageScaled(pdf []byte, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = VisionScale
	}
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRasterizationUnavailable, err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrRasterizationUnavailable)
	}
	return r.renderPage(doc, 0, scale*baseDPI)
}

func (r *Renderer) renderPage(doc *fitz.Document, index int, dpi float64) ([]byte, error) {
	img, err := doc.ImageDPI(index, dpi)
	if err != nil {
		return nil, fmt.Errorf("%w: render page %d: %v", ErrRasterizationUnavailable, index+1, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page %d: %w", index+1, err)
	}
	return buf.Bytes(), nil
}
