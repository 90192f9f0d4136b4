package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/planroom/review-worker/internal/agent"
	"github.com/planroom/review-worker/internal/ocr"
	"github.com/planroom/review-worker/internal/raster"
	"github.com/planroom/review-worker/internal/registry"
	"github.com/planroom/review-worker/internal/review"
)

const reviewerDoc = `{
	"reviewers": [
		{"name": "Stormwater Reviewer", "assistant_id": "asst_storm"},
		{"name": "Fire Reviewer", "assistant_id": "asst_fire"}
	]
}`

// fakeAgent records requests and returns a canned reply or error.
type fakeAgent struct {
	reply    *agent.Reply
	err      error
	requests []agent.Request
}

func (f *fakeAgent) Review(_ context.Context, req agent.Request) (*agent.Reply, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

// fakeRenderer serves canned page renders without touching MuPDF.
type fakeRenderer struct {
	pages     []raster.Page
	first     []byte
	renderErr error
	calls     int
}

func (f *fakeRenderer) RenderPages(_ []byte, _ []int) ([]raster.Page, error) {
	f.calls++
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	return f.pages, nil
}

func (f *fakeRenderer) RenderFirstPageScaled(_ []byte, _ float64) ([]byte, error) {
	f.calls++
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	return f.first, nil
}

// fakeExtractor returns one block per scanned page.
type fakeExtractor struct {
	pagesSeen []int
}

func (f *fakeExtractor) ExtractBlocks(_ context.Context, _ []byte, page int) []ocr.TextBlock {
	f.pagesSeen = append(f.pagesSeen, page)
	return []ocr.TextBlock{{
		Text:       "SITE PLAN",
		BBox:       ocr.BBox{X: 10, Y: 20, Width: 100, Height: 30},
		Page:       page,
		Confidence: 88,
		BlockID:    1,
	}}
}

func newTestPipeline(t *testing.T, a agent.Reviewer, r Rasterizer, e BlockExtractor) *Pipeline {
	t.Helper()
	reg, err := registry.Load([]byte(reviewerDoc))
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	p, err := New(Config{
		Registry:      reg,
		Agent:         a,
		Renderer:      r,
		Extractor:     e,
		SubmitTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func TestSubmitTextGroundedSuccess(t *testing.T) {
	raw := `{"comments":[` +
		`{"body":"Show impervious surface calculations","severity":"major","category":"stormwater"},` +
		`{"body":"Label the drainage easement","severity":"minor","category":"stormwater"}]}`
	a := &fakeAgent{reply: &agent.Reply{Text: raw, Ref: "resp_123"}}
	r := &fakeRenderer{pages: []raster.Page{{Number: 1, PNG: []byte("png")}}}
	e := &fakeExtractor{}
	p := newTestPipeline(t, a, r, e)

	result := p.Submit(context.Background(), Request{
		RoomID:       "room-7",
		Title:        "Oak Grove Phase 2",
		PDF:          []byte("%PDF-fake"),
		ReviewerName: "Stormwater Reviewer",
	})

	if result.Status != review.StatusSuccess {
		t.Fatalf("status = %s, error = %q", result.Status, result.Error)
	}
	if len(result.CommentsData.Comments) != 2 {
		t.Fatalf("comments = %d, want 2", len(result.CommentsData.Comments))
	}
	if result.CommentsData.Comments[0].Body != "Show impervious surface calculations" {
		t.Errorf("unexpected first comment: %+v", result.CommentsData.Comments[0])
	}
	if result.RawResponse != raw {
		t.Error("raw response must be retained for audit")
	}
	if result.ExternalRef != "resp_123" {
		t.Errorf("external ref = %q", result.ExternalRef)
	}

	if len(a.requests) != 1 {
		t.Fatalf("upstream calls = %d, want 1", len(a.requests))
	}
	msg := a.requests[0].Message
	if !strings.Contains(msg, "Plan Title: Oak Grove Phase 2") {
		t.Error("prompt missing plan title")
	}
	if !strings.Contains(msg, `"SITE PLAN"`) {
		t.Error("prompt missing OCR block text")
	}
	if a.requests[0].AgentRef != "asst_storm" {
		t.Errorf("agent ref = %q", a.requests[0].AgentRef)
	}
	if a.requests[0].ImagePNG != nil || a.requests[0].Schema != nil {
		t.Error("text-grounded mode must not attach image or schema")
	}
}

func TestSubmitUnknownReviewerSkipsUpstream(t *testing.T) {
	a := &fakeAgent{reply: &agent.Reply{Text: "{}"}}
	r := &fakeRenderer{}
	p := newTestPipeline(t, a, r, &fakeExtractor{})

	result := p.Submit(context.Background(), Request{
		RoomID:       "room-7",
		Title:        "Anything",
		PDF:          []byte("%PDF-fake"),
		ReviewerName: "Unknown Reviewer",
	})

	if result.Status != review.StatusError {
		t.Fatalf("status = %s, want error", result.Status)
	}
	if !strings.Contains(result.Error, "Unknown Reviewer") {
		t.Errorf("error should name the missing reviewer: %q", result.Error)
	}
	if len(result.CommentsData.Comments) != 0 {
		t.Error("error result must carry no comments")
	}
	if len(a.requests) != 0 {
		t.Error("no upstream call may be attempted for an unknown reviewer")
	}
	if r.calls != 0 {
		t.Error("no rasterization should happen before the registry lookup")
	}
}

func TestSubmitUpstreamFailure(t *testing.T) {
	a := &fakeAgent{err: errors.New("connection reset")}
	r := &fakeRenderer{pages: []raster.Page{{Number: 1, PNG: []byte("png")}}}
	e := &fakeExtractor{}
	p := newTestPipeline(t, a, r, e)

	result := p.Submit(context.Background(), Request{
		RoomID:       "room-9",
		Title:        "Cedar Ridge",
		PDF:          []byte("%PDF-fake"),
		ReviewerName: "Fire Reviewer",
	})

	if result.Status != review.StatusError {
		t.Fatalf("status = %s, want error", result.Status)
	}
	if result.Error != "Failed to get response from Fire Reviewer" {
		t.Errorf("error = %q", result.Error)
	}
	if len(result.CommentsData.Comments) != 0 {
		t.Error("comments must be empty on upstream failure")
	}
	if strings.Contains(result.Error+result.Details, "connection reset") {
		t.Error("internal error text must not leak into the result")
	}
	// OCR still ran before the upstream attempt; its output is discarded.
	if len(e.pagesSeen) != 1 {
		t.Errorf("extractor pages seen = %v", e.pagesSeen)
	}
}

func TestSubmitDegradesWhenRasterizationUnavailable(t *testing.T) {
	a := &fakeAgent{reply: &agent.Reply{Text: "looks fine to me"}}
	r := &fakeRenderer{renderErr: raster.ErrRasterizationUnavailable}
	p := newTestPipeline(t, a, r, &fakeExtractor{})

	result := p.Submit(context.Background(), Request{
		RoomID:       "room-3",
		Title:        "Encrypted Plans",
		PDF:          []byte("encrypted"),
		ReviewerName: "Stormwater Reviewer",
	})

	// Text-grounded mode survives without OCR context.
	if result.Status != review.StatusSuccess {
		t.Fatalf("status = %s, error = %q", result.Status, result.Error)
	}
	if len(a.requests) != 1 {
		t.Fatalf("upstream calls = %d, want 1", len(a.requests))
	}
	if !strings.Contains(a.requests[0].Message, "No text extracted from the document.") {
		t.Error("prompt should carry the no-text placeholder")
	}
	// Prose response decodes to the single fallback comment.
	if len(result.CommentsData.Comments) != 1 {
		t.Fatalf("comments = %d, want 1 fallback", len(result.CommentsData.Comments))
	}
	if result.CommentsData.Comments[0].Category != review.CategoryStormwater {
		t.Errorf("fallback category = %s", result.CommentsData.Comments[0].Category)
	}
}

func TestSubmitVisionMode(t *testing.T) {
	raw := `{"reasoning":"scale bar region inspected","comments":[{"body":"No ADA ramp shown at the north entrance","severity":"major","category":"ada"}]}`
	a := &fakeAgent{reply: &agent.Reply{Text: raw, Ref: "resp_v1"}}
	r := &fakeRenderer{first: []byte("big-png")}
	p := newTestPipeline(t, a, r, &fakeExtractor{})

	result := p.Submit(context.Background(), Request{
		RoomID:     "room-5",
		Title:      "Maple Court",
		PDF:        []byte("%PDF-fake"),
		VisionMode: true,
	})

	if result.Status != review.StatusSuccess {
		t.Fatalf("status = %s, error = %q", result.Status, result.Error)
	}
	if len(result.CommentsData.Comments) != 1 {
		t.Fatalf("comments = %d, want 1", len(result.CommentsData.Comments))
	}
	if len(a.requests) != 1 {
		t.Fatalf("upstream calls = %d, want 1", len(a.requests))
	}
	req := a.requests[0]
	if string(req.ImagePNG) != "big-png" {
		t.Error("vision request must attach the first-sheet render")
	}
	if req.Schema == nil || req.SchemaName != review.SchemaVersion {
		t.Error("vision request must carry the versioned response schema")
	}
}

func TestSubmitVisionModeRequiresRenderableDocument(t *testing.T) {
	a := &fakeAgent{reply: &agent.Reply{Text: "{}"}}
	r := &fakeRenderer{renderErr: raster.ErrRasterizationUnavailable}
	p := newTestPipeline(t, a, r, &fakeExtractor{})

	result := p.Submit(context.Background(), Request{
		RoomID:     "room-5",
		Title:      "Broken PDF",
		PDF:        []byte("junk"),
		VisionMode: true,
	})

	if result.Status != review.StatusError {
		t.Fatalf("status = %s, want error", result.Status)
	}
	if len(a.requests) != 0 {
		t.Error("vision mode must not call upstream without an image")
	}
}

func TestSubmitBoundsUpstreamWait(t *testing.T) {
	// An agent that honors ctx: it blocks until cancellation.
	blocking := reviewFunc(func(ctx context.Context, _ agent.Request) (*agent.Reply, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	r := &fakeRenderer{pages: []raster.Page{{Number: 1, PNG: []byte("png")}}}
	reg, err := registry.Load([]byte(reviewerDoc))
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	p, err := New(Config{
		Registry:      reg,
		Agent:         blocking,
		Renderer:      r,
		Extractor:     &fakeExtractor{},
		SubmitTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	start := time.Now()
	result := p.Submit(context.Background(), Request{
		RoomID:       "room-1",
		Title:        "Slow Reviewer",
		PDF:          []byte("%PDF-fake"),
		ReviewerName: "Stormwater Reviewer",
	})

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("submit blocked for %v despite timeout", elapsed)
	}
	if result.Status != review.StatusError {
		t.Fatalf("status = %s, want error after timeout", result.Status)
	}
	if result.Details != "reviewer did not respond within the submission timeout" {
		t.Errorf("details = %q", result.Details)
	}
}

type reviewFunc func(ctx context.Context, req agent.Request) (*agent.Reply, error)

func (f reviewFunc) Review(ctx context.Context, req agent.Request) (*agent.Reply, error) {
	return f(ctx, req)
}
