/**
 * Plan review submission pipeline.
 *
 * Orchestrates one submission: rasterize the plan set, extract OCR text
 * blocks, compose the reviewer-specific prompt, dispatch to the external
 * AI reviewer, and decode the response into located comments.
 *
 * Failure policy: a registry miss and an upstream call failure surface
 * as status=error, as does an unrenderable document in vision mode where
 * the sheet image is mandatory. In text mode rasterization and OCR
 * failures degrade the submission (no text context) and a malformed
 * reviewer response decodes to a fallback comment; none fail the call.
 */

package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/planroom/review-worker/internal/agent"
	rwerrors "github.com/planroom/review-worker/internal/errors"
	"github.com/planroom/review-worker/internal/logging"
	"github.com/planroom/review-worker/internal/ocr"
	"github.com/planroom/review-worker/internal/prompt"
	"github.com/planroom/review-worker/internal/raster"
	"github.com/planroom/review-worker/internal/registry"
	"github.com/planroom/review-worker/internal/review"
)

// DefaultSubmitTimeout bounds the wait on the external reviewer. The
// upstream exchange can take tens of seconds; it must never block
// unboundedly.
const DefaultSubmitTimeout = 120 * time.Second

// Rasterizer is the PDF rendering capability consumed by the pipeline.
type Rasterizer interface {
	RenderPages(pdf []byte, pages []int) ([]raster.Page, error)
	RenderFirstPageScaled(pdf []byte, scale float64) ([]byte, error)
}

// BlockExtractor is the OCR capability consumed by the pipeline.
type BlockExtractor interface {
	ExtractBlocks(ctx context.Context, image []byte, page int) []ocr.TextBlock
}

// Request describes one plan submission.
type Request struct {
	RoomID string
	Title  string
	PDF    []byte

	// ReviewerName selects a registered text-grounded reviewer. Ignored
	// when VisionMode is set.
	ReviewerName string

	// VisionMode requests the schema-constrained, image-grounded path,
	// independent of the named-reviewer mechanism.
	VisionMode bool
}

// Config wires the pipeline's collaborators. All handles are injected so
// tests can substitute fakes.
type Config struct {
	Registry      *registry.Registry
	Agent         agent.Reviewer
	Renderer      Rasterizer
	Extractor     BlockExtractor
	SubmitTimeout time.Duration
	VisionScale   float64
}

// Pipeline is the submission dispatcher. It holds no mutable state;
// concurrent Submit calls are independent.
type Pipeline struct {
	registry      *registry.Registry
	agent         agent.Reviewer
	renderer      Rasterizer
	extractor     BlockExtractor
	submitTimeout time.Duration
	visionScale   float64
	logger        *logging.Logger
}

// New creates a pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Agent == nil {
		return nil, errors.New("reviewer agent is required")
	}
	if cfg.Renderer == nil {
		return nil, errors.New("renderer is required")
	}
	if cfg.Extractor == nil {
		return nil, errors.New("block extractor is required")
	}
	timeout := cfg.SubmitTimeout
	if timeout <= 0 {
		timeout = DefaultSubmitTimeout
	}
	scale := cfg.VisionScale
	if scale <= 0 {
		scale = raster.VisionScale
	}
	return &Pipeline{
		registry:      cfg.Registry,
		agent:         cfg.Agent,
		renderer:      cfg.Renderer,
		extractor:     cfg.Extractor,
		submitTimeout: timeout,
		visionScale:   scale,
		logger:        logging.NewLogger("Pipeline"),
	}, nil
}

// Submit runs one submission end to end. It never returns an error: the
// outcome, including failures, is expressed in the result's status.
func (p *Pipeline) Submit(ctx context.Context, req Request) *review.SubmissionResult {
	ctx, cancel := context.WithTimeout(ctx, p.submitTimeout)
	defer cancel()

	if req.VisionMode {
		return p.submitVision(ctx, req)
	}
	return p.submitText(ctx, req)
}

// submitText runs the text-grounded path: raster at OCR DPI, block
// extraction, position-annotated prompt, free-form chat exchange.
func (p *Pipeline) submitText(ctx context.Context, req Request) *review.SubmissionResult {
	profile, err := p.registry.Lookup(req.ReviewerName)
	if err != nil {
		p.logger.Warn("Reviewer lookup failed", "room", req.RoomID, "reviewer", req.ReviewerName)
		return errorResult(req.ReviewerName, err)
	}

	ocrText := p.extractPlanText(ctx, req)

	p.logger.Info("Dispatching plan to reviewer",
		"room", req.RoomID, "reviewer", profile.Name, "title", req.Title)

	reply, err := p.agent.Review(ctx, agent.Request{
		AgentRef: profile.AgentRef,
		Message:  profile.Instructions(req.Title, ocrText),
	})
	if err != nil {
		upstream := rwerrors.NewUpstreamAIError(profile.Name, err)
		p.logger.Error("Upstream reviewer call failed",
			"room", req.RoomID, "reviewer", profile.Name, "error", err)
		return errorResult(profile.Name, upstream)
	}

	decoded := review.Decode(reply.Text, profile.Name)
	p.logger.Info("Review decoded",
		"room", req.RoomID, "state", decoded.State, "comments", len(decoded.Comments))

	return &review.SubmissionResult{
		Status:       review.StatusSuccess,
		CommentsData: review.CommentSet{Comments: decoded.Comments},
		RawResponse:  reply.Text,
		ExternalRef:  reply.Ref,
		ReviewerName: profile.Name,
	}
}

// submitVision runs the image-grounded path: first sheet at high
// magnification under a strict response schema. The image is mandatory
// here, so an unrenderable document is a hard error.
func (p *Pipeline) submitVision(ctx context.Context, req Request) *review.SubmissionResult {
	image, err := p.renderer.RenderFirstPageScaled(req.PDF, p.visionScale)
	if err != nil {
		p.logger.Error("First sheet could not be rendered for vision review",
			"room", req.RoomID, "error", err)
		return errorResult("", rwerrors.NewRasterUnavailableError(err))
	}

	p.logger.Info("Dispatching first sheet for vision review",
		"room", req.RoomID, "title", req.Title, "imageBytes", len(image))

	reply, err := p.agent.Review(ctx, agent.Request{
		Message:    prompt.VisionInstructions(req.Title),
		ImagePNG:   image,
		SchemaName: review.SchemaVersion,
		Schema:     review.CommentSchema(),
	})
	if err != nil {
		upstream := rwerrors.NewUpstreamAIError("vision reviewer", err)
		p.logger.Error("Upstream vision call failed", "room", req.RoomID, "error", err)
		return errorResult("", upstream)
	}

	decoded := review.Decode(reply.Text, "")
	p.logger.Info("Vision review decoded",
		"room", req.RoomID, "state", decoded.State, "comments", len(decoded.Comments))

	return &review.SubmissionResult{
		Status:       review.StatusSuccess,
		CommentsData: review.CommentSet{Comments: decoded.Comments},
		RawResponse:  reply.Text,
		ExternalRef:  reply.Ref,
	}
}

// extractPlanText rasterizes the plan and runs block extraction over each
// page. Both stages degrade: an unrenderable document or a failing OCR
// engine yields the no-text placeholder instead of aborting.
func (p *Pipeline) extractPlanText(ctx context.Context, req Request) string {
	pages, err := p.renderer.RenderPages(req.PDF, nil)
	if err != nil {
		p.logger.Warn("Rasterization unavailable, continuing without OCR context",
			"room", req.RoomID, "error", err)
		return prompt.FormatBlocks(nil)
	}

	var blocks []ocr.TextBlock
	for _, page := range pages {
		blocks = append(blocks, p.extractor.ExtractBlocks(ctx, page.PNG, page.Number)...)
	}
	p.logger.Info("OCR extraction complete",
		"room", req.RoomID, "pages", len(pages), "blocks", len(blocks))

	return prompt.FormatBlocks(blocks)
}

// errorResult builds the stable caller-facing error outcome. Internal
// error text stays in the log; the result carries the short message and a
// coarse detail.
func errorResult(reviewerName string, err error) *review.SubmissionResult {
	result := &review.SubmissionResult{
		Status:       review.StatusError,
		CommentsData: review.CommentSet{Comments: []review.Comment{}},
		ReviewerName: reviewerName,
	}

	var reviewErr *rwerrors.ReviewError
	if errors.As(err, &reviewErr) {
		result.Error = reviewErr.Message
		result.Details = detailFor(reviewErr)
		return result
	}
	result.Error = "Failed to process plan for review"
	return result
}

func detailFor(err *rwerrors.ReviewError) string {
	switch err.Code {
	case rwerrors.ErrorUpstreamAI:
		if errors.Is(err, context.DeadlineExceeded) {
			return "reviewer did not respond within the submission timeout"
		}
		return "upstream reviewer call failed"
	case rwerrors.ErrorRasterUnavailable:
		return "document is encrypted, corrupt, or otherwise unrenderable"
	default:
		return ""
	}
}
