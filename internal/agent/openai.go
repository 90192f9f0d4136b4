/**
 * OpenAI-backed reviewer agent.
 *
 * Implements the Reviewer capability over chat completions using the
 * official openai-go SDK. Text-grounded requests go out as a plain chat
 * exchange; vision requests attach the first-sheet render as a data URL
 * and pin the response to a strict JSON schema. A client is constructed
 * per call; nothing is shared across concurrent submissions.
 */

package agent

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIReviewer talks to the OpenAI chat completions API.
type OpenAIReviewer struct {
	model string
	opts  []option.RequestOption
}

// OpenAISettings configures the reviewer client.
type OpenAISettings struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewOpenAIReviewer validates settings and builds the reviewer.
func NewOpenAIReviewer(cfg OpenAISettings) (*OpenAIReviewer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIReviewer{model: cfg.Model, opts: opts}, nil
}

// Review performs one call-and-wait exchange with the upstream model.
func (o *OpenAIReviewer) Review(ctx context.Context, req Request) (*Reply, error) {
	client := openai.NewClient(o.opts...)

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{buildUserMessage(req)},
	}
	if req.AgentRef != "" {
		params.User = openai.String(req.AgentRef)
	}
	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.SchemaName,
					Schema: req.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: empty choices")
	}

	return &Reply{
		Text: resp.Choices[0].Message.Content,
		Ref:  resp.ID,
	}, nil
}

func buildUserMessage(req Request) openai.ChatCompletionMessageParamUnion {
	if len(req.ImagePNG) == 0 {
		return openai.UserMessage(req.Message)
	}

	dataURL := fmt.Sprintf("data:image/png;base64,%s",
		base64.StdEncoding.EncodeToString(req.ImagePNG))
	return openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.Message),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: dataURL,
		}),
	})
}
