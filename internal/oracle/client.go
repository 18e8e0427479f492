// Package oracle talks to the OpenAI chat API to turn meal descriptions,
// photos, and day totals into structured nutrition feedback.
package oracle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/SblYMblK/FitRose/internal/model"
)

// ErrUnavailable covers every estimation failure: transport errors, empty
// completions, and unparseable payloads. Callers retry by asking the user
// to resubmit, so the sub-cause is only kept in the wrapped message.
var ErrUnavailable = errors.New("oracle unavailable")

// Advice is the day-summary response.
type Advice struct {
	Summary         string
	Recommendations string
}

type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// Client wraps the OpenAI SDK with the fixed prompt set used by the bot.
type Client struct {
	api     openai.Client
	model   string
	timeout time.Duration
	log     *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		api:     openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		log:     log,
	}
}

// EstimateFromText asks for a macro breakdown of a free-text meal description.
func (c *Client) EstimateFromText(ctx context.Context, description string) (model.NutritionEstimate, error) {
	payload, err := c.completeJSON(ctx, "estimate_text", estimateSystemPrompt,
		openai.UserMessage(estimatePrompt(description)))
	if err != nil {
		return model.NutritionEstimate{}, err
	}
	return model.DecodeEstimate(payload), nil
}

// EstimateFromImage asks for a macro breakdown of a meal photo. The caption,
// when present, is prepended to the instruction text.
func (c *Client) EstimateFromImage(ctx context.Context, description string, image []byte) (model.NutritionEstimate, error) {
	payload, err := c.completeJSON(ctx, "estimate_image", visionSystemPrompt,
		openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(visionPrompt(description)),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: imageDataURL(image),
			}),
		}))
	if err != nil {
		return model.NutritionEstimate{}, err
	}
	return model.DecodeEstimate(payload), nil
}

// RefineEstimate reworks a previous estimate using the user's accumulated
// correction notes. The original photo, if any, is attached again so the
// model keeps what it saw in view.
func (c *Client) RefineEstimate(ctx context.Context, corrections string, previous model.NutritionEstimate, description string, image []byte) (model.NutritionEstimate, error) {
	prompt := refinePrompt(corrections, previous, description)
	var user openai.ChatCompletionMessageParamUnion
	if len(image) > 0 {
		user = openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(prompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: imageDataURL(image),
			}),
		})
	} else {
		user = openai.UserMessage(prompt)
	}
	payload, err := c.completeJSON(ctx, "refine", refineSystemPrompt, user)
	if err != nil {
		return model.NutritionEstimate{}, err
	}
	return model.DecodeEstimate(payload), nil
}

// SummarizeDay asks for narrative feedback comparing a day's totals with
// the user's targets.
func (c *Client) SummarizeDay(ctx context.Context, target, actual model.DayTotals) (Advice, error) {
	payload, err := c.completeJSON(ctx, "summarize_day", summarySystemPrompt,
		openai.UserMessage(summaryPrompt(target, actual)))
	if err != nil {
		return Advice{}, err
	}
	return Advice{
		Summary:         flattenText(payload["summary"]),
		Recommendations: flattenText(payload["recommendations"]),
	}, nil
}

func (c *Client) completeJSON(ctx context.Context, op, system string, user openai.ChatCompletionMessageParamUnion) (map[string]any, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			user,
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		c.log.Warn("completion request failed", zap.String("op", op), zap.Error(err))
		return nil, fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		c.log.Warn("completion returned no content", zap.String("op", op))
		return nil, fmt.Errorf("%s: %w: empty completion", op, ErrUnavailable)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		c.log.Warn("completion is not a JSON object", zap.String("op", op), zap.Error(err))
		return nil, fmt.Errorf("%s: %w: decode completion: %v", op, ErrUnavailable, err)
	}
	c.log.Debug("completion ok",
		zap.String("op", op),
		zap.Duration("took", time.Since(start)),
		zap.Int64("total_tokens", resp.Usage.TotalTokens))
	return payload, nil
}

func imageDataURL(image []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)
}

// flattenText mirrors the notes coercion in model: the model occasionally
// answers with a list or nested object where a plain string was asked for.
func flattenText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s := flattenText(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}
