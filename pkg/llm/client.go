// Package llm wraps an OpenAI-compatible chat endpoint that answers with
// schema-constrained JSON.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const defaultModel = "gpt-4o-mini"

// Client issues one structured completion per call.
type Client interface {
	Chat(ctx context.Context, req Request, result any) (*Response, error)
	Model() string
}

// Request is a single system+user prompt pair with an output schema.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	SchemaName   string
	Schema       any
	MaxTokens    int
	Temperature  *float64
}

// Response reports token usage.
type Response struct {
	PromptTokens     int
	CompletionTokens int
}

// Config configures the remote endpoint.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

type client struct {
	openai openai.Client
	model  string
	logger *zap.Logger
}

// New builds a Client. The API key is mandatory.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &client{
		openai: openai.NewClient(opts...),
		model:  model,
		logger: logger,
	}, nil
}

func (c *client) Chat(ctx context.Context, req Request, result any) (*Response, error) {
	ctx, span := otel.Tracer("dormfix/llm").Start(ctx, "llm.chat")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", c.model),
		attribute.String("llm.schema", req.SchemaName),
	)

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
		MaxTokens: openai.Int(int64(maxTokens)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        req.SchemaName,
					Description: openai.String("Structured response schema"),
					Schema:      req.Schema,
					Strict:      openai.Bool(true),
				},
			},
		},
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	start := time.Now()
	resp, err := c.openai.Chat.Completions.New(ctx, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat completion failed")
		return nil, fmt.Errorf("openai chat: %w", err)
	}

	c.logger.Debug("llm chat completed",
		zap.String("model", c.model),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)

	if len(resp.Choices) == 0 {
		span.SetStatus(codes.Error, "empty response")
		return nil, fmt.Errorf("no choices in response")
	}

	if err := Decode(resp.Choices[0].Message.Content, result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed response")
		return nil, err
	}

	return &Response{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

func (c *client) Model() string {
	return c.model
}

// Decode unmarshals a model reply into result.
func Decode(content string, result any) error {
	if content == "" {
		return fmt.Errorf("empty response content")
	}
	if err := json.Unmarshal([]byte(content), result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// GenerateSchema reflects a closed JSON schema for T.
func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// Temp returns a pointer to t for Request.Temperature.
func Temp(t float64) *float64 {
	return &t
}

// IsRetryable reports whether err is a rate limit, a server fault or a
// network failure. Cancellation and 4xx replies are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return true
}
