package anthropicapi

import (
	"context"
	"fmt"
	"os"
	"strings"

	"drivendev/logger"
	"drivendev/modelapi"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	DEFAULT_MODEL      = "claude-sonnet-4-5"
	DEFAULT_MAX_TOKENS = 1024
)

// MessagesClient is the part of the SDK client Complete uses.
type MessagesClient interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicConnectProps struct {
	Logger *logger.LogMiddleware
	// Model defaults to ANTHROPIC_MODEL, then DEFAULT_MODEL.
	Model string
	// Messages replaces the SDK client, mostly for tests.
	Messages MessagesClient
}

type Anthropic struct {
	logger    *logger.LogMiddleware
	semaphore *semaphore.Weighted
	messages  MessagesClient
	model     string
}

func Connect(ctx context.Context, args AnthropicConnectProps) *Anthropic {
	tracer := otel.Tracer("anthropicapi/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	maxWorkers := 10

	model := args.Model
	if model == "" {
		model = os.Getenv("ANTHROPIC_MODEL")
	}
	if model == "" {
		model = DEFAULT_MODEL
	}

	messages := args.Messages
	if messages == nil {
		opts := []option.RequestOption{}
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			opts = append(opts, option.WithAPIKey(key))
		}
		client := anthropic.NewClient(opts...)
		messages = &client.Messages
	}

	span.SetAttributes(attribute.Int("maxWorkers", maxWorkers), attribute.String("model", model))
	args.Logger.Logger(ctx).Info("[AnthropicAPI] Client started", zap.String("model", model))

	return &Anthropic{
		logger:    args.Logger,
		semaphore: semaphore.NewWeighted(int64(maxWorkers)),
		messages:  messages,
		model:     model,
	}
}

func (a *Anthropic) Complete(ctx context.Context, systemPrompt string, userMessage string, temperature float64) (string, error) {
	tracer := otel.Tracer("anthropicapi/Complete")
	ctx, span := tracer.Start(ctx, "Complete")
	defer span.End()

	span.SetAttributes(attribute.String("model", a.model), attribute.Float64("temperature", temperature))

	if err := a.semaphore.Acquire(ctx, 1); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("could not acquire worker: %w", err)
	}
	defer a.semaphore.Release(1)

	message, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: DEFAULT_MAX_TOKENS,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)),
		},
		Temperature: anthropic.Float(temperature),
	})
	if err != nil {
		span.RecordError(err)
		a.logger.Logger(ctx).Error("[AnthropicAPI] Message request failed", zap.Error(err))
		return "", fmt.Errorf("anthropic message request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	span.SetAttributes(attribute.Int64("tokensUsed", message.Usage.InputTokens+message.Usage.OutputTokens))

	result := strings.TrimSpace(text.String())
	if result == "" {
		return "", modelapi.ErrEmptyCompletion
	}
	return result, nil
}
