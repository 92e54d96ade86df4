package openaiapi

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"drivendev/logger"
	"drivendev/modelapi"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
)

const DEFAULT_CHAT_MODEL = "gpt-4o"

type OpenAI struct {
	logger    *logger.LogMiddleware
	semaphore *semaphore.Weighted
	client    *openai.Client
	model     string
}

type OpenAIConnectProps struct {
	Logger *logger.LogMiddleware
	// Model defaults to OPENAI_MODEL, then DEFAULT_CHAT_MODEL.
	Model string
}

func Connect(ctx context.Context, args OpenAIConnectProps) *OpenAI {
	tracer := otel.Tracer("openaiapi/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	maxWorkers := 10
	sem := semaphore.NewWeighted(int64(maxWorkers))

	OPENAI_SECRET_KEY := os.Getenv("OPENAI_SECRET_KEY")
	if OPENAI_SECRET_KEY == "" {
		OPENAI_SECRET_KEY = os.Getenv("OPENAI_API_KEY")
	}

	model := args.Model
	if model == "" {
		model = os.Getenv("OPENAI_MODEL")
	}
	if model == "" {
		model = DEFAULT_CHAT_MODEL
	}

	span.SetAttributes(attribute.Int("maxWorkers", maxWorkers), attribute.String("model", model))
	client := openai.NewClient(
		option.WithAPIKey(OPENAI_SECRET_KEY),
	)

	args.Logger.Logger(ctx).Info("[OpenAIAPI] Client started", zap.String("model", model))
	return &OpenAI{logger: args.Logger, semaphore: sem, client: &client, model: model}
}

func (d *OpenAI) Complete(ctx context.Context, systemPrompt string, userMessage string, temperature float64) (string, error) {
	tracer := otel.Tracer("openaiapi/Complete")
	ctx, span := tracer.Start(ctx, "Complete")
	defer span.End()

	span.SetAttributes(attribute.String("model", d.model), attribute.Float64("temperature", temperature))

	if err := d.semaphore.Acquire(ctx, 1); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("could not acquire worker: %w", err)
	}
	defer d.semaphore.Release(1)

	res, err := d.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(d.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userMessage),
		},
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		span.RecordError(err)
		d.logger.Logger(ctx).Error("[OpenAIAPI] Chat completion failed", zap.Error(err))
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(res.Choices) == 0 || strings.TrimSpace(res.Choices[0].Message.Content) == "" {
		span.RecordError(modelapi.ErrEmptyCompletion)
		return "", modelapi.ErrEmptyCompletion
	}

	span.SetAttributes(attribute.Int64("totalTokens", res.Usage.TotalTokens))
	return strings.TrimSpace(res.Choices[0].Message.Content), nil
}

func (d *OpenAI) GenerateSpeech(ctx context.Context, inputText string) ([]byte, error) {
	tracer := otel.Tracer("openaiapi/GenerateSpeech")
	ctx, span := tracer.Start(ctx, "GenerateSpeech")
	defer span.End()

	d.logger.Logger(ctx).Info("[OpenAIAPI] Generating speech", zap.Int("inputLength", len(inputText)))

	res, err := d.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
		Model:          openai.SpeechModelGPT4oMiniTTS,
		Input:          inputText,
		Voice:          openai.AudioSpeechNewParamsVoiceSage,
		Instructions:   param.Opt[string]{Value: modelapi.STYLE_INSTRUCTION},
	})
	if err != nil {
		span.RecordError(err)
		d.logger.Logger(ctx).Error("[OpenAIAPI] Speech generation failed", zap.Error(err))
		return nil, fmt.Errorf("openai speech generation failed: %w", err)
	}
	defer res.Body.Close()

	return io.ReadAll(res.Body)
}
