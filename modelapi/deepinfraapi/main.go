package deepinfraapi

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"drivendev/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
)

const (
	DEFAULT_BASE_URL = "https://api.deepinfra.com/v1/openai"
	KOKORO_TTS       = "hexgrad/Kokoro-82M"
	KOKORO_VOICE     = "hf_beta"
	DEFAULT_SPEED    = 1.15
)

type DeepInfraConnectProps struct {
	Logger *logger.LogMiddleware
	// Model defaults to DEEPINFRA_TTS_MODEL, then KOKORO_TTS.
	Model string
	// Voice defaults to DEEPINFRA_VOICE, then KOKORO_VOICE.
	Voice string
	// Speed defaults to DEEPINFRA_SPEED, then DEFAULT_SPEED.
	Speed   float64
	BaseURL string
}

type DeepInfra struct {
	logger    *logger.LogMiddleware
	semaphore *semaphore.Weighted
	client    *openai.Client
	model     string
	voice     string
	speed     float64
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func Connect(ctx context.Context, args DeepInfraConnectProps) *DeepInfra {
	tracer := otel.Tracer("deepinfraapi/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	maxWorkers := 10
	sem := semaphore.NewWeighted(int64(maxWorkers))

	model := firstNonEmpty(args.Model, os.Getenv("DEEPINFRA_TTS_MODEL"), KOKORO_TTS)
	voice := firstNonEmpty(args.Voice, os.Getenv("DEEPINFRA_VOICE"), KOKORO_VOICE)
	baseURL := firstNonEmpty(args.BaseURL, DEFAULT_BASE_URL)

	speed := args.Speed
	if speed <= 0 {
		speed = DEFAULT_SPEED
		if raw := os.Getenv("DEEPINFRA_SPEED"); raw != "" {
			if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
				speed = parsed
			} else {
				args.Logger.Logger(ctx).Warn("[DeepInfraAPI] Ignoring invalid DEEPINFRA_SPEED", zap.String("value", raw))
			}
		}
	}

	span.SetAttributes(
		attribute.Int("maxWorkers", maxWorkers),
		attribute.String("model", model),
		attribute.String("voice", voice),
	)

	client := openai.NewClient(
		option.WithAPIKey(os.Getenv("DEEPINFRA_SECRET_KEY")),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(2),
	)

	args.Logger.Logger(ctx).Info("[DeepInfraAPI] Client started", zap.String("model", model), zap.String("voice", voice))
	return &DeepInfra{logger: args.Logger, semaphore: sem, client: &client, model: model, voice: voice, speed: speed}
}

// GenerateSpeech voices NOVA through DeepInfra's OpenAI-compatible
// speech endpoint.
func (d *DeepInfra) GenerateSpeech(ctx context.Context, inputText string) ([]byte, error) {
	tracer := otel.Tracer("deepinfraapi/GenerateSpeech")
	ctx, span := tracer.Start(ctx, "GenerateSpeech")
	defer span.End()

	span.SetAttributes(attribute.Int("inputLength", len(inputText)), attribute.String("model", d.model))

	if err := d.semaphore.Acquire(ctx, 1); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not acquire worker: %w", err)
	}
	defer d.semaphore.Release(1)

	res, err := d.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
		Model:          d.model,
		Input:          inputText,
		Voice:          openai.AudioSpeechNewParamsVoice(d.voice),
		Speed:          param.NewOpt(d.speed),
	})
	if err != nil {
		span.RecordError(err)
		d.logger.Logger(ctx).Error("[DeepInfraAPI] Speech generation failed", zap.Error(err), zap.String("voice", d.voice))
		return nil, fmt.Errorf("deepinfra speech generation failed: %w", err)
	}
	defer res.Body.Close()

	audio, err := io.ReadAll(res.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not read deepinfra audio: %w", err)
	}
	span.SetAttributes(attribute.Int("audioSize", len(audio)))
	return audio, nil
}
