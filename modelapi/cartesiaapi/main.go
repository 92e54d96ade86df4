package cartesiaapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"drivendev/httpmiddleware"
	"drivendev/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	DEFAULT_BASE_URL = "https://api.cartesia.ai"
	DEFAULT_VOICE_ID = "a0e99841-438c-4a64-b679-ae501e7d6091"
	CARTESIA_VERSION = "2024-06-10"
)

type CartesiaConnectProps struct {
	Logger *logger.LogMiddleware
	// VoiceID defaults to CARTESIA_VOICE_ID, then DEFAULT_VOICE_ID.
	VoiceID string
	BaseURL string
	// RetryDelay is the first retry delay; later ones double it.
	RetryDelay time.Duration
}

type Cartesia struct {
	logger     *logger.LogMiddleware
	semaphore  *semaphore.Weighted
	voiceID    string
	baseURL    string
	retryDelay time.Duration
}

const maxRetries = 3

type VoiceConfig struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type OutputFormat struct {
	Container  string `json:"container"`
	BitRate    int    `json:"bit_rate"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate"`
}

type TTSRequest struct {
	ModelID      string       `json:"model_id"`
	Transcript   string       `json:"transcript"`
	Voice        VoiceConfig  `json:"voice"`
	OutputFormat OutputFormat `json:"output_format"`
	Language     string       `json:"language"`
}

func Connect(ctx context.Context, args CartesiaConnectProps) *Cartesia {
	tracer := otel.Tracer("cartesiaapi/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	maxWorkers := 10
	sem := semaphore.NewWeighted(int64(maxWorkers))

	voiceID := args.VoiceID
	if voiceID == "" {
		voiceID = os.Getenv("CARTESIA_VOICE_ID")
	}
	if voiceID == "" {
		voiceID = DEFAULT_VOICE_ID
	}
	baseURL := args.BaseURL
	if baseURL == "" {
		baseURL = DEFAULT_BASE_URL
	}
	retryDelay := args.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	span.SetAttributes(attribute.Int("maxWorkers", maxWorkers), attribute.String("voiceID", voiceID))

	return &Cartesia{logger: args.Logger, semaphore: sem, voiceID: voiceID, baseURL: baseURL, retryDelay: retryDelay}
}

func (c *Cartesia) GenerateSpeech(ctx context.Context, text string) ([]byte, error) {
	tracer := otel.Tracer("cartesiaapi/GenerateSpeech")
	ctx, span := tracer.Start(ctx, "GenerateSpeech")
	defer span.End()

	logger := c.logger.Logger(ctx)

	if err := c.semaphore.Acquire(ctx, 1); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to acquire semaphore: %w", err)
	}
	defer c.semaphore.Release(1)

	apiKey := os.Getenv("CARTESIA_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("CARTESIA_API_KEY environment variable not set")
	}

	request := TTSRequest{
		ModelID:    "sonic-2",
		Transcript: text,
		Voice: VoiceConfig{
			Mode: "id",
			ID:   c.voiceID,
		},
		OutputFormat: OutputFormat{
			Container:  "mp3",
			BitRate:    128000,
			SampleRate: 44100,
		},
		Language: "en",
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var respBody []byte
	for attempt := 0; attempt < maxRetries; attempt++ {
		respBody, err = httpmiddleware.HttpRequest(httpmiddleware.HttpRequestStruct{
			Ctx:    ctx,
			Method: "POST",
			Url:    c.baseURL + "/tts/bytes",
			Body:   bytes.NewBuffer(jsonData),
			Headers: map[string]string{
				"X-API-Key":        apiKey,
				"Cartesia-Version": CARTESIA_VERSION,
				"Content-Type":     "application/json",
			},
		})
		if err == nil {
			break
		}

		span.RecordError(err)
		logger.Warn("[CartesiaAPI] Failed to generate speech, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("maxRetries", maxRetries))

		if attempt == maxRetries-1 {
			return nil, fmt.Errorf("failed to generate speech after %d attempts: %w", maxRetries, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelay * time.Duration(1<<attempt)):
		}
	}

	logger.Info("[CartesiaAPI] Generated speech", zap.Int("audioSize", len(respBody)))
	return respBody, nil
}
