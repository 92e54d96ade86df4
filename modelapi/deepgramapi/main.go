package deepgramapi

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"drivendev/logger"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/pkg/client/listen"
	"go.uber.org/zap"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type DeepgramConnectProps struct {
	Logger *logger.LogMiddleware
	// Language defaults to "multi".
	Language string
}

type DeepgramAPI struct {
	logger   *logger.LogMiddleware
	dg       *api.Client
	language string
}

// Connect reads DEEPGRAM_API_KEY from the environment.
func Connect(ctx context.Context, args DeepgramConnectProps) *DeepgramAPI {
	tracer := otel.Tracer("deepgramapi/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	language := args.Language
	if language == "" {
		language = "multi"
	}

	c := client.NewRESTWithDefaults()
	dg := api.New(c)

	args.Logger.Logger(ctx).Info("[DeepgramAPI] Client started", zap.String("language", language))
	return &DeepgramAPI{logger: args.Logger, dg: dg, language: language}
}

func (d *DeepgramAPI) Transcribe(ctx context.Context, audioData []byte) (string, error) {
	tracer := otel.Tracer("deepgramapi/Transcribe")
	ctx, span := tracer.Start(ctx, "Transcribe")
	defer span.End()

	span.SetAttributes(attribute.Int("audio.data.size", len(audioData)))

	logger := d.logger.Logger(ctx)

	options := &interfaces.PreRecordedTranscriptionOptions{
		Punctuate:   true,
		Diarize:     false,
		Language:    d.language,
		Utterances:  true,
		SmartFormat: true,
		Model:       "nova-3",
	}

	span.AddEvent("Calling Deepgram API")
	res, err := d.dg.FromStream(ctx, bytes.NewReader(audioData), options)
	if err != nil {
		logger.Error("[DeepgramAPI] Transcription failed", zap.Error(err))
		span.RecordError(err)
		return "", fmt.Errorf("deepgram transcription failed: %w", err)
	}

	if res != nil && res.Results != nil && len(res.Results.Channels) > 0 {
		channel := res.Results.Channels[0]
		if len(channel.Alternatives) > 0 {
			transcription := strings.TrimSpace(channel.Alternatives[0].Transcript)
			if transcription != "" {
				logger.Info("[DeepgramAPI] Transcribed audio", zap.Int("transcription.length", len(transcription)))
				span.AddEvent("Transcription successful", trace.WithAttributes(attribute.Int("transcription.length", len(transcription))))
				return transcription, nil
			}
		}
	}

	logger.Warn("[DeepgramAPI] No transcription found in response")
	span.AddEvent("No transcription found in Deepgram response")
	return "", fmt.Errorf("no transcription found in response")
}
