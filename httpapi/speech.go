package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"drivendev/dialogue"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const maxAudioBytes = 25 << 20

type ttsRequest struct {
	Text string `json:"text"`
}

type sttResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
}

func (s *Server) textToSpeech(w http.ResponseWriter, r *http.Request) {
	tracer := otel.Tracer("httpapi/textToSpeech")
	ctx, span := tracer.Start(r.Context(), "textToSpeech")
	defer span.End()

	if s.speech == nil {
		writeError(w, http.StatusInternalServerError, errorTypeConfiguration, "Text-to-speech is not configured")
		return
	}

	var body ttsRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, errorTypeValidation, "Invalid request body")
		return
	}
	text := strings.TrimSpace(body.Text)
	if text == "" {
		s.fail(w, r, &dialogue.RequestError{Kind: dialogue.ErrValidation, Message: "Text is required"})
		return
	}
	span.SetAttributes(attribute.Int("text.length", len(text)))

	audio, err := s.speech.GenerateSpeech(ctx, text)
	if err != nil {
		s.fail(w, r.WithContext(ctx), fmt.Errorf("%w: %w", errSpeech, err))
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	w.Write(audio)
}

func (s *Server) speechToText(w http.ResponseWriter, r *http.Request) {
	tracer := otel.Tracer("httpapi/speechToText")
	ctx, span := tracer.Start(r.Context(), "speechToText")
	defer span.End()

	if s.transcriber == nil {
		writeError(w, http.StatusInternalServerError, errorTypeConfiguration, "Speech-to-text is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)
	file, _, err := r.FormFile("audio")
	if err != nil {
		s.fail(w, r, &dialogue.RequestError{Kind: dialogue.ErrValidation, Message: "Audio file is required"})
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil || len(audio) == 0 {
		s.fail(w, r, &dialogue.RequestError{Kind: dialogue.ErrValidation, Message: "Audio file is empty"})
		return
	}
	span.SetAttributes(attribute.Int("audio.size", len(audio)))

	text, err := s.transcriber.Transcribe(ctx, audio)
	if err != nil {
		s.fail(w, r.WithContext(ctx), fmt.Errorf("%w: %w", errSpeech, err))
		return
	}
	writeJSON(w, http.StatusOK, sttResponse{Success: true, Text: text})
}
