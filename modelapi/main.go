package modelapi

import (
	"context"
	"errors"
)

var ErrEmptyCompletion = errors.New("model returned an empty completion")

// Completer is a single-turn chat completion: one system prompt, one user
// message, text back. Every LLM provider client satisfies it.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, userMessage string, temperature float64) (string, error)
}

// Synthesizer turns text into encoded audio.
type Synthesizer interface {
	GenerateSpeech(ctx context.Context, inputText string) ([]byte, error)
}

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
