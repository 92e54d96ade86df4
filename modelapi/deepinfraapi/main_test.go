package deepinfraapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"drivendev/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type speechBody struct {
	Model string  `json:"model"`
	Voice string  `json:"voice"`
	Input string  `json:"input"`
	Speed float64 `json:"speed"`
}

func speechServer(t *testing.T, got *speechBody) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3-bytes"))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGenerateSpeechUsesDefaults(t *testing.T) {
	t.Setenv("DEEPINFRA_SECRET_KEY", "test-key")
	t.Setenv("DEEPINFRA_TTS_MODEL", "")
	t.Setenv("DEEPINFRA_VOICE", "")
	t.Setenv("DEEPINFRA_SPEED", "")

	var got speechBody
	server := speechServer(t, &got)

	d := Connect(context.Background(), DeepInfraConnectProps{Logger: logger.Nop(), BaseURL: server.URL})
	audio, err := d.GenerateSpeech(context.Background(), "Hello Ada")
	require.NoError(t, err)

	assert.Equal(t, []byte("mp3-bytes"), audio)
	assert.Equal(t, KOKORO_TTS, got.Model)
	assert.Equal(t, KOKORO_VOICE, got.Voice)
	assert.Equal(t, "Hello Ada", got.Input)
	assert.InDelta(t, DEFAULT_SPEED, got.Speed, 0.001)
}

func TestGenerateSpeechEnvOverrides(t *testing.T) {
	t.Setenv("DEEPINFRA_SECRET_KEY", "test-key")
	t.Setenv("DEEPINFRA_TTS_MODEL", "env-model")
	t.Setenv("DEEPINFRA_VOICE", "env-voice")
	t.Setenv("DEEPINFRA_SPEED", "0.9")

	var got speechBody
	server := speechServer(t, &got)

	d := Connect(context.Background(), DeepInfraConnectProps{Logger: logger.Nop(), BaseURL: server.URL})
	_, err := d.GenerateSpeech(context.Background(), "hi")
	require.NoError(t, err)

	assert.Equal(t, "env-model", got.Model)
	assert.Equal(t, "env-voice", got.Voice)
	assert.InDelta(t, 0.9, got.Speed, 0.001)
}

func TestGenerateSpeechPropsWinOverEnv(t *testing.T) {
	t.Setenv("DEEPINFRA_SECRET_KEY", "test-key")
	t.Setenv("DEEPINFRA_TTS_MODEL", "env-model")
	t.Setenv("DEEPINFRA_VOICE", "env-voice")
	t.Setenv("DEEPINFRA_SPEED", "not-a-number")

	var got speechBody
	server := speechServer(t, &got)

	d := Connect(context.Background(), DeepInfraConnectProps{
		Logger:  logger.Nop(),
		Model:   "props-model",
		Voice:   "props-voice",
		BaseURL: server.URL,
	})
	_, err := d.GenerateSpeech(context.Background(), "hi")
	require.NoError(t, err)

	assert.Equal(t, "props-model", got.Model)
	assert.Equal(t, "props-voice", got.Voice)
	// An unparsable DEEPINFRA_SPEED falls back to the default.
	assert.InDelta(t, DEFAULT_SPEED, got.Speed, 0.001)
}

func TestGenerateSpeechRejected(t *testing.T) {
	t.Setenv("DEEPINFRA_SECRET_KEY", "test-key")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad voice"}}`))
	}))
	defer server.Close()

	d := Connect(context.Background(), DeepInfraConnectProps{Logger: logger.Nop(), BaseURL: server.URL})
	_, err := d.GenerateSpeech(context.Background(), "hi")
	assert.ErrorContains(t, err, "deepinfra speech generation failed")
}
