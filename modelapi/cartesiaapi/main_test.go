package cartesiaapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"drivendev/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSpeech(t *testing.T) {
	t.Setenv("CARTESIA_API_KEY", "test-key")

	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		assert.Equal(t, "/tts/bytes", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))

		var req TTSRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "voice-1", req.Voice.ID)
		assert.Equal(t, "Hello Ada", req.Transcript)

		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	c := Connect(context.Background(), CartesiaConnectProps{
		Logger:     logger.Nop(),
		VoiceID:    "voice-1",
		BaseURL:    server.URL,
		RetryDelay: time.Millisecond,
	})

	audio, err := c.GenerateSpeech(context.Background(), "Hello Ada")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), audio)
	assert.Equal(t, 2, attempts)
}

func TestGenerateSpeechNeedsKey(t *testing.T) {
	t.Setenv("CARTESIA_API_KEY", "")

	c := Connect(context.Background(), CartesiaConnectProps{Logger: logger.Nop()})
	_, err := c.GenerateSpeech(context.Background(), "hi")
	assert.Error(t, err)
}
