package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"drivendev/content"
	"drivendev/dialogue"
	"drivendev/logger"
	"drivendev/modelapi"
	"drivendev/progress"
	"drivendev/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cannedOracle struct{}

func (cannedOracle) Complete(ctx context.Context, systemPrompt string, userMessage string, temperature float64) (string, error) {
	switch {
	case systemPrompt == modelapi.CLASSIFIER_SYSTEM_PROMPT:
		return "SCENARIO_1", nil
	case strings.Contains(userMessage, "NOVA's latest response:"):
		return "COMPLETE: Yes\nMISSING: None", nil
	default:
		return "Thanks for sharing that.", nil
	}
}

type fakeSpeech struct {
	audio []byte
	text  string
	err   error
}

func (f *fakeSpeech) GenerateSpeech(ctx context.Context, inputText string) ([]byte, error) {
	return f.audio, f.err
}

func (f *fakeSpeech) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return f.text, f.err
}

type testClient struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
}

func (c *testClient) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		c.cookies = cookies
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func newTestServer(t *testing.T, speech *fakeSpeech) *testClient {
	t.Helper()
	ctx := context.Background()
	log := logger.Nop()

	seeds, err := content.LoadSeeds(ctx)
	require.NoError(t, err)

	tracker := progress.Connect(ctx, progress.TrackerConnectProps{Logger: log, Store: progress.NewMemoryStore()})
	engine := dialogue.NewEngine(dialogue.EngineProps{
		Logger:   log,
		Content:  content.NewStatic(seeds...),
		Sessions: dialogue.NewMemoryStore(),
		Progress: tracker,
		Oracle:   cannedOracle{},
	})

	props := ServerConnectProps{
		Logger:   log,
		Dialogue: engine,
		Progress: tracker,
		Sessions: session.Connect(ctx, session.ManagerConnectProps{Logger: log, Secret: "test-secret"}),
	}
	if speech != nil {
		props.Speech = speech
		props.Transcriber = speech
	}
	return &testClient{t: t, handler: Connect(ctx, props).Handler()}
}

func TestHealth(t *testing.T) {
	c := newTestServer(t, nil)

	rec := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "ok"}, decode(t, rec))
}

func TestWeekFlow(t *testing.T) {
	c := newTestServer(t, nil)

	rec := c.do(http.MethodPost, "/week1/api/initialize", map[string]string{"name": "Ada"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["week"])
	assert.Contains(t, body["message"], "Hi Ada")
	require.NotEmpty(t, c.cookies)
	assert.Equal(t, session.CookieName, c.cookies[0].Name)

	rec = c.do(http.MethodPost, "/week1/api/get_next_message", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decode(t, rec)
	assert.Equal(t, true, body["awaiting_response"])
	assert.Equal(t, float64(1), body["question_number"])
	assert.Equal(t, "Why did you decide to participate in the DRIVEN program?", body["message"])

	rec = c.do(http.MethodPost, "/week1/api/process_response", map[string]any{"message": "I want a steady job."})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decode(t, rec)
	assert.Equal(t, "Thanks for sharing that.", body["response"])
	assert.Equal(t, true, body["move_to_next"])
	assert.Equal(t, false, body["needs_followup"])
	assert.Equal(t, float64(0), body["iteration"])
	assert.Nil(t, body["followup_question"])

	rec = c.do(http.MethodGet, "/week1/api/progress/week/1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	status := decode(t, rec)["status"].(map[string]any)
	assert.Equal(t, map[string]any{"1": true}, status["questions_completed"])

	rec = c.do(http.MethodGet, "/week3/api/progress/status", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body = decode(t, rec)
	assert.Equal(t, float64(1), body["current_week"])
	assert.Len(t, body["weeks"], len(progress.Weeks))
}

func TestValidationErrors(t *testing.T) {
	c := newTestServer(t, nil)

	rec := c.do(http.MethodPost, "/week2/api/initialize", map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Name is required", body["error"])
	assert.Equal(t, errorTypeValidation, body["error_type"])

	rec = c.do(http.MethodPost, "/week2/api/process_response", map[string]any{"message": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Message is required", decode(t, rec)["error"])

	rec = c.do(http.MethodPost, "/week2/api/process_response", map[string]any{"message": "hi", "question_number": 99})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errorTypeState, decode(t, rec)["error_type"])
}

func TestProgressNeedsSession(t *testing.T) {
	c := newTestServer(t, nil)

	for _, path := range []string{"/week1/api/progress/status", "/week1/api/progress/week/2"} {
		rec := c.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "No session found", decode(t, rec)["error"], path)
	}
	rec := c.do(http.MethodPost, "/week1/api/progress/check-unlock", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, c.cookies)
}

func TestCheckUnlockDefaultsToMountedWeek(t *testing.T) {
	c := newTestServer(t, nil)
	c.do(http.MethodPost, "/week4/api/get_next_message", map[string]any{})
	require.NotEmpty(t, c.cookies)

	rec := c.do(http.MethodPost, "/week4/api/progress/check-unlock", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(4), body["week"])
	assert.Equal(t, true, body["unlocked"])

	rec = c.do(http.MethodPost, "/week4/api/progress/check-unlock", map[string]any{"week_number": 6})
	assert.Equal(t, float64(6), decode(t, rec)["week"])
}

func TestUnknownWeekIsNotMounted(t *testing.T) {
	c := newTestServer(t, nil)

	rec := c.do(http.MethodPost, "/week9/api/get_next_message", map[string]any{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTextToSpeech(t *testing.T) {
	speech := &fakeSpeech{audio: []byte("mp3")}
	c := newTestServer(t, speech)

	rec := c.do(http.MethodPost, "/api/tts", map[string]string{"text": "Hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "mp3", rec.Body.String())

	rec = c.do(http.MethodPost, "/api/tts", map[string]string{"text": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	speech.err = errors.New("provider down")
	rec = c.do(http.MethodPost, "/api/tts", map[string]string{"text": "Hello"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, errorTypeSpeech, decode(t, rec)["error_type"])
}

func TestSpeechNotConfigured(t *testing.T) {
	c := newTestServer(t, nil)

	rec := c.do(http.MethodPost, "/api/tts", map[string]string{"text": "Hello"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, errorTypeConfiguration, decode(t, rec)["error_type"])
}

func TestSpeechToText(t *testing.T) {
	speech := &fakeSpeech{text: "I want a job"}
	c := newTestServer(t, speech)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "clip.webm")
	require.NoError(t, err)
	part.Write([]byte("audio-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/stt", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "I want a job", body["text"])

	rec = c.do(http.MethodPost, "/api/stt", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
