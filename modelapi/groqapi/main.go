package groqapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"drivendev/httpmiddleware"
	"drivendev/logger"
	"drivendev/modelapi"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	ASSISTANT = "assistant"
	SYSTEM    = "system"
	USER      = "user"
)

const (
	DEFAULT_MODEL    = "llama-3.3-70b-versatile"
	DEFAULT_BASE_URL = "https://api.groq.com/openai/v1"
	maxTokens        = 2048
	defaultRetries   = 3
	defaultBaseDelay = 5 * time.Second
)

type ChatCompletionInputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequestInput struct {
	Model       string                       `json:"model"`
	Messages    []ChatCompletionInputMessage `json:"messages"`
	MaxTokens   int                          `json:"max_tokens"`
	Temperature *float64                     `json:"temperature,omitempty"`
}

type GroqResponse struct {
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GroqConnectProps struct {
	Logger *logger.LogMiddleware
	// Model defaults to GROQ_MODEL, then DEFAULT_MODEL.
	Model   string
	BaseURL string
	// BaseDelay is the first retry delay; later ones double it.
	BaseDelay time.Duration
}

type Groq struct {
	logger    *logger.LogMiddleware
	semaphore *semaphore.Weighted
	model     string
	baseURL   string
	baseDelay time.Duration
}

func Connect(ctx context.Context, args GroqConnectProps) *Groq {
	tracer := otel.Tracer("groqapi/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	maxWorkers := 10
	sem := semaphore.NewWeighted(int64(maxWorkers))

	model := args.Model
	if model == "" {
		model = os.Getenv("GROQ_MODEL")
	}
	if model == "" {
		model = DEFAULT_MODEL
	}
	baseURL := args.BaseURL
	if baseURL == "" {
		baseURL = DEFAULT_BASE_URL
	}
	baseDelay := args.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}

	span.SetAttributes(attribute.Int("maxWorkers", maxWorkers), attribute.String("model", model))

	return &Groq{logger: args.Logger, semaphore: sem, model: model, baseURL: baseURL, baseDelay: baseDelay}
}

type MakeAPIRequestProps struct {
	Retries      int
	RequestInput ChatRequestInput
}

// Used for retry logic.
func GetExponentialDelay(base time.Duration, retryNumber int) time.Duration {
	return time.Duration(float64(base) * math.Pow(2, float64(retryNumber)))
}

func (o *Groq) MakeAPIRequest(ctx context.Context, args MakeAPIRequestProps) (*GroqResponse, error) {
	tracer := otel.Tracer("groqapi/MakeAPIRequest")
	ctx, span := tracer.Start(ctx, "MakeAPIRequest")
	defer span.End()

	API_KEY := os.Getenv("GROQ_SECRET_KEY")
	URL := o.baseURL + "/chat/completions"

	span.SetAttributes(
		attribute.String("api.url", URL),
		attribute.Int("request.max_tokens", args.RequestInput.MaxTokens),
		attribute.String("request.model", args.RequestInput.Model),
	)

	retries := args.Retries
	originalRetries := args.Retries

	jsonData, err := json.Marshal(args.RequestInput)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not generate request body: %w", err)
	}

	span.SetAttributes(attribute.Int("retries", retries))

	var lastErr error
	for retries > 0 {
		sleepTime := GetExponentialDelay(o.baseDelay, originalRetries-retries)

		respBody, err := o.post(ctx, URL, API_KEY, jsonData)
		if err != nil {
			lastErr = err
			span.RecordError(err)
			retries -= 1
			o.logger.Logger(ctx).Error(
				"[Groq-API] Could not make request to Groq. Retrying after sleeping.",
				zap.Error(err),
				zap.Int("retries_left", retries),
				zap.Duration("sleep_time", sleepTime),
			)
		} else {
			var messageResponse GroqResponse
			err = json.Unmarshal(respBody, &messageResponse)
			if err == nil && len(messageResponse.Choices) > 0 {
				span.AddEvent("Request successful")
				return &messageResponse, nil
			}
			if err == nil {
				err = modelapi.ErrEmptyCompletion
			}
			lastErr = err
			span.RecordError(err)
			retries -= 1
			o.logger.Logger(ctx).Error(
				"[Groq-API] Could not parse Groq Request. Retrying after sleeping.",
				zap.Int("retries_left", retries),
				zap.Duration("sleep_time", sleepTime),
				zap.Error(err),
				zap.String("response_body", string(respBody)),
			)
		}

		if retries == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleepTime):
		}
	}

	span.AddEvent("All retries exhausted")
	return nil, fmt.Errorf("groq requests failed: %w", lastErr)
}

func (o *Groq) post(ctx context.Context, url string, apiKey string, body []byte) ([]byte, error) {
	if err := o.semaphore.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire semaphore: %w", err)
	}
	defer o.semaphore.Release(1)

	return httpmiddleware.HttpRequest(httpmiddleware.HttpRequestStruct{
		Ctx:    ctx,
		Method: "POST",
		Url:    url,
		Body:   bytes.NewBuffer(body),
		Headers: map[string]string{
			"authorization": "Bearer " + apiKey,
			"content-type":  "application/json",
		},
	})
}

func (a *Groq) Complete(ctx context.Context, systemPrompt string, userMessage string, temperature float64) (string, error) {
	tracer := otel.Tracer("groqapi/Complete")
	ctx, span := tracer.Start(ctx, "Complete")
	defer span.End()

	span.SetAttributes(attribute.Float64("temperature", temperature))

	resp, err := a.MakeAPIRequest(ctx, MakeAPIRequestProps{
		Retries: defaultRetries,
		RequestInput: ChatRequestInput{
			Model:     a.model,
			MaxTokens: maxTokens,
			Messages: []ChatCompletionInputMessage{
				{Role: SYSTEM, Content: systemPrompt},
				{Role: USER, Content: userMessage},
			},
			Temperature: &temperature,
		},
	})
	if err != nil {
		return "", err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", modelapi.ErrEmptyCompletion
	}
	return content, nil
}
