package anthropicapi

import (
	"context"
	"errors"
	"testing"

	"drivendev/logger"
	"drivendev/modelapi"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessages struct {
	response *anthropic.Message
	err      error
	calls    []anthropic.MessageNewParams
}

func (f *fakeMessages) New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func textMessage(parts ...string) *anthropic.Message {
	msg := &anthropic.Message{}
	for _, p := range parts {
		msg.Content = append(msg.Content, anthropic.ContentBlockUnion{Type: "text", Text: p})
	}
	return msg
}

func TestComplete(t *testing.T) {
	fake := &fakeMessages{response: textMessage("COMPLETE: Yes\n", "MISSING: None ")}
	client := Connect(context.Background(), AnthropicConnectProps{Logger: logger.Nop(), Model: "test-model", Messages: fake})

	got, err := client.Complete(context.Background(), "validate", "Question 1: Why?", 0.3)
	require.NoError(t, err)
	assert.Equal(t, "COMPLETE: Yes\nMISSING: None", got)

	require.Len(t, fake.calls, 1)
	call := fake.calls[0]
	assert.Equal(t, anthropic.Model("test-model"), call.Model)
	require.Len(t, call.System, 1)
	assert.Equal(t, "validate", call.System[0].Text)
	assert.Equal(t, 0.3, call.Temperature.Value)
}

func TestCompleteErrors(t *testing.T) {
	fake := &fakeMessages{err: errors.New("overloaded")}
	client := Connect(context.Background(), AnthropicConnectProps{Logger: logger.Nop(), Messages: fake})

	_, err := client.Complete(context.Background(), "s", "u", 0.7)
	assert.ErrorContains(t, err, "overloaded")

	fake.err = nil
	fake.response = textMessage("   ")
	_, err = client.Complete(context.Background(), "s", "u", 0.7)
	assert.ErrorIs(t, err, modelapi.ErrEmptyCompletion)
}
