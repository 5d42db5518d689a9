package toolbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upperTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: "Test tool: " + name,
		InputSchema: json.RawMessage(`{"type":"object"}`),
		Handler: func(_ context.Context, input json.RawMessage) (string, error) {
			return name + ":" + string(input), nil
		},
	}
}

func TestRegisterAndGet(t *testing.T) {
	b := New()
	b.Register(upperTool("a"), upperTool("b"))

	got, ok := b.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", got.Name)

	_, ok = b.Get("missing")
	assert.False(t, ok)
}

func TestToolsKeepsRegistrationOrder(t *testing.T) {
	b := New()
	b.Register(upperTool("c"), upperTool("a"), upperTool("b"))
	// Replacement keeps position.
	b.Register(upperTool("a"))

	names := make([]string, 0, 3)
	for _, tool := range b.Tools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

func TestCall(t *testing.T) {
	b := New()
	b.Register(upperTool("echo"))

	out, err := b.Call(context.Background(), "echo", json.RawMessage(`{"x":1}`))
	require.NoError(t, err)
	assert.Equal(t, `echo:{"x":1}`, out)
}

func TestCallUnknownTool(t *testing.T) {
	b := New()

	_, err := b.Call(context.Background(), "nope", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestCallPassesHandlerError(t *testing.T) {
	wantErr := errors.New("boom")
	b := New()
	b.Register(Tool{
		Name:        "fail",
		InputSchema: json.RawMessage(`{"type":"object"}`),
		Handler: func(_ context.Context, _ json.RawMessage) (string, error) {
			return "", wantErr
		},
	})

	_, err := b.Call(context.Background(), "fail", nil)
	assert.ErrorIs(t, err, wantErr)
}
