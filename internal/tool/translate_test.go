package tool_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerly/invoice-mcp/internal/intent"
	"github.com/ledgerly/invoice-mcp/internal/rpc"
	"github.com/ledgerly/invoice-mcp/internal/tool"
)

func TestTranslateMissingMessage(t *testing.T) {
	translate := tool.NewTranslate(&resolverMock{}, &executorMock{}, zerolog.Nop())

	for _, args := range []map[string]any{{}, {"message": ""}, {"message": 42}} {
		_, err := translate.Tool().Handler(context.Background(), args)

		var rpcErr *rpc.Error
		require.ErrorAs(t, err, &rpcErr)
		assert.Equal(t, rpc.CodeInvalidParams, rpcErr.Code)
	}
}

func TestTranslateConversational(t *testing.T) {
	resolver := &resolverMock{
		ResolveFunc: func(_ context.Context, message string) (intent.ResolvedAction, bool) {
			assert.Equal(t, "hello", message)
			return intent.ResolvedAction{Actionable: false, Response: "Hi there!"}, true
		},
	}
	executor := &executorMock{
		ExecuteFunc: func(context.Context, intent.ResolvedAction) ([]byte, error) {
			return nil, errors.New("must not be called")
		},
	}

	translate := tool.NewTranslate(resolver, executor, zerolog.Nop())
	text, err := translate.Tool().Handler(context.Background(), map[string]any{"message": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", text)
	assert.Equal(t, 0, executor.calls, "conversational replies never reach the executor")
}

func TestTranslateUnresolvable(t *testing.T) {
	resolver := &resolverMock{
		ResolveFunc: func(context.Context, string) (intent.ResolvedAction, bool) {
			return intent.ResolvedAction{}, false
		},
	}
	executor := &executorMock{
		ExecuteFunc: func(context.Context, intent.ResolvedAction) ([]byte, error) {
			return nil, errors.New("must not be called")
		},
	}

	translate := tool.NewTranslate(resolver, executor, zerolog.Nop())
	text, err := translate.Tool().Handler(context.Background(), map[string]any{"message": "gibberish"})
	require.NoError(t, err, "semantic failure is a normal result")
	assert.Equal(t, intent.FallbackReply, text)
	assert.Equal(t, 0, executor.calls)
}

func TestTranslateActionable(t *testing.T) {
	resolver := &resolverMock{
		ResolveFunc: func(context.Context, string) (intent.ResolvedAction, bool) {
			return intent.ResolvedAction{
				Actionable:  true,
				Method:      "GET",
				Endpoint:    "/clients",
				Description: "all clients",
			}, true
		},
	}
	executor := &executorMock{
		ExecuteFunc: func(_ context.Context, act intent.ResolvedAction) ([]byte, error) {
			assert.Equal(t, "/clients", act.Endpoint)
			return []byte(`[{"id":"1","name":"A"}]`), nil
		},
	}

	translate := tool.NewTranslate(resolver, executor, zerolog.Nop())
	text, err := translate.Tool().Handler(context.Background(), map[string]any{"message": "list all clients"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "📋 all clients"), "got: %s", text)
	assert.Contains(t, text, `"name": "A"`)
	assert.Equal(t, 1, executor.calls)
}

func TestTranslateExecutorFailure(t *testing.T) {
	resolver := &resolverMock{
		ResolveFunc: func(context.Context, string) (intent.ResolvedAction, bool) {
			return intent.ResolvedAction{Actionable: true, Method: "GET", Endpoint: "/clients/99"}, true
		},
	}
	executor := &executorMock{
		ExecuteFunc: func(context.Context, intent.ResolvedAction) ([]byte, error) {
			return nil, errors.New("HTTP 404: client not found")
		},
	}

	translate := tool.NewTranslate(resolver, executor, zerolog.Nop())
	_, err := translate.Tool().Handler(context.Background(), map[string]any{"message": "show client 99"})

	var rpcErr *rpc.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, rpc.CodeInternal, rpcErr.Code)
	assert.Equal(t, "HTTP 404: client not found", rpcErr.Message)
}
