package rpc_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerly/invoice-mcp/internal/rpc"
)

func newTestServer(t *testing.T) *rpc.Server {
	t.Helper()

	echo := rpc.Tool{
		Name:        "echo",
		Description: "Echo the message argument",
		InputSchema: map[string]any{"type": "object"},
		Handler: func(_ context.Context, args map[string]any) (string, error) {
			msg, _ := args["message"].(string)
			if msg == "" {
				return "", rpc.NewError(rpc.CodeInvalidParams, "missing required field: message")
			}
			if msg == "boom" {
				return "", errors.New("handler exploded")
			}
			if msg == "auth" {
				return "", rpc.NewError(rpc.CodeAuthRequired, "re-authorize")
			}
			return "echo: " + msg, nil
		},
	}

	return rpc.NewServer(rpc.ServerInfo{
		ProtocolVersion: "2024-11-05",
		Name:            "test-mcp",
		Version:         "v1.0.0",
	}, zerolog.Nop(), echo)
}

func serve(t *testing.T, input string) []map[string]any {
	t.Helper()

	var out bytes.Buffer
	err := newTestServer(t).Serve(context.Background(), strings.NewReader(input), &out)
	require.NoError(t, err)

	var replies []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var reply map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &reply), "each output line must be JSON")
		replies = append(replies, reply)
	}

	return replies
}

func TestServeKnownMethodsReplyOnceWithMatchingID(t *testing.T) {
	cases := []struct {
		name  string
		input string
		id    any
	}{
		{
			name:  "initialize",
			input: `{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
			id:    float64(1),
		},
		{
			name:  "tools list",
			input: `{"jsonrpc":"2.0","id":"abc","method":"tools/list"}`,
			id:    "abc",
		},
		{
			name:  "tools call",
			input: `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"echo","arguments":{"message":"hi"}}}`,
			id:    float64(7),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			replies := serve(t, tc.input+"\n")
			require.Len(t, replies, 1)
			assert.Equal(t, "2.0", replies[0]["jsonrpc"])
			assert.Equal(t, tc.id, replies[0]["id"])
			assert.NotNil(t, replies[0]["result"])
			assert.Nil(t, replies[0]["error"])
		})
	}
}

func TestServeSkipsBannerAndEmptyLines(t *testing.T) {
	input := strings.Join([]string{
		"",
		"Starting tool host v2",
		"   ",
		"ready> waiting for input",
		"not json at all",
	}, "\n") + "\n"

	replies := serve(t, input)
	assert.Empty(t, replies)
}

func TestServeMalformedJSON(t *testing.T) {
	t.Run("mentions jsonrpc so it gets an error reply", func(t *testing.T) {
		replies := serve(t, `{"jsonrpc":"2.0","id":3,"method":"tools/list"`+"\n")
		require.Len(t, replies, 1)
		assert.Equal(t, "error", replies[0]["id"])

		errObj, ok := replies[0]["error"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(rpc.CodeInternal), errObj["code"])
		assert.Equal(t, "Internal error", errObj["message"])
	})

	t.Run("random broken json is dropped", func(t *testing.T) {
		replies := serve(t, `{"foo": "bar"`+"\n")
		assert.Empty(t, replies)
	})
}

func TestServeUnknownMethod(t *testing.T) {
	replies := serve(t, `{"jsonrpc":"2.0","id":5,"method":"resources/list"}`+"\n")
	require.Len(t, replies, 1)

	errObj := replies[0]["error"].(map[string]any)
	assert.Equal(t, float64(rpc.CodeMethodNotFound), errObj["code"])
	assert.Equal(t, "Method not found", errObj["message"])
}

func TestServeNotificationsProduceNoReply(t *testing.T) {
	replies := serve(t, `{"jsonrpc":"2.0","method":"notifications/initialized"}`+"\n")
	assert.Empty(t, replies)
}

func TestServeToolCall(t *testing.T) {
	cases := []struct {
		name         string
		params       string
		expectedText string
		expectedCode int
	}{
		{
			name:         "success result is a text content block",
			params:       `{"name":"echo","arguments":{"message":"hello"}}`,
			expectedText: "echo: hello",
		},
		{
			name:         "unknown tool",
			params:       `{"name":"nope","arguments":{}}`,
			expectedCode: rpc.CodeInvalidParams,
		},
		{
			name:         "missing argument",
			params:       `{"name":"echo","arguments":{}}`,
			expectedCode: rpc.CodeInvalidParams,
		},
		{
			name:         "plain handler error becomes internal",
			params:       `{"name":"echo","arguments":{"message":"boom"}}`,
			expectedCode: rpc.CodeInternal,
		},
		{
			name:         "typed handler error keeps its code",
			params:       `{"name":"echo","arguments":{"message":"auth"}}`,
			expectedCode: rpc.CodeAuthRequired,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := `{"jsonrpc":"2.0","id":9,"method":"tools/call","params":` + tc.params + `}` + "\n"
			replies := serve(t, input)
			require.Len(t, replies, 1)

			if tc.expectedCode != 0 {
				errObj, ok := replies[0]["error"].(map[string]any)
				require.True(t, ok, "expected an error envelope")
				assert.Equal(t, float64(tc.expectedCode), errObj["code"])
				assert.Nil(t, replies[0]["result"])
				return
			}

			result, ok := replies[0]["result"].(map[string]any)
			require.True(t, ok, "expected a result envelope")
			content := result["content"].([]any)
			require.Len(t, content, 1)
			block := content[0].(map[string]any)
			assert.Equal(t, "text", block["type"])
			assert.Equal(t, tc.expectedText, block["text"])
		})
	}
}

func TestServeRepliesInRequestOrder(t *testing.T) {
	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"message":"a"}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/list"}`,
	}, "\n") + "\n"

	replies := serve(t, input)
	require.Len(t, replies, 3)
	for i, reply := range replies {
		assert.Equal(t, float64(i+1), reply["id"])
	}
}

func TestToolsListManifest(t *testing.T) {
	replies := serve(t, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`+"\n")
	require.Len(t, replies, 1)

	result := replies[0]["result"].(map[string]any)
	tools := result["tools"].([]any)
	require.Len(t, tools, 1)

	manifest := tools[0].(map[string]any)
	assert.Equal(t, "echo", manifest["name"])
	assert.NotEmpty(t, manifest["description"])
	assert.NotNil(t, manifest["inputSchema"])
}

func TestInitializeShape(t *testing.T) {
	replies := serve(t, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`+"\n")
	require.Len(t, replies, 1)

	result := replies[0]["result"].(map[string]any)
	assert.Equal(t, "2024-11-05", result["protocolVersion"])

	serverInfo := result["serverInfo"].(map[string]any)
	assert.Equal(t, "test-mcp", serverInfo["name"])
	assert.Equal(t, "v1.0.0", serverInfo["version"])

	capabilities := result["capabilities"].(map[string]any)
	_, hasTools := capabilities["tools"]
	assert.True(t, hasTools)
}
