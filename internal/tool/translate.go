package tool

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ledgerly/invoice-mcp/internal/action"
	"github.com/ledgerly/invoice-mcp/internal/intent"
	"github.com/ledgerly/invoice-mcp/internal/rpc"
)

type actionResolver interface {
	Resolve(ctx context.Context, message string) (intent.ResolvedAction, bool)
}

type actionExecutor interface {
	Execute(ctx context.Context, act intent.ResolvedAction) ([]byte, error)
}

// Translate implements the natural-language entry tool: resolve the
// user's message into an action, execute it, render the result.
type Translate struct {
	resolver actionResolver
	executor actionExecutor
	log      zerolog.Logger
}

// NewTranslate creates the tool.
func NewTranslate(resolver actionResolver, executor actionExecutor, log zerolog.Logger) *Translate {
	return &Translate{resolver: resolver, executor: executor, log: log}
}

// Tool returns the RPC registration for process_request.
func (t *Translate) Tool() rpc.Tool {
	return rpc.Tool{
		Name:        "process_request",
		Description: "Process a natural-language request against the invoicing database",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{
					"type":        "string",
					"description": "The user's request in natural language",
				},
			},
			"required": []string{"message"},
		},
		Handler: t.handle,
	}
}

func (t *Translate) handle(ctx context.Context, args map[string]any) (string, error) {
	message, _ := args["message"].(string)
	if message == "" {
		return "", rpc.NewError(rpc.CodeInvalidParams, "missing required field: message")
	}

	resolved, ok := t.resolver.Resolve(ctx, message)
	if !ok {
		// Semantic failure is a normal result, not an error envelope.
		return intent.FallbackReply, nil
	}

	if !resolved.Actionable {
		if resolved.Response == "" {
			return intent.FallbackReply, nil
		}
		return resolved.Response, nil
	}

	body, err := t.executor.Execute(ctx, resolved)
	if err != nil {
		return "", rpc.NewError(rpc.CodeInternal, err.Error())
	}

	return action.FormatResult(resolved, body), nil
}
