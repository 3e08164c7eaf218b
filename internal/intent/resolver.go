package intent

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
)

// FallbackReply is returned as a normal tool result whenever the model
// output cannot be mapped onto an action. It is deliberately not an RPC
// error so the host presents it to the user.
const FallbackReply = "I couldn't understand that request. Could you rephrase it?"

// ResolvedAction is the model's verdict on one user message. Actionable
// false means Response is shown verbatim and no HTTP call happens.
type ResolvedAction struct {
	Actionable  bool            `json:"actionable"`
	Method      string          `json:"method"`
	Endpoint    string          `json:"endpoint"`
	Data        json.RawMessage `json:"data,omitempty"`
	Description string          `json:"description,omitempty"`
	Response    string          `json:"response,omitempty"`
}

type completer interface {
	Complete(ctx context.Context, userMessage string) (string, error)
}

// Resolver asks the LLM for an action and parses the reply.
type Resolver struct {
	llm completer
	log zerolog.Logger
}

// NewResolver creates a Resolver on top of the given completion client.
func NewResolver(llm completer, log zerolog.Logger) *Resolver {
	return &Resolver{llm: llm, log: log}
}

// Resolve returns the parsed action, or ok=false when the LLM is
// unreachable or its output holds no parseable action. The executor
// must never be called on ok=false.
func (r *Resolver) Resolve(ctx context.Context, message string) (ResolvedAction, bool) {
	reply, err := r.llm.Complete(ctx, message)
	if err != nil {
		r.log.Warn().Err(err).Msg("Completion request failed")
		return ResolvedAction{}, false
	}

	slice, ok := ExtractJSON(reply)
	if !ok {
		r.log.Warn().Str("reply", truncate(reply, 200)).Msg("No JSON found in model reply")
		return ResolvedAction{}, false
	}

	var action ResolvedAction
	if err := json.Unmarshal([]byte(slice), &action); err != nil {
		r.log.Warn().Err(err).Msg("Extracted JSON did not parse as an action")
		return ResolvedAction{}, false
	}

	return action, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
