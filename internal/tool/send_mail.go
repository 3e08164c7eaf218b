package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerly/invoice-mcp/internal/compose"
	"github.com/ledgerly/invoice-mcp/internal/gservice"
	"github.com/ledgerly/invoice-mcp/internal/rpc"
)

const reauthorizeHint = "Please re-authorize Gmail from the extension sidebar."

type mailProvider interface {
	Send(ctx context.Context, token, raw string) (string, error)
	Draft(ctx context.Context, token, raw string) (string, error)
}

type tokenSource interface {
	Token() (string, error)
	Adopt(token string, expiry time.Time)
	Invalidate()
}

type siblingFetcher interface {
	Fetch(ctx context.Context) (string, time.Time, error)
}

// SendMail implements the gmail_send tool: compose, encode, upload.
type SendMail struct {
	provider mailProvider
	tokens   tokenSource
	sibling  siblingFetcher
	log      zerolog.Logger
}

// NewSendMail creates the tool. sibling may be nil; it is consulted
// only when the local store has no usable token (secondary role).
func NewSendMail(provider mailProvider, tokens tokenSource, sibling siblingFetcher, log zerolog.Logger) *SendMail {
	return &SendMail{provider: provider, tokens: tokens, sibling: sibling, log: log}
}

type sendMailArgs struct {
	To          string               `json:"to"`
	Subject     string               `json:"subject"`
	Body        string               `json:"body"`
	CC          string               `json:"cc"`
	BCC         string               `json:"bcc"`
	Draft       bool                 `json:"draft"`
	Attachments []compose.Attachment `json:"attachments"`
}

// Tool returns the RPC registration for gmail_send.
func (t *SendMail) Tool() rpc.Tool {
	return rpc.Tool{
		Name:        "gmail_send",
		Description: "Send or draft an email through the user's Gmail account",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"to":      map[string]any{"type": "string", "description": "Recipient email address"},
				"subject": map[string]any{"type": "string", "description": "Email subject"},
				"body":    map[string]any{"type": "string", "description": "Plain-text email body"},
				"cc":      map[string]any{"type": "string", "description": "Comma-separated CC list"},
				"bcc":     map[string]any{"type": "string", "description": "Comma-separated BCC list"},
				"draft":   map[string]any{"type": "boolean", "description": "Create a draft instead of sending"},
				"attachments": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"filename":    map[string]any{"type": "string"},
							"content":     map[string]any{"type": "string", "description": "Base64 file content"},
							"contentType": map[string]any{"type": "string"},
						},
						"required": []string{"filename", "content", "contentType"},
					},
				},
			},
			"required": []string{"to", "subject", "body"},
		},
		Handler: t.handle,
	}
}

func (t *SendMail) handle(ctx context.Context, args map[string]any) (string, error) {
	parsed, err := decodeArgs(args)
	if err != nil {
		return "", rpc.NewError(rpc.CodeInvalidParams, err.Error())
	}

	msg := compose.Message{
		To:          parsed.To,
		Subject:     parsed.Subject,
		Body:        parsed.Body,
		CC:          parsed.CC,
		BCC:         parsed.BCC,
		Draft:       parsed.Draft,
		Attachments: parsed.Attachments,
	}
	if err := msg.Validate(); err != nil {
		return "", rpc.NewError(rpc.CodeInvalidParams, err.Error())
	}

	token, err := t.resolveToken(ctx)
	if err != nil {
		return "", err
	}

	raw, err := compose.Build(msg)
	if err != nil {
		return "", rpc.NewError(rpc.CodeInvalidParams, err.Error())
	}
	encoded := compose.EncodeWeb(raw)

	if msg.Draft {
		id, err := t.provider.Draft(ctx, token, encoded)
		if err != nil {
			return "", t.providerError(err)
		}
		return fmt.Sprintf("Draft created successfully for %s. Draft ID: %s", msg.To, id), nil
	}

	id, err := t.provider.Send(ctx, token, encoded)
	if err != nil {
		return "", t.providerError(err)
	}

	return fmt.Sprintf("Email sent successfully to %s. Message ID: %s", msg.To, id), nil
}

// resolveToken prefers the local store and falls back to the sibling
// that owns the control port.
func (t *SendMail) resolveToken(ctx context.Context) (string, error) {
	token, err := t.tokens.Token()
	if err == nil {
		return token, nil
	}

	if t.sibling != nil {
		value, expiry, fetchErr := t.sibling.Fetch(ctx)
		if fetchErr == nil {
			t.tokens.Adopt(value, expiry)
			return value, nil
		}
		t.log.Warn().Err(fetchErr).Msg("Sibling token fetch failed")
	}

	return "", rpc.NewError(rpc.CodeAuthRequired, "No valid Gmail token. "+reauthorizeHint)
}

// providerError maps upload failures onto RPC codes, clearing the
// token on a provider 401.
func (t *SendMail) providerError(err error) error {
	if errors.Is(err, gservice.ErrUnauthorized) {
		t.tokens.Invalidate()
		return rpc.NewError(rpc.CodeAuthRequired, "Gmail token expired or revoked. "+reauthorizeHint)
	}
	return rpc.NewError(rpc.CodeInternal, err.Error())
}

// decodeArgs round-trips the argument map through JSON so nested
// attachment objects land in typed structs.
func decodeArgs(args map[string]any) (sendMailArgs, error) {
	var parsed sendMailArgs

	buf, err := json.Marshal(args)
	if err != nil {
		return parsed, fmt.Errorf("invalid arguments: %v", err)
	}
	if err := json.Unmarshal(buf, &parsed); err != nil {
		return parsed, fmt.Errorf("invalid arguments: %v", err)
	}

	return parsed, nil
}
