package tool_test

import (
	"context"
	"time"

	"github.com/ledgerly/invoice-mcp/internal/intent"
)

type providerMock struct {
	SendFunc  func(ctx context.Context, token, raw string) (string, error)
	DraftFunc func(ctx context.Context, token, raw string) (string, error)
}

func (p *providerMock) Send(ctx context.Context, token, raw string) (string, error) {
	return p.SendFunc(ctx, token, raw)
}

func (p *providerMock) Draft(ctx context.Context, token, raw string) (string, error) {
	return p.DraftFunc(ctx, token, raw)
}

type tokensMock struct {
	TokenFunc      func() (string, error)
	adopted        string
	adoptedExpiry  time.Time
	invalidated    int
	adoptionsCount int
}

func (m *tokensMock) Token() (string, error) {
	if m.adopted != "" {
		return m.adopted, nil
	}
	return m.TokenFunc()
}

func (m *tokensMock) Adopt(token string, expiry time.Time) {
	m.adopted = token
	m.adoptedExpiry = expiry
	m.adoptionsCount++
}

func (m *tokensMock) Invalidate() {
	m.invalidated++
	m.adopted = ""
}

type siblingMock struct {
	FetchFunc func(ctx context.Context) (string, time.Time, error)
	calls     int
}

func (m *siblingMock) Fetch(ctx context.Context) (string, time.Time, error) {
	m.calls++
	return m.FetchFunc(ctx)
}

type resolverMock struct {
	ResolveFunc func(ctx context.Context, message string) (intent.ResolvedAction, bool)
}

func (m *resolverMock) Resolve(ctx context.Context, message string) (intent.ResolvedAction, bool) {
	return m.ResolveFunc(ctx, message)
}

type executorMock struct {
	ExecuteFunc func(ctx context.Context, act intent.ResolvedAction) ([]byte, error)
	calls       int
}

func (m *executorMock) Execute(ctx context.Context, act intent.ResolvedAction) ([]byte, error) {
	m.calls++
	return m.ExecuteFunc(ctx, act)
}

func validTokens(token string) *tokensMock {
	return &tokensMock{TokenFunc: func() (string, error) { return token, nil }}
}
