// Package action issues resolved HTTP actions against the invoicing
// database façade and renders the responses for the tool host.
package action

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerly/invoice-mcp/internal/intent"
)

// Executor performs one ResolvedAction per call against the database
// base URL.
type Executor struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewExecutor creates an Executor for the given database façade URL.
func NewExecutor(baseURL string, log zerolog.Logger) *Executor {
	return &Executor{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// Execute issues the action and returns the raw response body. GET and
// DELETE carry no body; POST and PUT send the action's data as JSON.
func (e *Executor) Execute(ctx context.Context, act intent.ResolvedAction) ([]byte, error) {
	method := strings.ToUpper(act.Method)
	switch method {
	case http.MethodGet, http.MethodDelete:
	case http.MethodPost, http.MethodPut:
	default:
		return nil, fmt.Errorf("unsupported method: %s", act.Method)
	}

	var body io.Reader
	if (method == http.MethodPost || method == http.MethodPut) && len(act.Data) > 0 {
		body = bytes.NewReader(act.Data)
	}

	url := e.baseURL + ensureLeadingSlash(act.Endpoint)

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequestWithContext failed: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	e.log.Info().Str("method", method).Str("endpoint", act.Endpoint).Msg("Executing database action")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("database request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("io.ReadAll failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, errorText(payload))
	}

	return payload, nil
}

func ensureLeadingSlash(endpoint string) string {
	if strings.HasPrefix(endpoint, "/") {
		return endpoint
	}
	return "/" + endpoint
}

// errorText extracts {"error": …} from a failure body, falling back to
// the raw text.
func errorText(body []byte) string {
	var parsed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		return parsed.Error
	}
	return strings.TrimSpace(string(body))
}
