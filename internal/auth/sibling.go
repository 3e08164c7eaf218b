package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SiblingClient pulls the shared token from the primary process that
// owns the loopback control port. Sharing is pull-only and
// unauthenticated on loopback.
type SiblingClient struct {
	baseURL string
	client  *http.Client
}

// NewSiblingClient targets the control plane on the given loopback port.
func NewSiblingClient(port int) *SiblingClient {
	return &SiblingClient{
		baseURL: fmt.Sprintf("http://127.0.0.1:%d", port),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Fetch retrieves the primary's token and expiry. A 404 means the
// primary holds no valid token.
func (c *SiblingClient) Fetch(ctx context.Context) (string, time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/token", nil)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("http.NewRequestWithContext failed: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sibling token fetch failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", time.Time{}, ErrNoToken
	}
	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("sibling token fetch: HTTP %d", resp.StatusCode)
	}

	var body struct {
		Token  string    `json:"token"`
		Expiry time.Time `json:"expiry"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", time.Time{}, fmt.Errorf("json.NewDecoder.Decode failed: %w", err)
	}
	if body.Token == "" {
		return "", time.Time{}, ErrNoToken
	}

	return body.Token, body.Expiry, nil
}
