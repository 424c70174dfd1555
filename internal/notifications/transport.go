package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nexstage/events-backend/internal/models"
)

// HTTPTransport posts notifications to the notifications service.
type HTTPTransport struct {
	baseURL string
	http    *http.Client
}

// NewHTTPTransport creates the default transport.
func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Send posts one notification. Any non-2xx answer is a retryable failure.
func (t *HTTPTransport) Send(ctx context.Context, n models.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: notifications: %v", models.ErrDownstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: notifications returned %d", models.ErrDownstreamUnavailable, resp.StatusCode)
	}
	return nil
}
