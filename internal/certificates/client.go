package certificates

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nexstage/events-backend/internal/models"
)

// IssueResult is the certificate service's answer to an issuance request.
type IssueResult struct {
	UniqueCode string    `json:"unique_code"`
	IssuedAt   time.Time `json:"issued_at"`
}

// ValidationResult is the public validation answer for a certificate code.
type ValidationResult struct {
	Valid       bool       `json:"valid"`
	Participant string     `json:"participant,omitempty"`
	EventName   string     `json:"event_name,omitempty"`
	IssuedAt    *time.Time `json:"issued_at,omitempty"`
}

// Client talks to the certificate collaborator service. Issuance is
// idempotent on the remote side by registration id, so retrying a timed-out
// call later is safe.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a certificate service client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Issue requests certificate issuance for a registration snapshot. Any
// transport or server failure maps to models.ErrDownstreamUnavailable; the
// caller decides whether to absorb it (check-in path) or skip (reconciliation).
func (c *Client) Issue(ctx context.Context, snap models.CertificateSnapshot) (*IssueResult, error) {
	body, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/internal/certificates/issue", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: certificates: %v", models.ErrDownstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: certificates returned %d", models.ErrDownstreamUnavailable, resp.StatusCode)
	}

	var result IssueResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode issue result: %w", err)
	}
	if result.UniqueCode == "" {
		return nil, fmt.Errorf("%w: certificates returned empty code", models.ErrDownstreamUnavailable)
	}
	return &result, nil
}

// Validate checks a certificate code against the certificate service.
func (c *Client) Validate(ctx context.Context, code string) (*ValidationResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/certificates/validate/"+code, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: certificates: %v", models.ErrDownstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: certificates returned %d", models.ErrDownstreamUnavailable, resp.StatusCode)
	}

	var result ValidationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode validation result: %w", err)
	}
	return &result, nil
}
