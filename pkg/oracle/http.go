package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

// HTTPClient talks JSON to a reasoning service at BaseURL:
// POST /judge and POST /compose.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPClient creates a traced, rate-limited client. rps <= 0 disables the
// limiter.
func NewHTTPClient(baseURL string, rps float64) *HTTPClient {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		limiter: limiter,
	}
}

// Judge implements Client.
func (c *HTTPClient) Judge(ctx context.Context, req FlagRequest) (FlagVerdict, error) {
	var v FlagVerdict
	if err := c.post(ctx, "/judge", req, &v); err != nil {
		return FlagVerdict{}, err
	}
	return v, nil
}

// Compose implements Client.
func (c *HTTPClient) Compose(ctx context.Context, req ProposalRequest) (ProposalDraft, error) {
	var d ProposalDraft
	if err := c.post(ctx, "/compose", req, &d); err != nil {
		return ProposalDraft{}, err
	}
	if strings.TrimSpace(d.Rationale) == "" {
		return ProposalDraft{}, fmt.Errorf("compose response missing rationale: %w", ErrUnavailable)
	}
	return d, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w: %w", path, ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("%s status %d: %s: %w", path, res.StatusCode, strings.TrimSpace(string(msg)), ErrUnavailable)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
