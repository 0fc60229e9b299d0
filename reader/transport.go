package reader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"ldexplorer/config"
)

// DefaultUserAgent identifies this client to the remote services.
const DefaultUserAgent = "ldexplorer/1.0"

const maxErrorBody = 512

type userAgentTransport struct {
	agent string
	base  http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(req)
}

// NewHTTPClient builds a pooled client that stamps every request with agent.
func NewHTTPClient(pool config.ConnectionPoolConfig, timeout time.Duration, agent string) *http.Client {
	transport := &http.Transport{
		Proxy:              http.ProxyFromEnvironment,
		MaxIdleConns:       pool.MaxIdleConns,
		MaxConnsPerHost:    pool.MaxConnsPerHost,
		IdleConnTimeout:    pool.IdleConnTimeout,
		DisableCompression: false,
	}
	if agent == "" {
		agent = DefaultUserAgent
	}
	return &http.Client{
		Transport: userAgentTransport{agent: agent, base: transport},
		Timeout:   timeout,
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Get fetches rawURL and returns the body of a 2xx response.
func Get(ctx context.Context, client *http.Client, rawURL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}
	return body, nil
}
