package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jobscout/jobscout/internal/resilience"
	"golang.org/x/time/rate"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// boardClient is the shared request plumbing for board API adapters: an
// injectable HTTP client for tests and an optional per-adapter rate limit.
type boardClient struct {
	httpClient  HTTPClient
	rateLimiter *rate.Limiter
}

func newBoardClient() boardClient {
	return boardClient{httpClient: &http.Client{}}
}

func (c *boardClient) SetHTTPClient(client HTTPClient) {
	c.httpClient = client
}

func (c *boardClient) SetRateLimit(maxRequestsPerSecond float64) {
	c.rateLimiter = rate.NewLimiter(rate.Limit(maxRequestsPerSecond), 1)
}

func (c *boardClient) get(ctx context.Context, url string) ([]byte, error) {

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("error creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resilience.Transient(fmt.Errorf("error sending request: %w", err))
	}
	defer resp.Body.Close()

	return c.handleResponse(resp)
}

func (c *boardClient) handleResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.Transient(fmt.Errorf("error reading response body: %w", err))
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrBoardNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.ClassifyStatus(resp.StatusCode,
			fmt.Errorf("request failed with status %v, body: %v", resp.StatusCode, string(body)))
	}

	return body, nil
}
