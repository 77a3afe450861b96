// Package search is the client for the backend's route search, which turns a
// start and end address into a driving route plus the listings found near it.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/klanavo/klanavo/internal/model"
	"github.com/klanavo/klanavo/internal/resilience"
)

const defaultTimeout = 60 * time.Second

// Request describes one route search.
type Request struct {
	Start    string `json:"start"`
	End      string `json:"ziel"`
	Query    string `json:"query"`
	RadiusKm int    `json:"radius"`
	StepKm   int    `json:"step"`
	MinPrice *int   `json:"min_price,omitempty"`
	MaxPrice *int   `json:"max_price,omitempty"`
	Category *int   `json:"category,omitempty"`
}

// Response is the backend's answer. Route holds [lon, lat] pairs.
type Response struct {
	Route    [][]float64        `json:"route"`
	Listings []model.RawListing `json:"listings"`
}

// BackendError is a non-2xx answer from the search backend. Detail carries
// the backend's own explanation when it sent one.
type BackendError struct {
	StatusCode int
	Detail     string
}

func (e *BackendError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Detail)
}

// Searcher runs route searches.
type Searcher interface {
	RouteSearch(ctx context.Context, req Request) (*Response, error)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// Client calls the search backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	retry   resilience.RetryConfig
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		timeout: defaultTimeout,
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("search", "route-search")
	}
	return c
}

// RouteSearch posts req to the backend, retrying transient failures.
func (c *Client) RouteSearch(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "search: encode request")
	}
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*Response, error) {
		return c.post(ctx, body)
	})
}

func (c *Client) post(ctx context.Context, body []byte) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/route-search", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "search: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "search: route-search request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		be := &BackendError{StatusCode: resp.StatusCode, Detail: readDetail(resp.Body)}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(be, resp.StatusCode)
		}
		return nil, be
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, eris.Wrap(err, "search: decode response")
	}
	return &out, nil
}

// readDetail pulls the "detail" field out of an error body, falling back to
// the trimmed body text.
func readDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return ""
	}
	var payload struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Detail != nil {
		if s, ok := payload.Detail.(string); ok {
			return s
		}
		if b, err := json.Marshal(payload.Detail); err == nil {
			return string(b)
		}
	}
	return strings.TrimSpace(string(raw))
}
