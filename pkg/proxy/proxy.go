// Package proxy fetches third-party pages through the backend's content
// proxy, which forwards allow-listed URLs on the caller's behalf.
package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

const (
	defaultTimeout = 10 * time.Second
	snippetLen     = 80
	maxBodyBytes   = 8 << 20
)

// Fetcher returns the body of a remote resource as text.
type Fetcher interface {
	Fetch(ctx context.Context, target string) (string, error)
}

// StatusError is returned when the proxy answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("Proxy HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("Proxy HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each fetch. A timeout is reported like cancellation of
// that single fetch.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Client talks to the content proxy.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// New creates a Client for the proxy at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Fetch retrieves target through the proxy and decodes it to UTF-8 using the
// charset announced in the response's Content-Type.
func (c *Client) Fetch(ctx context.Context, target string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.baseURL + "/proxy?" + url.Values{"u": {target}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", eris.Wrap(err, "proxy: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "proxy: fetch %s", target)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := decode(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", eris.Wrapf(err, "proxy: read %s", target)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: snippet(body)}
	}
	return body, nil
}

// FetchJSON fetches target through f and decodes the body into v.
func FetchJSON(ctx context.Context, f Fetcher, target string, v any) error {
	body, err := f.Fetch(ctx, target)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return eris.Wrap(err, "proxy: JSON parse error")
	}
	return nil
}

func decode(r io.Reader, contentType string) (string, error) {
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if cs := params["charset"]; cs != "" && !strings.EqualFold(cs, "utf-8") {
			if enc, err := htmlindex.Get(cs); err == nil {
				r = enc.NewDecoder().Reader(r)
			}
		}
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func snippet(body string) string {
	body = strings.TrimSpace(body)
	if r := []rune(body); len(r) > snippetLen {
		return string(r[:snippetLen])
	}
	return body
}
