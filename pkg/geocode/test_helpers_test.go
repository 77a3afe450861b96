package geocode

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// newTestLimiter returns a limiter that never blocks.
func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// newRewriteClient returns an HTTP client that sends requests for
// targetPrefix to the test server instead.
func newRewriteClient(testServerURL, targetPrefix string) *http.Client {
	return &http.Client{
		Transport: &rewriteTransport{
			base:         http.DefaultTransport,
			testServer:   testServerURL,
			targetPrefix: targetPrefix,
		},
	}
}

type rewriteTransport struct {
	base         http.RoundTripper
	testServer   string
	targetPrefix string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	orig := req.URL.String()
	if !strings.HasPrefix(orig, t.targetPrefix) {
		return t.base.RoundTrip(req)
	}
	parsed, err := req.URL.Parse(t.testServer + orig[len(t.targetPrefix):])
	if err != nil {
		return nil, err
	}
	out := req.Clone(req.Context())
	out.URL = parsed
	out.Host = parsed.Host
	return t.base.RoundTrip(out)
}

// fakeFetcher serves canned bodies in place of the content proxy and
// records the URLs it was asked for.
type fakeFetcher struct {
	mu   sync.Mutex
	body string
	err  error
	urls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, target string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, target)
	return f.body, f.err
}

// mockProvider is a scripted Provider.
type mockProvider struct {
	name      string
	available bool
	result    *Result
	err       error

	mu      sync.Mutex
	postals []string
	texts   []string
	onCall  func()
}

func (m *mockProvider) Name() string    { return m.name }
func (m *mockProvider) Available() bool { return m.available }

func (m *mockProvider) Postal(ctx context.Context, code string) (*Result, error) {
	m.mu.Lock()
	m.postals = append(m.postals, code)
	m.mu.Unlock()
	return m.answer(ctx)
}

func (m *mockProvider) Search(ctx context.Context, text string) (*Result, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	return m.answer(ctx)
}

func (m *mockProvider) answer(ctx context.Context) (*Result, error) {
	if m.onCall != nil {
		m.onCall()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.result, m.err
}

func (m *mockProvider) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.postals) + len(m.texts)
}
