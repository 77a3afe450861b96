package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const orsBaseURL = "https://api.openrouteservice.org"

type orsResponse struct {
	Features []orsFeature `json:"features"`
}

type orsFeature struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat]
	} `json:"geometry"`
	Properties struct {
		Label    string `json:"label"`
		Locality string `json:"locality"`
		Region   string `json:"region"`
		Name     string `json:"name"`
	} `json:"properties"`
}

// ORSOption configures an ORSProvider.
type ORSOption func(*ORSProvider)

// WithORSBaseURL points the provider at a different host, for example the
// backend's key-injecting ORS proxy.
func WithORSBaseURL(u string) ORSOption {
	return func(p *ORSProvider) {
		if u != "" {
			p.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithORSKey sets the API key sent in the Authorization header.
func WithORSKey(key string) ORSOption {
	return func(p *ORSProvider) {
		p.apiKey = key
	}
}

// WithORSHTTPClient sets the HTTP client.
func WithORSHTTPClient(hc *http.Client) ORSOption {
	return func(p *ORSProvider) {
		p.httpClient = hc
	}
}

// WithORSRateLimit sets the request rate in requests per second.
func WithORSRateLimit(rps float64) ORSOption {
	return func(p *ORSProvider) {
		if rps > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithORSTimeout bounds each request.
func WithORSTimeout(d time.Duration) ORSOption {
	return func(p *ORSProvider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithORSCountry restricts results to an ISO country code. Default "DE".
func WithORSCountry(code string) ORSOption {
	return func(p *ORSProvider) {
		if code != "" {
			p.country = code
		}
	}
}

// ORSProvider geocodes with the OpenRouteService (Pelias) API.
type ORSProvider struct {
	baseURL    string
	apiKey     string
	country    string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration

	mu        sync.Mutex
	rateLimit RateLimit
	seen      bool
}

// NewORSProvider creates an ORSProvider.
func NewORSProvider(opts ...ORSOption) *ORSProvider {
	p := &ORSProvider{
		baseURL:    orsBaseURL,
		country:    "DE",
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(5), 1),
		timeout:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *ORSProvider) Name() string { return "ors" }

// Available implements Provider.
func (p *ORSProvider) Available() bool { return p.baseURL != "" }

// Postal implements Provider with a structured postal code search.
func (p *ORSProvider) Postal(ctx context.Context, code string) (*Result, error) {
	return p.search(ctx, "/geocode/search/structured", url.Values{
		"postalcode": {code},
		"country":    {p.country},
		"size":       {"1"},
	})
}

// Search implements Provider with a free-text search.
func (p *ORSProvider) Search(ctx context.Context, text string) (*Result, error) {
	return p.search(ctx, "/geocode/search", url.Values{
		"text":             {text},
		"boundary.country": {p.country},
		"size":             {"1"},
	})
}

// RateLimit implements RateLimitReporter.
func (p *ORSProvider) RateLimit() (RateLimit, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rateLimit, p.seen
}

func (p *ORSProvider) search(ctx context.Context, path string, params url.Values) (*Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: ors rate limit")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: ors build request")
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: ors request")
	}
	defer resp.Body.Close() //nolint:errcheck

	p.recordRateLimit(resp.Header)

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: ors returned status %d", resp.StatusCode)
	}

	var body orsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, eris.Wrap(err, "geocode: ors parse response")
	}

	if len(body.Features) == 0 || len(body.Features[0].Geometry.Coordinates) < 2 {
		return &Result{Matched: false, Source: p.Name()}, nil
	}

	f := body.Features[0]
	return &Result{
		Latitude:  f.Geometry.Coordinates[1],
		Longitude: f.Geometry.Coordinates[0],
		Locality:  firstNonEmpty(f.Properties.Locality, f.Properties.Region, f.Properties.Name),
		Label:     f.Properties.Label,
		Source:    p.Name(),
		Matched:   true,
	}, nil
}

func (p *ORSProvider) recordRateLimit(h http.Header) {
	limit, remaining := h.Get("x-ratelimit-limit"), h.Get("x-ratelimit-remaining")
	if limit == "" && remaining == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rateLimit = RateLimit{Limit: limit, Remaining: remaining, ObservedAt: time.Now()}
	p.seen = true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
