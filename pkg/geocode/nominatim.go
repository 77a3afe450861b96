package geocode

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/klanavo/klanavo/pkg/proxy"
)

const nominatimBaseURL = "https://nominatim.openstreetmap.org"

type nominatimPlace struct {
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
}

// localityKeys are the address parts that name a place, most specific first.
var localityKeys = []string{"city", "town", "village", "municipality", "county"}

// NominatimOption configures a NominatimProvider.
type NominatimOption func(*NominatimProvider)

// WithNominatimBaseURL sets the Nominatim host.
func WithNominatimBaseURL(u string) NominatimOption {
	return func(p *NominatimProvider) {
		if u != "" {
			p.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithNominatimRateLimit sets the request rate in requests per second.
func WithNominatimRateLimit(rps float64) NominatimOption {
	return func(p *NominatimProvider) {
		if rps > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithNominatimCountry restricts results to an ISO country code.
func WithNominatimCountry(code string) NominatimOption {
	return func(p *NominatimProvider) {
		if code != "" {
			p.countryCode = strings.ToLower(code)
		}
	}
}

// WithNominatimTimeout bounds each request.
func WithNominatimTimeout(d time.Duration) NominatimOption {
	return func(p *NominatimProvider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NominatimProvider geocodes with OpenStreetMap Nominatim. Requests go
// through the content proxy because Nominatim is not reachable directly from
// every deployment.
type NominatimProvider struct {
	baseURL     string
	countryCode string
	fetcher     proxy.Fetcher
	limiter     *rate.Limiter
	timeout     time.Duration
}

// NewNominatimProvider creates a NominatimProvider that fetches through f.
func NewNominatimProvider(f proxy.Fetcher, opts ...NominatimOption) *NominatimProvider {
	p := &NominatimProvider{
		baseURL:     nominatimBaseURL,
		countryCode: "de",
		fetcher:     f,
		limiter:     rate.NewLimiter(rate.Limit(1), 1),
		timeout:     10 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *NominatimProvider) Name() string { return "nominatim" }

// Available implements Provider.
func (p *NominatimProvider) Available() bool { return p.fetcher != nil }

// Postal implements Provider.
func (p *NominatimProvider) Postal(ctx context.Context, code string) (*Result, error) {
	return p.search(ctx, url.Values{"postalcode": {code}})
}

// Search implements Provider.
func (p *NominatimProvider) Search(ctx context.Context, text string) (*Result, error) {
	return p.search(ctx, url.Values{"q": {text}})
}

func (p *NominatimProvider) search(ctx context.Context, params url.Values) (*Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim rate limit")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")
	params.Set("countrycodes", p.countryCode)

	var places []nominatimPlace
	if err := proxy.FetchJSON(ctx, p.fetcher, p.baseURL+"/search?"+params.Encode(), &places); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim search")
	}
	if len(places) == 0 {
		return &Result{Matched: false, Source: p.Name()}, nil
	}

	place := places[0]
	lat, errLat := strconv.ParseFloat(place.Lat, 64)
	lon, errLon := strconv.ParseFloat(place.Lon, 64)
	if errLat != nil || errLon != nil {
		return nil, eris.Errorf("geocode: nominatim returned invalid coordinates %q, %q", place.Lat, place.Lon)
	}

	return &Result{
		Latitude:  lat,
		Longitude: lon,
		Locality:  cityFromAddress(place.Address),
		Label:     place.DisplayName,
		Source:    p.Name(),
		Matched:   true,
	}, nil
}

func cityFromAddress(addr map[string]string) string {
	for _, k := range localityKeys {
		if v := strings.TrimSpace(addr[k]); v != "" {
			return v
		}
	}
	return ""
}
