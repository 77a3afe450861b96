package geocode

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/klanavo/klanavo/internal/model"
	"github.com/klanavo/klanavo/internal/resilience"
)

// Provider is a single geocoding backend. A lookup that finds nothing
// returns an unmatched Result and a nil error.
type Provider interface {
	Name() string
	Available() bool
	Postal(ctx context.Context, code string) (*Result, error)
	Search(ctx context.Context, text string) (*Result, error)
}

// RateLimitReporter is implemented by providers that expose the quota
// headers of their latest response.
type RateLimitReporter interface {
	RateLimit() (RateLimit, bool)
}

// RateLimit is the quota a provider reported on its latest response.
type RateLimit struct {
	Limit      string    `json:"limit" yaml:"limit"`
	Remaining  string    `json:"remaining" yaml:"remaining"`
	ObservedAt time.Time `json:"observedAt" yaml:"observedAt"`
}

// Resolver tries the primary provider, then the secondary.
type Resolver struct {
	primary     Provider
	secondary   Provider
	breaker     *resilience.CircuitBreaker
	cache       *memoCache
	countryName string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithBreaker guards the primary provider with a circuit breaker.
func WithBreaker(cb *resilience.CircuitBreaker) ResolverOption {
	return func(r *Resolver) {
		r.breaker = cb
	}
}

// WithCountryName sets the country appended to free-text queries and used to
// recognise country-level matches. Default "Deutschland".
func WithCountryName(name string) ResolverOption {
	return func(r *Resolver) {
		r.countryName = name
	}
}

// WithCache remembers resolved positions for ttl.
func WithCache(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		if ttl > 0 {
			r.cache = newMemoCache(ttl)
		}
	}
}

// NewResolver creates a Resolver. Either provider may be nil.
func NewResolver(primary, secondary Provider, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		primary:     primary,
		secondary:   secondary,
		countryName: "Deutschland",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ Client = (*Resolver)(nil)

// ResolvePostal implements Client. A primary match whose locality is empty or
// names the whole country is only used when the secondary finds nothing.
func (r *Resolver) ResolvePostal(ctx context.Context, code string) (model.GeocodeResult, error) {
	code = strings.TrimSpace(code)
	unresolved := model.GeocodeResult{DisplayLabel: code}
	if code == "" {
		return unresolved, nil
	}
	if cached, ok := r.cache.get("postal", code); ok {
		return cached, nil
	}

	var countryLevel *model.Point
	res := r.callPrimary(ctx, func(ctx context.Context) (*Result, error) {
		return r.primary.Postal(ctx, code)
	})
	if err := ctx.Err(); err != nil {
		return unresolved, err
	}
	if res != nil && res.Matched {
		if r.usableLocality(res.Locality) {
			return r.remember("postal", code, model.GeocodeResult{
				Position:     res.point(),
				DisplayLabel: code + " " + res.Locality,
			}), nil
		}
		countryLevel = res.point()
	}

	res = r.callSecondary(ctx, func(ctx context.Context) (*Result, error) {
		return r.secondary.Postal(ctx, code)
	})
	if err := ctx.Err(); err != nil {
		return unresolved, err
	}
	if res != nil && res.Matched {
		label := code
		if res.Locality != "" {
			label += " " + res.Locality
		}
		return r.remember("postal", code, model.GeocodeResult{Position: res.point(), DisplayLabel: label}), nil
	}

	if countryLevel != nil {
		return model.GeocodeResult{Position: countryLevel, DisplayLabel: code}, nil
	}
	return unresolved, nil
}

// ResolveText implements Client. The country name is appended to the query.
func (r *Resolver) ResolveText(ctx context.Context, text string) (model.GeocodeResult, error) {
	text = strings.TrimSpace(text)
	unresolved := model.GeocodeResult{DisplayLabel: text}
	if text == "" {
		return unresolved, nil
	}
	if cached, ok := r.cache.get("text", text); ok {
		return cached, nil
	}

	query := text
	if r.countryName != "" {
		query += ", " + r.countryName
	}

	res := r.callPrimary(ctx, func(ctx context.Context) (*Result, error) {
		return r.primary.Search(ctx, query)
	})
	if err := ctx.Err(); err != nil {
		return unresolved, err
	}
	if res != nil && res.Matched {
		return r.remember("text", text, model.GeocodeResult{Position: res.point(), DisplayLabel: orDefault(res.Label, text)}), nil
	}

	res = r.callSecondary(ctx, func(ctx context.Context) (*Result, error) {
		return r.secondary.Search(ctx, query)
	})
	if err := ctx.Err(); err != nil {
		return unresolved, err
	}
	if res != nil && res.Matched {
		return r.remember("text", text, model.GeocodeResult{Position: res.point(), DisplayLabel: orDefault(res.Locality, text)}), nil
	}
	return unresolved, nil
}

// RateLimit returns the primary provider's latest quota headers.
func (r *Resolver) RateLimit() (RateLimit, bool) {
	if rl, ok := r.primary.(RateLimitReporter); ok {
		return rl.RateLimit()
	}
	return RateLimit{}, false
}

func (r *Resolver) callPrimary(ctx context.Context, fn func(context.Context) (*Result, error)) *Result {
	if r.primary == nil || !r.primary.Available() {
		return nil
	}
	if r.breaker == nil {
		return attempt(ctx, r.primary.Name(), fn)
	}
	return attempt(ctx, r.primary.Name(), func(ctx context.Context) (*Result, error) {
		return resilience.ExecuteVal(ctx, r.breaker, fn)
	})
}

func (r *Resolver) callSecondary(ctx context.Context, fn func(context.Context) (*Result, error)) *Result {
	if r.secondary == nil || !r.secondary.Available() {
		return nil
	}
	return attempt(ctx, r.secondary.Name(), fn)
}

// attempt runs one provider call, logging and swallowing its error.
func attempt(ctx context.Context, name string, fn func(context.Context) (*Result, error)) *Result {
	res, err := fn(ctx)
	if err != nil {
		zap.L().Debug("geocode: provider failed, trying next",
			zap.String("provider", name),
			zap.Error(err),
		)
		return nil
	}
	return res
}

func (r *Resolver) usableLocality(locality string) bool {
	if locality == "" {
		return false
	}
	if r.countryName == "" {
		return true
	}
	return !strings.Contains(strings.ToLower(locality), strings.ToLower(r.countryName))
}

func (r *Resolver) remember(kind, input string, res model.GeocodeResult) model.GeocodeResult {
	r.cache.put(kind, input, res)
	return res
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
