package main

import (
	"time"

	"github.com/klanavo/klanavo/internal/config"
	"github.com/klanavo/klanavo/internal/resilience"
	"github.com/klanavo/klanavo/internal/run"
	"github.com/klanavo/klanavo/pkg/geocode"
	"github.com/klanavo/klanavo/pkg/proxy"
	"github.com/klanavo/klanavo/pkg/search"
)

// runEnv holds the wired components shared by the run and serve commands.
type runEnv struct {
	Orchestrator *run.Orchestrator
	Geocoder     *geocode.Resolver
}

// newORSProvider builds the primary geocode provider from config.
func newORSProvider(c *config.Config) *geocode.ORSProvider {
	return geocode.NewORSProvider(
		geocode.WithORSBaseURL(c.Geocode.ORSBaseURL),
		geocode.WithORSKey(c.Geocode.ORSKey),
		geocode.WithORSRateLimit(c.Geocode.RatePerSec),
		geocode.WithORSTimeout(c.Geocode.Timeout()),
		geocode.WithORSCountry(c.Geocode.CountryCode),
	)
}

// initRunEnv wires the search backend, page proxy, geocoders and the
// orchestrator. listener may be nil.
func initRunEnv(c *config.Config, listener func(run.Event)) *runEnv {
	pages := proxy.New(c.Proxy.BaseURL, proxy.WithTimeout(c.Proxy.Timeout()))
	searcher := search.New(c.Search.BaseURL,
		search.WithTimeout(c.Search.Timeout()),
		search.WithRetry(resilience.FromRetryConfig(c.Search.MaxAttempts, c.Search.BackoffMs)),
	)

	nominatim := geocode.NewNominatimProvider(pages,
		geocode.WithNominatimBaseURL(c.Geocode.NominatimBaseURL),
		geocode.WithNominatimRateLimit(c.Geocode.RatePerSec),
		geocode.WithNominatimCountry(c.Geocode.CountryCode),
		geocode.WithNominatimTimeout(c.Geocode.Timeout()),
	)
	breaker := resilience.NewCircuitBreaker(resilience.FromCircuitConfig(
		"geocode-ors", c.Geocode.BreakerFailures, c.Geocode.BreakerResetSecs,
	))
	resolver := geocode.NewResolver(newORSProvider(c), nominatim,
		geocode.WithBreaker(breaker),
		geocode.WithCountryName(c.Geocode.CountryName),
		geocode.WithCache(time.Duration(c.Geocode.CacheTTLMinutes)*time.Minute),
	)

	opts := []run.Option{run.WithClusterRadius(c.Run.ClusterRadiusM)}
	if listener != nil {
		opts = append(opts, run.WithListener(listener))
	}

	return &runEnv{
		Orchestrator: run.New(searcher, pages, resolver, opts...),
		Geocoder:     resolver,
	}
}
