// Package geocode resolves German postal codes and place names to coordinates
// using OpenRouteService (primary) and Nominatim (secondary).
package geocode

import (
	"context"

	"github.com/klanavo/klanavo/internal/model"
)

// Client resolves postal codes and free text to positions. Failures of the
// underlying providers are absorbed into an unresolved result; the only
// error returned is cancellation of ctx.
type Client interface {
	// ResolvePostal geocodes a five digit postal code.
	ResolvePostal(ctx context.Context, code string) (model.GeocodeResult, error)

	// ResolveText geocodes a free-text place name.
	ResolveText(ctx context.Context, text string) (model.GeocodeResult, error)
}

// Result is a single provider's answer.
type Result struct {
	Latitude  float64
	Longitude float64
	Locality  string // place name of the match
	Label     string // provider's display label
	Source    string
	Matched   bool
}

func (r *Result) point() *model.Point {
	return &model.Point{Lat: r.Latitude, Lon: r.Longitude}
}
