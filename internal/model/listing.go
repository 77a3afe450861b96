// Package model holds the data types shared by the enrichment pipeline.
package model

// UnknownCategory is used when a listing has no category path.
const UnknownCategory = "Unknown"

// RawListing is a listing as returned by the route search backend.
type RawListing struct {
	URL         string   `json:"url" yaml:"url"`
	Title       string   `json:"title" yaml:"title"`
	AdID        string   `json:"adid,omitempty" yaml:"adid,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	PriceText   string   `json:"price,omitempty" yaml:"price,omitempty"`
	PostalCode  string   `json:"plz,omitempty" yaml:"plz,omitempty"`
	Label       string   `json:"label,omitempty" yaml:"label,omitempty"`
	RouteLat    *float64 `json:"lat,omitempty" yaml:"lat,omitempty"`
	RouteLon    *float64 `json:"lon,omitempty" yaml:"lon,omitempty"`
}

// RoutePosition returns the sampled route position the backend attached to
// the listing, or nil unless both coordinates are present.
func (r RawListing) RoutePosition() *Point {
	if r.RouteLat == nil || r.RouteLon == nil {
		return nil
	}
	return &Point{Lat: *r.RouteLat, Lon: *r.RouteLon}
}

// ExtractionResult holds the fields recovered from a listing's detail page.
// Empty strings and a nil Position mean "not found".
type ExtractionResult struct {
	Title        string   `json:"title,omitempty" yaml:"title,omitempty"`
	PostalCode   string   `json:"postalCode,omitempty" yaml:"postalCode,omitempty"`
	CityText     string   `json:"cityText,omitempty" yaml:"cityText,omitempty"`
	Position     *Point   `json:"position,omitempty" yaml:"position,omitempty"`
	PriceText    string   `json:"priceText,omitempty" yaml:"priceText,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	CategoryPath []string `json:"categoryPath,omitempty" yaml:"categoryPath,omitempty"`
}

// EnrichedListing is a fully processed listing ready for presentation.
type EnrichedListing struct {
	URL            string   `json:"url" yaml:"url"`
	Title          string   `json:"title" yaml:"title"`
	Position       *Point   `json:"position,omitempty" yaml:"position,omitempty"`
	Label          string   `json:"label" yaml:"label"`
	PostalCode     string   `json:"postalCode,omitempty" yaml:"postalCode,omitempty"`
	PriceDisplay   string   `json:"priceDisplay" yaml:"priceDisplay"`
	PriceValue     float64  `json:"priceValue" yaml:"priceValue"`
	ImageURL       string   `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	CategoryPath   []string `json:"categoryPath,omitempty" yaml:"categoryPath,omitempty"`
	Category       string   `json:"category" yaml:"category"`
	ClusterID      *int     `json:"clusterId,omitempty" yaml:"clusterId,omitempty"`
	RouteDistanceM *float64 `json:"routeDistanceM,omitempty" yaml:"routeDistanceM,omitempty"`
}

// Mapped reports whether the listing has a resolved position.
func (e EnrichedListing) Mapped() bool {
	return e.Position != nil
}

// CategoryOf returns the last category path segment, or UnknownCategory.
func CategoryOf(path []string) string {
	if len(path) == 0 {
		return UnknownCategory
	}
	return path[len(path)-1]
}
