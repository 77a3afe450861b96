package model

// Point is a WGS84 position. Latitude and longitude are always set together.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// GeocodeResult is the outcome of a geocoding attempt. Position is nil when
// no provider could resolve the input; DisplayLabel is always set.
type GeocodeResult struct {
	Position     *Point `json:"position,omitempty" yaml:"position,omitempty"`
	DisplayLabel string `json:"displayLabel" yaml:"displayLabel"`
}

// Cluster groups listings whose positions lie close to its anchor. The anchor
// is the position of the first listing assigned to it and never moves.
type Cluster struct {
	ID        int     `json:"id" yaml:"id"`
	AnchorLat float64 `json:"anchorLat" yaml:"anchorLat"`
	AnchorLon float64 `json:"anchorLon" yaml:"anchorLon"`
}
