// Package cluster groups nearby listings so a map can stack their markers.
package cluster

import (
	"github.com/klanavo/klanavo/internal/geo"
	"github.com/klanavo/klanavo/internal/model"
)

// DefaultRadiusMeters is the proximity threshold for joining a cluster.
const DefaultRadiusMeters = 200.0

// Set is an append-only list of clusters for one run. Ids are 0-based and
// dense; an anchor never moves once created. A Set is not safe for
// concurrent use.
type Set struct {
	radius   float64
	clusters []model.Cluster
}

// NewSet returns an empty Set. A non-positive radius selects
// DefaultRadiusMeters.
func NewSet(radiusMeters float64) *Set {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}
	return &Set{radius: radiusMeters}
}

// Assign returns the first existing cluster whose anchor lies within the
// radius of (lat, lon), or appends a new cluster anchored there.
func (s *Set) Assign(lat, lon float64) model.Cluster {
	for _, c := range s.clusters {
		if geo.HaversineMeters(lat, lon, c.AnchorLat, c.AnchorLon) < s.radius {
			return c
		}
	}
	c := model.Cluster{ID: len(s.clusters), AnchorLat: lat, AnchorLon: lon}
	s.clusters = append(s.clusters, c)
	return c
}

// Clusters returns a copy of the clusters created so far.
func (s *Set) Clusters() []model.Cluster {
	out := make([]model.Cluster, len(s.clusters))
	copy(out, s.clusters)
	return out
}

// Len returns the number of clusters.
func (s *Set) Len() int {
	return len(s.clusters)
}
