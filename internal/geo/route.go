package geo

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Metres per degree used by the local equirectangular projection.
const (
	metersPerDegLon = 111320.0
	metersPerDegLat = 110540.0
)

// NewRoute builds a route line from [lon, lat] pairs as returned by the
// search backend. Pairs with fewer than two values are skipped.
func NewRoute(coords [][]float64) (*geom.LineString, error) {
	flat := make([]float64, 0, len(coords)*2)
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		flat = append(flat, c[0], c[1])
	}
	if len(flat) == 0 {
		return nil, eris.New("geo: route has no coordinates")
	}
	return geom.NewLineStringFlat(geom.XY, flat), nil
}

// DistanceToRoute returns the distance in metres from a point to the nearest
// segment of route. The second return value is false when the route has fewer
// than two points.
func DistanceToRoute(route *geom.LineString, lat, lon float64) (float64, bool) {
	if route == nil || route.NumCoords() < 2 {
		return 0, false
	}

	px, py := project(lat, lon)
	best := math.Inf(1)
	for i := 0; i+1 < route.NumCoords(); i++ {
		a, b := route.Coord(i), route.Coord(i+1)
		ax, ay := project(a.Y(), a.X())
		bx, by := project(b.Y(), b.X())
		best = math.Min(best, pointToSegment(px, py, ax, ay, bx, by))
	}
	return best, true
}

func project(lat, lon float64) (x, y float64) {
	return lon * metersPerDegLon * math.Cos(lat*math.Pi/180), lat * metersPerDegLat
}

func pointToSegment(px, py, ax, ay, bx, by float64) float64 {
	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	t := 0.0
	if lenSq > 0 {
		t = ((px-ax)*dx + (py-ay)*dy) / lenSq
		t = math.Max(0, math.Min(1, t))
	}
	cx, cy := ax+t*dx, ay+t*dy
	return math.Hypot(px-cx, py-cy)
}
