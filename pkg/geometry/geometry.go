// Package geometry bridges annotation geometries to planar operations: WKT
// parsing, area, bounds, vertical flips and ring simplification.
package geometry

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"

	"github.com/soundprediction/labelkit/pkg/types"
)

// LooksLikeWKT reports whether s is a polygon or multipolygon WKT string.
func LooksLikeWKT(s string) bool {
	u := strings.ToUpper(strings.TrimSpace(s))
	return strings.HasPrefix(u, "POLYGON") || strings.HasPrefix(u, "MULTIPOLYGON")
}

// ParseWKT parses a POLYGON or MULTIPOLYGON string into closed polygons.
// A multipolygon yields one polygon per member, in order.
func ParseWKT(s string) ([]types.Polygon, error) {
	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, types.NewDecodeError("geometry", fmt.Errorf("parse wkt: %w", err))
	}

	var polys []orb.Polygon
	switch v := g.(type) {
	case orb.Polygon:
		polys = []orb.Polygon{v}
	case orb.MultiPolygon:
		polys = v
	default:
		return nil, types.NewValidationError("geometry", "expected polygon wkt, got %s", g.GeoJSONType())
	}

	out := make([]types.Polygon, 0, len(polys))
	for _, p := range polys {
		if len(p) == 0 {
			continue
		}
		var holes [][]types.Point
		for _, h := range p[1:] {
			holes = append(holes, FromRing(h))
		}
		out = append(out, types.NewPolygon(FromRing(p[0]), holes...))
	}
	return out, nil
}

// ToRing converts annotation points to an orb ring.
func ToRing(pts []types.Point) orb.Ring {
	r := make(orb.Ring, len(pts))
	for i, p := range pts {
		r[i] = orb.Point{p.X, p.Y}
	}
	return r
}

// FromRing converts an orb ring to annotation points.
func FromRing(r orb.Ring) []types.Point {
	pts := make([]types.Point, len(r))
	for i, p := range r {
		pts[i] = types.Point{X: p[0], Y: p[1]}
	}
	return pts
}

// ToPolygon converts an annotation polygon to an orb polygon.
func ToPolygon(p types.Polygon) orb.Polygon {
	out := orb.Polygon{ToRing(p.Exterior)}
	for _, h := range p.Holes {
		out = append(out, ToRing(h))
	}
	return out
}

// Area returns the planar area of the polygon with holes subtracted.
func Area(p types.Polygon) float64 {
	return planar.Area(ToPolygon(p))
}

// SignedArea returns the shoelace area of a ring; positive when the ring
// turns clockwise in image space (y down).
func SignedArea(ring []types.Point) float64 {
	var sum float64
	for i := 0; i+1 < len(ring); i++ {
		sum += ring[i].X*ring[i+1].Y - ring[i+1].X*ring[i].Y
	}
	return sum / 2
}

// Bounds returns the axis-aligned bounding box of the points.
func Bounds(pts []types.Point) types.Rectangle {
	if len(pts) == 0 {
		return types.Rectangle{}
	}
	b := ToRing(pts).Bound()
	return types.Rectangle{
		Left:   b.Left(),
		Top:    b.Bottom(),
		Width:  b.Right() - b.Left(),
		Height: b.Top() - b.Bottom(),
	}
}

// FlipY mirrors points vertically within an image of the given height.
func FlipY(pts []types.Point, height float64) []types.Point {
	out := make([]types.Point, len(pts))
	for i, p := range pts {
		out[i] = types.Point{X: p.X, Y: height - p.Y}
	}
	return out
}

// Round rounds every coordinate to the nearest integer.
func Round(pts []types.Point) []types.Point {
	out := make([]types.Point, len(pts))
	for i, p := range pts {
		out[i] = types.Point{X: math.Round(p.X), Y: math.Round(p.Y)}
	}
	return out
}

// Simplifier reduces the vertex count of a closed ring.
type Simplifier interface {
	SimplifyRing(ring []types.Point, epsilon float64) []types.Point
}

// DouglasPeucker simplifies rings with the Ramer-Douglas-Peucker algorithm.
// The ring is split at the vertex farthest from its start and each half is
// simplified as an open line, so the start and split vertices always survive.
// A ring with a non-zero area never simplifies below a triangle.
type DouglasPeucker struct{}

// SimplifyRing returns a simplified closed copy of ring; the input is not
// modified.
func (DouglasPeucker) SimplifyRing(ring []types.Point, epsilon float64) []types.Point {
	open := ToRing(types.OpenRing(ring))
	split := farthestFrom(open)
	if len(open) <= 3 || split == 0 {
		return types.CloseRing(FromRing(open))
	}

	dp := simplify.DouglasPeucker(epsilon)
	head := dp.LineString(orb.LineString(open[:split+1]).Clone())
	tail := dp.LineString(append(orb.LineString(open[split:]).Clone(), open[0]))

	out := append(orb.Ring(head), tail[1:]...)
	if len(out) < 4 {
		out = triangle(open, split)
	}
	return FromRing(out)
}

// farthestFrom returns the index of the vertex farthest from r[0], or 0 when
// every vertex coincides with it.
func farthestFrom(r orb.Ring) int {
	idx, best := 0, 0.0
	for i := 1; i < len(r); i++ {
		if d := planar.DistanceSquared(r[0], r[i]); d > best {
			idx, best = i, d
		}
	}
	return idx
}

// triangle keeps the start, the split vertex and the vertex farthest from the
// chord between them, in ring order.
func triangle(r orb.Ring, split int) orb.Ring {
	apex, best := -1, -1.0
	for i := 1; i < len(r); i++ {
		if i == split {
			continue
		}
		if d := planar.DistanceFromSegment(r[0], r[split], r[i]); d > best {
			apex, best = i, d
		}
	}
	if apex < split {
		return orb.Ring{r[0], r[apex], r[split], r[0]}
	}
	return orb.Ring{r[0], r[split], r[apex], r[0]}
}
