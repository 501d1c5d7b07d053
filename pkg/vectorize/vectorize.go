// Package vectorize converts raster segmentation masks into polygon annotations.
package vectorize

import (
	"math"

	"github.com/soundprediction/labelkit/pkg/geometry"
	"github.com/soundprediction/labelkit/pkg/types"
	"github.com/soundprediction/labelkit/pkg/utils"
)

const (
	// DefaultMaxPoints is the vertex budget used by DefaultOptions.
	DefaultMaxPoints = 50
	// InitialEpsilon is the first tolerance tried when fitting a vertex budget.
	InitialEpsilon = 0.001
)

// Options selects the simplification applied to each region. Epsilon takes
// precedence over MaxPoints; with neither set polygons are emitted as traced.
type Options struct {
	MaxPoints *int
	Epsilon   *float64
}

// DefaultOptions returns a budget of DefaultMaxPoints vertices.
func DefaultOptions() Options {
	n := DefaultMaxPoints
	return Options{MaxPoints: &n}
}

// Validate rejects budgets that no polygon can meet and negative tolerances.
func (o Options) Validate() error {
	if o.MaxPoints != nil && *o.MaxPoints < 3 {
		return types.NewValidationError("max_points", "must be at least 3, got %d", *o.MaxPoints)
	}
	if o.Epsilon != nil && (*o.Epsilon < 0 || math.IsNaN(*o.Epsilon)) {
		return types.NewValidationError("epsilon", "must be non-negative, got %v", *o.Epsilon)
	}
	return nil
}

// Vectorizer polygonizes masks with an extractor and a simplifier.
type Vectorizer struct {
	Extractor  ShapeExtractor
	Simplifier geometry.Simplifier
}

// New returns a Vectorizer using EdgeTracer and Douglas-Peucker simplification.
func New() *Vectorizer {
	return &Vectorizer{Extractor: EdgeTracer{}, Simplifier: geometry.DouglasPeucker{}}
}

// Vectorize returns polygon annotations grouped by class name. Pixel value 0
// and values missing from legend emit nothing. The default simplifier keeps at
// least a triangle per region, so every budget of three or more is met
// without losing regions.
func (v *Vectorizer) Vectorize(grid [][]int, legend map[int]string, opts Options) (_ map[string][]types.Annotation, err error) {
	defer utils.RecoverAsError(&err)

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	shapes, err := v.Extractor.Extract(grid)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]types.Annotation)
	for _, s := range shapes {
		if s.Value == 0 {
			continue
		}
		name, ok := legend[s.Value]
		if !ok {
			continue
		}

		poly, ok := v.simplify(s.Polygon, opts)
		if !ok {
			continue
		}
		ann := types.Annotation{Schema: types.FeatureSchema{Name: name}, Value: poly}
		if ann.Validate() != nil {
			continue
		}
		out[name] = append(out[name], ann)
	}
	return out, nil
}

func (v *Vectorizer) simplify(p types.Polygon, opts Options) (types.Polygon, bool) {
	switch {
	case opts.Epsilon != nil:
		p = v.apply(p, *opts.Epsilon)
	case opts.MaxPoints != nil:
		for eps := InitialEpsilon; ; eps *= 2 {
			q := v.apply(p, eps)
			if vertexCount(q) <= *opts.MaxPoints || atFloor(q) || math.IsInf(eps, 1) {
				p = q
				break
			}
		}
		for len(p.Holes) > 0 && vertexCount(p) > *opts.MaxPoints {
			p.Holes = p.Holes[:len(p.Holes)-1]
		}
	}
	return roundPolygon(p)
}

// atFloor reports whether no ring can lose another vertex.
func atFloor(p types.Polygon) bool {
	if len(types.OpenRing(p.Exterior)) > 3 {
		return false
	}
	for _, h := range p.Holes {
		if len(types.OpenRing(h)) > 3 {
			return false
		}
	}
	return true
}

// apply simplifies every ring with epsilon, dropping holes that collapse.
func (v *Vectorizer) apply(p types.Polygon, epsilon float64) types.Polygon {
	out := types.Polygon{Exterior: v.Simplifier.SimplifyRing(p.Exterior, epsilon)}
	for _, h := range p.Holes {
		if s := v.Simplifier.SimplifyRing(h, epsilon); distinct(s) >= 3 {
			out.Holes = append(out.Holes, s)
		}
	}
	return out
}

// vertexCount counts the vertices of every ring, excluding closing vertices.
func vertexCount(p types.Polygon) int {
	n := len(types.OpenRing(p.Exterior))
	for _, h := range p.Holes {
		n += len(types.OpenRing(h))
	}
	return n
}

// roundPolygon rounds to integer pixels and closes each ring; ok is false
// when the exterior no longer has three distinct vertices.
func roundPolygon(p types.Polygon) (types.Polygon, bool) {
	ext := dedupe(geometry.Round(p.Exterior))
	if distinct(ext) < 3 {
		return types.Polygon{}, false
	}
	out := types.Polygon{Exterior: types.CloseRing(ext)}
	for _, h := range p.Holes {
		if r := dedupe(geometry.Round(h)); distinct(r) >= 3 {
			out.Holes = append(out.Holes, types.CloseRing(r))
		}
	}
	return out, true
}

// dedupe drops consecutive repeated vertices.
func dedupe(ring []types.Point) []types.Point {
	out := make([]types.Point, 0, len(ring))
	for i, p := range ring {
		if i > 0 && p == out[len(out)-1] {
			continue
		}
		out = append(out, p)
	}
	return out
}

func distinct(ring []types.Point) int {
	seen := make(map[types.Point]struct{}, len(ring))
	for _, p := range ring {
		seen[p] = struct{}{}
	}
	return len(seen)
}
