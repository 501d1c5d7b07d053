package vectorize

import (
	"cmp"
	"slices"

	"github.com/soundprediction/labelkit/pkg/geometry"
	"github.com/soundprediction/labelkit/pkg/types"
)

// Shape is one connected region of equal pixel value.
type Shape struct {
	Polygon types.Polygon
	Value   int
}

// ShapeExtractor polygonizes a segmentation grid.
type ShapeExtractor interface {
	Extract(grid [][]int) ([]Shape, error)
}

// EdgeTracer extracts 4-connected regions by walking the pixel edges on
// their boundary. Regions are yielded in raster order of their first pixel,
// background included. Vertices lie on pixel corners and collinear vertices
// are removed.
type EdgeTracer struct{}

type vertex struct{ x, y int }

type edge struct{ from, to vertex }

func (e edge) dir() vertex { return vertex{e.to.x - e.from.x, e.to.y - e.from.y} }

// Extract implements ShapeExtractor.
func (EdgeTracer) Extract(grid [][]int) ([]Shape, error) {
	h, w, err := dims(grid)
	if err != nil {
		return nil, err
	}

	comp := make([][]int, h)
	for y := range comp {
		comp[y] = make([]int, w)
	}

	var shapes []Shape
	next := 1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if comp[y][x] != 0 {
				continue
			}
			pixels := fill(grid, comp, x, y, next)
			inside := func(px, py int) bool {
				return px >= 0 && py >= 0 && px < w && py < h && comp[py][px] == next
			}
			for _, poly := range trace(pixels, inside) {
				shapes = append(shapes, Shape{Polygon: poly, Value: grid[y][x]})
			}
			next++
		}
	}
	return shapes, nil
}

// dims rejects empty and ragged grids.
func dims(grid [][]int) (int, int, error) {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return 0, 0, types.NewValidationError("mask", "mask must have at least one row and one column")
	}
	w := len(grid[0])
	for i, row := range grid {
		if len(row) != w {
			return 0, 0, types.NewValidationError("mask", "row %d has %d columns, expected %d", i, len(row), w)
		}
	}
	return len(grid), w, nil
}

// fill labels the 4-connected region of (x0, y0) with id and returns its
// pixels in raster order.
func fill(grid, comp [][]int, x0, y0, id int) []vertex {
	value := grid[y0][x0]
	comp[y0][x0] = id
	queue := []vertex{{x0, y0}}
	for i := 0; i < len(queue); i++ {
		p := queue[i]
		for _, d := range [4]vertex{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := p.x+d.x, p.y+d.y
			if ny < 0 || ny >= len(grid) || nx < 0 || nx >= len(grid[ny]) {
				continue
			}
			if comp[ny][nx] != 0 || grid[ny][nx] != value {
				continue
			}
			comp[ny][nx] = id
			queue = append(queue, vertex{nx, ny})
		}
	}
	slices.SortFunc(queue, func(a, b vertex) int {
		return cmp.Or(cmp.Compare(a.y, b.y), cmp.Compare(a.x, b.x))
	})
	return queue
}

// trace links the boundary edges of a region into rings. Edges keep the
// region on their right, so exteriors run clockwise and holes counter-clockwise
// in image space. Holes are attached to the largest exterior.
func trace(pixels []vertex, inside func(x, y int) bool) []types.Polygon {
	var order []edge
	out := make(map[vertex][]edge)
	add := func(e edge) {
		order = append(order, e)
		out[e.from] = append(out[e.from], e)
	}
	for _, p := range pixels {
		x, y := p.x, p.y
		if !inside(x, y-1) {
			add(edge{vertex{x, y}, vertex{x + 1, y}})
		}
		if !inside(x+1, y) {
			add(edge{vertex{x + 1, y}, vertex{x + 1, y + 1}})
		}
		if !inside(x, y+1) {
			add(edge{vertex{x + 1, y + 1}, vertex{x, y + 1}})
		}
		if !inside(x-1, y) {
			add(edge{vertex{x, y + 1}, vertex{x, y}})
		}
	}

	used := make(map[edge]bool, len(order))
	var exteriors, holes [][]types.Point
	for _, start := range order {
		if used[start] {
			continue
		}
		ring := walk(start, out, used)
		if geometry.SignedArea(ring) > 0 {
			exteriors = append(exteriors, ring)
		} else {
			holes = append(holes, ring)
		}
	}
	if len(exteriors) == 0 {
		return nil
	}

	largest := 0
	for i, r := range exteriors {
		if geometry.SignedArea(r) > geometry.SignedArea(exteriors[largest]) {
			largest = i
		}
	}
	polys := make([]types.Polygon, len(exteriors))
	for i, r := range exteriors {
		polys[i] = types.Polygon{Exterior: r}
		if i == largest {
			polys[i].Holes = holes
		}
	}
	return polys
}

// walk follows edges from start until the ring closes. At a vertex with two
// outgoing edges the walk turns right, which keeps diagonal neighbours apart.
func walk(start edge, out map[vertex][]edge, used map[edge]bool) []types.Point {
	used[start] = true
	verts := []vertex{start.from}
	cur := start
	for {
		verts = append(verts, cur.to)
		nxt, ok := turn(cur, out[cur.to], used)
		if !ok {
			break
		}
		used[nxt] = true
		cur = nxt
	}
	return ringPoints(verts)
}

// turn picks the outgoing edge preferring right, straight, then left. ok is
// false when that edge was already walked, which closes the ring.
func turn(cur edge, candidates []edge, used map[edge]bool) (edge, bool) {
	d := cur.dir()
	for _, want := range [3]vertex{{-d.y, d.x}, d, {d.y, -d.x}} {
		for _, e := range candidates {
			if e.dir() == want {
				return e, !used[e]
			}
		}
	}
	return edge{}, false
}

// ringPoints converts a closed vertex walk to a closed ring without
// collinear vertices.
func ringPoints(verts []vertex) []types.Point {
	open := verts[:len(verts)-1]
	n := len(open)
	var kept []vertex
	for i, v := range open {
		prev := open[(i+n-1)%n]
		next := open[(i+1)%n]
		if (edge{prev, v}).dir() == (edge{v, next}).dir() {
			continue
		}
		kept = append(kept, v)
	}
	pts := make([]types.Point, 0, len(kept)+1)
	for _, v := range kept {
		pts = append(pts, types.Point{X: float64(v.x), Y: float64(v.y)})
	}
	return types.CloseRing(pts)
}
