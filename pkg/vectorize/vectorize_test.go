package vectorize

import (
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/labelkit/pkg/types"
	"github.com/soundprediction/labelkit/pkg/utils"
)

func grid(h, w int, set func(x, y int) int) [][]int {
	g := make([][]int, h)
	for y := range g {
		g[y] = make([]int, w)
		for x := range g[y] {
			g[y][x] = set(x, y)
		}
	}
	return g
}

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

func polygonOf(t *testing.T, ann types.Annotation) types.Polygon {
	t.Helper()
	p, ok := ann.Value.(types.Polygon)
	require.True(t, ok, "expected polygon, got %T", ann.Value)
	return p
}

func TestVectorizeTopLeftSquare(t *testing.T) {
	mask := grid(32, 32, func(x, y int) int {
		if x < 10 && y < 10 {
			return 1
		}
		return 0
	})

	out, err := New().Vectorize(mask, map[int]string{1: "X"}, Options{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, out["X"], 1)

	ann := out["X"][0]
	assert.Equal(t, "X", ann.Schema.Name)
	poly := polygonOf(t, ann)
	assert.Contains(t, poly.Exterior, types.Point{X: 0, Y: 0})
	assert.Equal(t, []types.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}, {X: 0, Y: 0}}, poly.Exterior)
	assert.Empty(t, poly.Holes)
}

func TestVectorizeBackgroundSuppressed(t *testing.T) {
	mask := grid(6, 6, func(x, y int) int {
		if x >= 2 && x < 4 && y >= 2 && y < 4 {
			return 2
		}
		return 0
	})

	out, err := New().Vectorize(mask, map[int]string{0: "background", 2: "dog"}, Options{})
	require.NoError(t, err)
	assert.NotContains(t, out, "background")
	require.Len(t, out["dog"], 1)
}

func TestVectorizeHole(t *testing.T) {
	mask := grid(5, 5, func(x, y int) int {
		if x == 2 && y == 2 {
			return 0
		}
		return 1
	})

	out, err := New().Vectorize(mask, map[int]string{1: "ring"}, Options{})
	require.NoError(t, err)
	require.Len(t, out["ring"], 1)

	poly := polygonOf(t, out["ring"][0])
	assert.Equal(t, []types.Point{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 5, Y: 5}, {X: 0, Y: 5}, {X: 0, Y: 0}}, poly.Exterior)
	require.Len(t, poly.Holes, 1)
	assert.ElementsMatch(t,
		[]types.Point{{X: 2, Y: 2}, {X: 3, Y: 2}, {X: 3, Y: 3}, {X: 2, Y: 3}},
		types.OpenRing(poly.Holes[0]))
}

func TestVectorizeDiagonalRegionsStaySeparate(t *testing.T) {
	mask := [][]int{
		{1, 0},
		{0, 1},
	}
	out, err := New().Vectorize(mask, map[int]string{1: "a"}, Options{})
	require.NoError(t, err)
	require.Len(t, out["a"], 2)
	assert.Equal(t, []types.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0}}, polygonOf(t, out["a"][0]).Exterior)
	assert.Equal(t, []types.Point{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}, {X: 1, Y: 2}, {X: 1, Y: 1}}, polygonOf(t, out["a"][1]).Exterior)
}

func TestVectorizePointBudget(t *testing.T) {
	staircase := grid(20, 20, func(x, y int) int {
		if x <= y {
			return 1
		}
		return 0
	})

	raw, err := New().Vectorize(staircase, map[int]string{1: "stairs"}, Options{})
	require.NoError(t, err)
	require.Len(t, raw["stairs"], 1)
	require.Greater(t, len(types.OpenRing(polygonOf(t, raw["stairs"][0]).Exterior)), 10)

	out, err := New().Vectorize(staircase, map[int]string{1: "stairs"}, Options{MaxPoints: intPtr(10)})
	require.NoError(t, err)
	require.Len(t, out["stairs"], 1)
	assert.LessOrEqual(t, len(types.OpenRing(polygonOf(t, out["stairs"][0]).Exterior)), 10)
}

func regionCount(out map[string][]types.Annotation) int {
	var n int
	for _, anns := range out {
		n += len(anns)
	}
	return n
}

func TestVectorizePointBudgetRandomMasks(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	legend := map[int]string{1: "a", 2: "b", 3: "c"}
	for i := 0; i < 20; i++ {
		mask := grid(24, 24, func(x, y int) int { return rng.IntN(4) })
		traced, err := New().Vectorize(mask, legend, Options{})
		require.NoError(t, err)

		for _, k := range []int{3, 4, 10, 50} {
			out, err := New().Vectorize(mask, legend, Options{MaxPoints: intPtr(k)})
			require.NoError(t, err)
			assert.Equal(t, regionCount(traced), regionCount(out), "mask %d, budget %d", i, k)
			for _, anns := range out {
				for _, ann := range anns {
					assert.LessOrEqual(t, vertexCount(polygonOf(t, ann)), k)
					assert.NoError(t, ann.Validate())
				}
			}
		}
	}
}

func TestVectorizeSmallBudgetKeepsRegions(t *testing.T) {
	disk := grid(40, 40, func(x, y int) int {
		dx, dy := x-20, y-20
		if dx*dx+dy*dy <= 15*15 {
			return 1
		}
		return 0
	})
	annulus := grid(40, 40, func(x, y int) int {
		dx, dy := x-20, y-20
		if d := dx*dx + dy*dy; d <= 15*15 && d > 6*6 {
			return 1
		}
		return 0
	})

	tests := []struct {
		name      string
		mask      [][]int
		maxPoints int
		holes     int
	}{
		{"disk k=3", disk, 3, 0},
		{"disk k=4", disk, 4, 0},
		{"disk k=10", disk, 10, 0},
		{"annulus k=3 drops the hole", annulus, 3, 0},
		{"annulus k=6 keeps the hole", annulus, 6, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := New().Vectorize(tt.mask, map[int]string{1: "round"}, Options{MaxPoints: intPtr(tt.maxPoints)})
			require.NoError(t, err)
			require.Len(t, out["round"], 1)

			p := polygonOf(t, out["round"][0])
			assert.LessOrEqual(t, vertexCount(p), tt.maxPoints)
			assert.GreaterOrEqual(t, len(types.OpenRing(p.Exterior)), 3)
			assert.Len(t, p.Holes, tt.holes)
		})
	}
}

func TestVectorizeEpsilon(t *testing.T) {
	mask := grid(3, 3, func(x, y int) int { return 1 })

	out, err := New().Vectorize(mask, map[int]string{1: "sq"}, Options{Epsilon: floatPtr(0.5)})
	require.NoError(t, err)
	require.Len(t, out["sq"], 1)

	out, err = New().Vectorize(mask, map[int]string{1: "sq"}, Options{Epsilon: floatPtr(100)})
	require.NoError(t, err)
	require.Len(t, out["sq"], 1, "a region never collapses below a triangle")
	assert.Equal(t, []types.Point{{X: 0, Y: 0}, {X: 3, Y: 0}, {X: 3, Y: 3}, {X: 0, Y: 0}}, polygonOf(t, out["sq"][0]).Exterior)
}

func TestVectorizeUnknownValuesSkipped(t *testing.T) {
	mask := [][]int{{7, 7, 1}}
	out, err := New().Vectorize(mask, map[int]string{1: "known"}, Options{})
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Len(t, out["known"], 1)
}

func TestVectorizeErrors(t *testing.T) {
	tests := []struct {
		name string
		grid [][]int
		opts Options
	}{
		{name: "ragged", grid: [][]int{{1, 1}, {1}}, opts: Options{}},
		{name: "nil", grid: nil, opts: DefaultOptions()},
		{name: "no rows", grid: [][]int{}, opts: DefaultOptions()},
		{name: "no columns", grid: [][]int{{}}, opts: DefaultOptions()},
		{name: "budget too small", grid: [][]int{{1}}, opts: Options{MaxPoints: intPtr(2)}},
		{name: "negative epsilon", grid: [][]int{{1}}, opts: Options{Epsilon: floatPtr(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Vectorize(tt.grid, map[int]string{1: "a"}, tt.opts)
			assert.ErrorIs(t, err, types.ErrValidation)
		})
	}
}

// stubExtractor returns fixed shapes.
type stubExtractor []Shape

func (s stubExtractor) Extract([][]int) ([]Shape, error) { return s, nil }

func TestVectorizeRoundsCoordinates(t *testing.T) {
	v := New()
	v.Extractor = stubExtractor{{
		Value:   1,
		Polygon: types.NewPolygon([]types.Point{{X: 0.4, Y: 0.4}, {X: 10.6, Y: 0}, {X: 10, Y: 9.7}}),
	}}

	out, err := v.Vectorize(nil, map[int]string{1: "tri"}, Options{})
	require.NoError(t, err)
	require.Len(t, out["tri"], 1)
	assert.Equal(t,
		[]types.Point{{X: 0, Y: 0}, {X: 11, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 0}},
		polygonOf(t, out["tri"][0]).Exterior)
}

type panicExtractor struct{}

func (panicExtractor) Extract([][]int) ([]Shape, error) { panic("index out of range") }

func TestVectorizeRecoversExtractorPanic(t *testing.T) {
	v := New()
	v.Extractor = panicExtractor{}

	out, err := v.Vectorize([][]int{{1}}, map[int]string{1: "a"}, DefaultOptions())
	assert.Nil(t, out)
	var perr *utils.PanicError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "index out of range", perr.Value)
}

func TestParseLegend(t *testing.T) {
	legend, err := ParseLegend([]byte("1: cat\n2: dog\n"))
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "cat", 2: "dog"}, legend)

	_, err = ParseLegend([]byte("-1: cat\n"))
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = ParseLegend([]byte("3: ''\n"))
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = ParseLegend([]byte("cat: 1\n"))
	assert.ErrorIs(t, err, types.ErrDecode)
}

func TestLoadLegendAndMask(t *testing.T) {
	dir := t.TempDir()
	legendPath := filepath.Join(dir, "legend.yaml")
	require.NoError(t, os.WriteFile(legendPath, []byte("3: road\n"), 0o644))

	gray := image.NewGray(image.Rect(0, 0, 4, 2))
	gray.SetGray(1, 0, color.Gray{Y: 3})
	gray.SetGray(2, 0, color.Gray{Y: 3})
	maskPath := filepath.Join(dir, "mask.png")
	f, err := os.Create(maskPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, gray))
	require.NoError(t, f.Close())

	legend, err := LoadLegend(legendPath)
	require.NoError(t, err)
	mask, err := LoadMask(maskPath)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 3, 3, 0}, {0, 0, 0, 0}}, mask)

	out, err := New().Vectorize(mask, legend, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, out["road"], 1)
	assert.Equal(t,
		[]types.Point{{X: 1, Y: 0}, {X: 3, Y: 0}, {X: 3, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}},
		polygonOf(t, out["road"][0]).Exterior)

	_, err = LoadMask(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestMaskFromPaletted(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 2, 1), color.Palette{color.Black, color.White, color.Gray{Y: 10}})
	pal.SetColorIndex(1, 0, 2)
	assert.Equal(t, [][]int{{0, 2}}, MaskFromImage(pal))
}
