package types

import (
	"math"
)

// Kind discriminates the Value carried by an Annotation.
type Kind string

const (
	KindPoint      Kind = "point"
	KindLine       Kind = "line"
	KindPolygon    Kind = "polygon"
	KindRectangle  Kind = "rectangle"
	KindMask       Kind = "mask"
	KindTextEntity Kind = "text_entity"
	KindRadio      Kind = "radio"
	KindChecklist  Kind = "checklist"
	KindText       Kind = "text"
)

// IsGeometry reports whether the kind is a geometry in image pixel space.
func (k Kind) IsGeometry() bool {
	switch k {
	case KindPoint, KindLine, KindPolygon, KindRectangle, KindMask:
		return true
	}
	return false
}

// IsClassification reports whether the kind is a classification value.
func (k Kind) IsClassification() bool {
	switch k {
	case KindRadio, KindChecklist, KindText:
		return true
	}
	return false
}

// Value is the discriminated payload of an Annotation.
// The set of implementations is closed to this package.
type Value interface {
	Kind() Kind
	validate(field string) error
}

// Point is a location in image pixel space; origin top-left, y grows downward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (Point) Kind() Kind { return KindPoint }

func (p Point) validate(field string) error {
	if !finite(p.X) || !finite(p.Y) {
		return NewValidationError(field, "point coordinates must be finite")
	}
	return nil
}

// Line is an open polyline.
type Line struct {
	Points []Point
}

func (Line) Kind() Kind { return KindLine }

func (l Line) validate(field string) error {
	if len(l.Points) < 2 {
		return NewValidationError(field, "line requires at least 2 vertices, got %d", len(l.Points))
	}
	for _, p := range l.Points {
		if err := p.validate(field); err != nil {
			return err
		}
	}
	return nil
}

// Polygon is a simple closed exterior ring with optional holes.
// Rings are stored closed: the last vertex equals the first.
type Polygon struct {
	Exterior []Point
	Holes    [][]Point
}

// NewPolygon returns a polygon with every ring closed.
func NewPolygon(exterior []Point, holes ...[]Point) Polygon {
	p := Polygon{Exterior: CloseRing(exterior)}
	for _, h := range holes {
		p.Holes = append(p.Holes, CloseRing(h))
	}
	return p
}

// CloseRing returns a copy of ring with the closing vertex appended iff the last
// vertex differs from the first.
func CloseRing(ring []Point) []Point {
	out := make([]Point, len(ring), len(ring)+1)
	copy(out, ring)
	if len(out) > 0 && out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	return out
}

// OpenRing returns ring without its closing vertex.
func OpenRing(ring []Point) []Point {
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		return ring[:len(ring)-1]
	}
	return ring
}

// Normalize closes every ring of the polygon.
func (p Polygon) Normalize() Polygon {
	return NewPolygon(p.Exterior, p.Holes...)
}

func (Polygon) Kind() Kind { return KindPolygon }

func (p Polygon) validate(field string) error {
	if err := validateRing(field, p.Exterior); err != nil {
		return err
	}
	for _, h := range p.Holes {
		if err := validateRing(field+".holes", h); err != nil {
			return err
		}
	}
	return nil
}

func validateRing(field string, ring []Point) error {
	if len(ring) == 0 || ring[0] != ring[len(ring)-1] {
		return NewValidationError(field, "ring is not closed")
	}
	distinct := make(map[Point]struct{}, len(ring))
	for _, pt := range ring {
		if err := pt.validate(field); err != nil {
			return err
		}
		distinct[pt] = struct{}{}
	}
	if len(distinct) < 3 {
		return NewValidationError(field, "polygon requires at least 3 distinct vertices, got %d", len(distinct))
	}
	return nil
}

// Rectangle is an axis-aligned box in pixel space.
type Rectangle struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

func (Rectangle) Kind() Kind { return KindRectangle }

func (r Rectangle) validate(field string) error {
	if !finite(r.Left) || !finite(r.Top) || !finite(r.Width) || !finite(r.Height) {
		return NewValidationError(field, "rectangle values must be finite")
	}
	if r.Width <= 0 || r.Height <= 0 {
		return NewValidationError(field, "rectangle width and height must be positive, got %vx%v", r.Width, r.Height)
	}
	return nil
}

// Corners returns the rectangle as a closed ring, clockwise from top-left.
func (r Rectangle) Corners() []Point {
	return []Point{
		{X: r.Left, Y: r.Top},
		{X: r.Left + r.Width, Y: r.Top},
		{X: r.Left + r.Width, Y: r.Top + r.Height},
		{X: r.Left, Y: r.Top + r.Height},
		{X: r.Left, Y: r.Top},
	}
}

// Mask is a segmentation mask given either as a URI or an inline raster.
// Value is the pixel value of this class in the raster; 0 is background.
type Mask struct {
	URI    string
	Raster [][]int
	Value  int
}

func (Mask) Kind() Kind { return KindMask }

func (m Mask) validate(field string) error {
	if (m.URI == "") == (m.Raster == nil) {
		return NewValidationError(field, "exactly one of instance URI or raster is required")
	}
	if m.Value <= 0 {
		return NewValidationError(field, "mask value must be a positive class value, got %d", m.Value)
	}
	if m.Raster != nil {
		if len(m.Raster) == 0 || len(m.Raster[0]) == 0 {
			return NewValidationError(field, "raster must be non-empty")
		}
		for _, row := range m.Raster {
			if len(row) != len(m.Raster[0]) {
				return NewValidationError(field, "raster rows must have equal length")
			}
		}
	}
	return nil
}

// TextEntity is a half-open span of UTF-16 code units.
type TextEntity struct {
	Start int
	End   int
}

func (TextEntity) Kind() Kind { return KindTextEntity }

func (t TextEntity) validate(field string) error {
	if t.Start < 0 {
		return NewValidationError(field, "start must be non-negative, got %d", t.Start)
	}
	if t.Start > t.End {
		return NewValidationError(field, "start %d exceeds end %d", t.Start, t.End)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
