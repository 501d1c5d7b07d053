// Package voc exports labels as Pascal VOC XML annotation files.
package voc

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/soundprediction/labelkit/pkg/types"
)

// Annotation is the <annotation> document of one image.
type Annotation struct {
	XMLName   xml.Name `xml:"annotation"`
	Folder    string   `xml:"folder"`
	Filename  string   `xml:"filename"`
	Path      string   `xml:"path"`
	Source    Source   `xml:"source"`
	Size      Size     `xml:"size"`
	Segmented int      `xml:"segmented"`
	Objects   []Object `xml:"object"`
}

// Source names the originating database.
type Source struct {
	Database string `xml:"database"`
}

// Size is the image size; Depth is the channel count.
type Size struct {
	Width  int `xml:"width"`
	Height int `xml:"height"`
	Depth  int `xml:"depth"`
}

// Object is one geometry instance, carrying either a box or a polygon.
type Object struct {
	Name      string   `xml:"name"`
	Pose      string   `xml:"pose"`
	Truncated int      `xml:"truncated"`
	Difficult int      `xml:"difficult"`
	BndBox    *BndBox  `xml:"bndbox,omitempty"`
	Polygon   *Polygon `xml:"polygon,omitempty"`
}

// BndBox is an axis-aligned box in top-left pixel space.
type BndBox struct {
	XMin Coord `xml:"xmin"`
	YMin Coord `xml:"ymin"`
	XMax Coord `xml:"xmax"`
	YMax Coord `xml:"ymax"`
}

// Coord is a coordinate written in plain decimal notation.
type Coord float64

// MarshalText implements encoding.TextMarshaler.
func (c Coord) MarshalText() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(c), 'f', -1, 64), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Coord) UnmarshalText(b []byte) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	if err != nil {
		return err
	}
	*c = Coord(v)
	return nil
}

// Polygon is an open ring written as numbered <x1>, <y1>, <x2>, ... children.
type Polygon struct {
	Points []types.Point
}

// MarshalXML implements xml.Marshaler.
func (p Polygon) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for i, pt := range p.Points {
		n := strconv.Itoa(i + 1)
		if err := e.EncodeElement(Coord(pt.X), xml.StartElement{Name: xml.Name{Local: "x" + n}}); err != nil {
			return err
		}
		if err := e.EncodeElement(Coord(pt.Y), xml.StartElement{Name: xml.Name{Local: "y" + n}}); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

// UnmarshalXML implements xml.Unmarshaler.
func (p *Polygon) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	coords := map[string]Coord{}
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var c Coord
			if err := d.DecodeElement(&c, &t); err != nil {
				return err
			}
			coords[t.Name.Local] = c
		case xml.EndElement:
			for i := 1; ; i++ {
				n := strconv.Itoa(i)
				x, okX := coords["x"+n]
				y, okY := coords["y"+n]
				if !okX && !okY {
					break
				}
				if okX != okY {
					return fmt.Errorf("polygon vertex %d is missing a coordinate", i)
				}
				p.Points = append(p.Points, types.Point{X: float64(x), Y: float64(y)})
			}
			return nil
		}
	}
}

// Marshal renders an annotation document with an XML header.
func Marshal(a *Annotation) ([]byte, error) {
	body, err := xml.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal voc annotation: %w", err)
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

// Unmarshal parses an annotation document.
func Unmarshal(data []byte) (*Annotation, error) {
	var a Annotation
	if err := xml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("unmarshal voc annotation: %w", err)
	}
	return &a, nil
}
