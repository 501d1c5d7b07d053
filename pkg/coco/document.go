// Package coco exports labels as a COCO object detection / segmentation document.
package coco

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Document is a COCO dataset document.
type Document struct {
	Info        Info         `json:"info"`
	Images      []Image      `json:"images"`
	Annotations []Annotation `json:"annotations"`
	Licenses    []License    `json:"licenses"`
	Categories  []Category   `json:"categories"`
}

// Info describes the dataset.
type Info struct {
	Year        int     `json:"year"`
	Version     *string `json:"version"`
	Description string  `json:"description"`
	Contributor string  `json:"contributor"`
	URL         string  `json:"url"`
	DateCreated string  `json:"date_created"`
}

// Image is one exported image, keyed by the label id.
type Image struct {
	ID           string  `json:"id"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	FileName     string  `json:"file_name"`
	License      *int    `json:"license"`
	FlickrURL    string  `json:"flickr_url"`
	COCOURL      string  `json:"coco_url"`
	DateCaptured *string `json:"date_captured"`
}

// Annotation is one polygon instance. Coordinates use a bottom-left origin.
type Annotation struct {
	ID           int         `json:"id"`
	ImageID      string      `json:"image_id"`
	CategoryID   int         `json:"category_id"`
	Segmentation [][]float64 `json:"segmentation"`
	Area         float64     `json:"area"`
	BBox         [4]float64  `json:"bbox"`
	IsCrowd      int         `json:"iscrowd"`
}

// Category is a label class; Supercategory repeats Name.
type Category struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
}

// License is kept for schema conformance; exports carry none.
type License struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

func newDocument(projectName, createdBy, url string, now time.Time) *Document {
	now = now.UTC()
	return &Document{
		Info: Info{
			Year:        now.Year(),
			Description: projectName,
			Contributor: createdBy,
			URL:         url,
			DateCreated: now.Format(time.RFC3339),
		},
		Images:      []Image{},
		Annotations: []Annotation{},
		Licenses:    []License{},
		Categories:  []Category{},
	}
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode coco document: %w", err)
	}
	return nil
}
