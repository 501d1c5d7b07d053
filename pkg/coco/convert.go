package coco

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/soundprediction/labelkit/pkg/geometry"
	"github.com/soundprediction/labelkit/pkg/imagery"
	"github.com/soundprediction/labelkit/pkg/native"
	"github.com/soundprediction/labelkit/pkg/types"
	"github.com/soundprediction/labelkit/pkg/utils"
)

// DefaultURL is written to Info.URL unless WithURL overrides it.
const DefaultURL = "labelbox.com"

// Converter builds COCO documents from native export records.
type Converter struct {
	fetcher imagery.Fetcher
	logger  *slog.Logger
	workers int
	now     func() time.Time
	url     string
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger used for skipped labels.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) { c.logger = logger }
}

// WithWorkers bounds the number of concurrent image fetches.
func WithWorkers(n int) Option {
	return func(c *Converter) { c.workers = n }
}

// WithClock sets the time source for Info.Year and Info.DateCreated.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) { c.now = now }
}

// WithURL sets Info.URL.
func WithURL(url string) Option {
	return func(c *Converter) { c.url = url }
}

// NewConverter creates a converter resolving images through fetcher.
func NewConverter(fetcher imagery.Fetcher, opts ...Option) *Converter {
	c := &Converter{
		fetcher: fetcher,
		logger:  slog.Default(),
		workers: utils.WorkerLimit(),
		now:     time.Now,
		url:     DefaultURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.workers <= 0 {
		c.workers = utils.WorkerLimit()
	}
	return c
}

// pending is a decoded label waiting for its image.
type pending struct {
	id    string
	url   string
	label types.Label
}

// Convert folds records into a COCO document in input order. Image fetches
// for up to workers labels overlap; ids are assigned after each batch is
// fetched, in record order. A label whose image cannot be fetched is logged
// and left out of the document entirely.
//
// Unknown formats and decode or validation failures abort the conversion and
// no document is returned.
func (c *Converter) Convert(ctx context.Context, records iter.Seq2[native.Record, error], format native.Format) (*Document, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	var acc *accumulator
	batch := make([]pending, 0, c.workers)

	flush := func() error {
		urls := make([]string, len(batch))
		for i, p := range batch {
			urls[i] = p.url
		}
		images, errs := imagery.FetchAll(ctx, c.fetcher, urls, c.workers)
		if err := ctx.Err(); err != nil {
			return err
		}
		for i, p := range batch {
			if errs[i] != nil {
				c.logger.WarnContext(ctx, "skipping label: image fetch failed",
					"label_id", p.id, "url", p.url, "error", errs[i])
				continue
			}
			acc.add(p, images[i])
		}
		batch = batch[:0]
		return nil
	}

	for rec, err := range records {
		if err != nil {
			return nil, err
		}
		if acc == nil {
			acc = newAccumulator(newDocument(rec.ProjectName(), rec.CreatedBy(), c.url, c.now()))
		}
		label, err := native.Decode(rec, format)
		if err != nil {
			return nil, err
		}
		batch = append(batch, pending{id: rec.ID, url: rec.LabeledData, label: label})
		if len(batch) == c.workers {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}

	if acc == nil {
		return newDocument("", "", c.url, c.now()), nil
	}
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return nil, err
		}
	}

	c.logger.InfoContext(ctx, "exported coco document",
		"images", len(acc.doc.Images),
		"annotations", len(acc.doc.Annotations),
		"categories", len(acc.doc.Categories))
	return acc.doc, nil
}

// accumulator threads the id counters through the fold.
type accumulator struct {
	doc       *Document
	nextAnnID int
	catIDs    map[string]int
}

func newAccumulator(doc *Document) *accumulator {
	return &accumulator{doc: doc, nextAnnID: 1, catIDs: make(map[string]int)}
}

func (a *accumulator) add(p pending, img *imagery.Image) {
	a.doc.Images = append(a.doc.Images, Image{
		ID:        p.id,
		Width:     img.Width,
		Height:    img.Height,
		FileName:  p.url,
		FlickrURL: p.url,
		COCOURL:   p.url,
	})

	height := float64(img.Height)
	for _, ann := range p.label.Annotations {
		var poly types.Polygon
		switch v := ann.Value.(type) {
		case types.Polygon:
			poly = v
		case types.Rectangle:
			poly = types.Polygon{Exterior: v.Corners()}
		default:
			continue
		}

		flipped := geometry.FlipY(types.OpenRing(poly.Exterior), height)
		a.doc.Annotations = append(a.doc.Annotations, Annotation{
			ID:           a.nextAnnID,
			ImageID:      p.id,
			CategoryID:   a.category(className(ann.Schema)),
			Segmentation: [][]float64{flatten(flipped)},
			Area:         geometry.Area(poly),
			BBox:         bbox(flipped),
			IsCrowd:      0,
		})
		a.nextAnnID++
	}
}

// category returns the id of name, assigning the next id on first sight.
func (a *accumulator) category(name string) int {
	if id, ok := a.catIDs[name]; ok {
		return id
	}
	id := len(a.doc.Categories) + 1
	a.catIDs[name] = id
	a.doc.Categories = append(a.doc.Categories, Category{ID: id, Name: name, Supercategory: name})
	return id
}

func className(s types.FeatureSchema) string {
	if s.Name != "" {
		return s.Name
	}
	return s.SchemaID
}

func flatten(pts []types.Point) []float64 {
	out := make([]float64, 0, 2*len(pts))
	for _, p := range pts {
		out = append(out, p.X, p.Y)
	}
	return out
}

func bbox(pts []types.Point) [4]float64 {
	b := geometry.Bounds(pts)
	return [4]float64{b.Left, b.Top, b.Width, b.Height}
}

// String summarizes the document for logs.
func (d *Document) String() string {
	return fmt.Sprintf("coco: %d images, %d annotations, %d categories",
		len(d.Images), len(d.Annotations), len(d.Categories))
}
