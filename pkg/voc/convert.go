package voc

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/soundprediction/labelkit/pkg/geometry"
	"github.com/soundprediction/labelkit/pkg/imagery"
	"github.com/soundprediction/labelkit/pkg/native"
	"github.com/soundprediction/labelkit/pkg/types"
	"github.com/soundprediction/labelkit/pkg/utils"
)

const (
	// DefaultImagesDir is written to <folder> and <path> unless WithImagesDir overrides it.
	DefaultImagesDir = "images"
	defaultDatabase  = "Unknown"
	defaultPose      = "Unspecified"
)

// Output is the XML document and image of one exported label.
type Output struct {
	// Name is the annotation file name, <label id>.xml.
	Name      string
	XML       []byte
	ImageName string
	Image     *imagery.Image
}

// Converter builds Pascal VOC documents from native export records.
type Converter struct {
	fetcher     imagery.Fetcher
	logger      *slog.Logger
	workers     int
	imagesDir   string
	imageFormat string
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

// WithImagesDir sets the directory images are referenced from.
func WithImagesDir(dir string) Option {
	return func(c *Converter) { c.imagesDir = dir }
}

// WithImageFormat re-encodes every image to format (jpg or png).
func WithImageFormat(format string) Option {
	return func(c *Converter) { c.imageFormat = format }
}

// NewConverter creates a converter resolving images through fetcher.
func NewConverter(fetcher imagery.Fetcher, opts ...Option) *Converter {
	c := &Converter{
		fetcher:   fetcher,
		logger:    slog.Default(),
		workers:   utils.WorkerLimit(),
		imagesDir: DefaultImagesDir,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.workers <= 0 {
		c.workers = utils.WorkerLimit()
	}
	return c
}

type pending struct {
	id      string
	url     string
	objects []objectSource
}

// objectSource is a geometry awaiting the image height.
type objectSource struct {
	name  string
	value types.Value
}

// Convert renders one Output per label carrying at least one polygon or
// rectangle, in input order. Labels without geometry emit nothing and their
// images are not fetched. Fetch failures are logged and the label skipped.
func (c *Converter) Convert(ctx context.Context, records iter.Seq2[native.Record, error], format native.Format) ([]Output, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	var outputs []Output
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
			out, err := c.render(p, images[i])
			if err != nil {
				return err
			}
			outputs = append(outputs, out)
		}
		batch = batch[:0]
		return nil
	}

	for rec, err := range records {
		if err != nil {
			return nil, err
		}
		label, err := native.Decode(rec, format)
		if err != nil {
			return nil, err
		}
		objs := objectsOf(label)
		if len(objs) == 0 {
			continue
		}
		batch = append(batch, pending{id: rec.ID, url: rec.LabeledData, objects: objs})
		if len(batch) == c.workers {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return nil, err
		}
	}
	return outputs, nil
}

func objectsOf(l types.Label) []objectSource {
	var out []objectSource
	for _, ann := range l.Annotations {
		switch ann.Value.(type) {
		case types.Polygon, types.Rectangle:
			name := ann.Schema.Name
			if name == "" {
				name = ann.Schema.SchemaID
			}
			out = append(out, objectSource{name: name, value: ann.Value})
		}
	}
	return out
}

func (c *Converter) render(p pending, img *imagery.Image) (Output, error) {
	img, err := imagery.Reencode(img, c.imageFormat)
	if err != nil {
		return Output{}, fmt.Errorf("label %s: %w", p.id, err)
	}
	imageName := p.id + img.Extension()

	doc := &Annotation{
		Folder:   filepath.Base(c.imagesDir),
		Filename: imageName,
		Path:     filepath.Join(c.imagesDir, imageName),
		Source:   Source{Database: defaultDatabase},
		Size:     Size{Width: img.Width, Height: img.Height, Depth: img.Depth},
	}
	height := float64(img.Height)
	for _, o := range p.objects {
		obj := Object{Name: o.name, Pose: defaultPose}
		switch v := o.value.(type) {
		case types.Rectangle:
			obj.BndBox = &BndBox{
				XMin: Coord(v.Left),
				YMin: Coord(v.Top),
				XMax: Coord(v.Left + v.Width),
				YMax: Coord(v.Top + v.Height),
			}
		case types.Polygon:
			obj.Polygon = &Polygon{Points: geometry.FlipY(types.OpenRing(v.Exterior), height)}
		}
		doc.Objects = append(doc.Objects, obj)
	}

	data, err := Marshal(doc)
	if err != nil {
		return Output{}, err
	}
	return Output{Name: p.id + ".xml", XML: data, ImageName: imageName, Image: img}, nil
}

// WriteOutputs writes each XML document to annotationsDir and each image to
// imagesDir, creating both directories.
func WriteOutputs(outputs []Output, annotationsDir, imagesDir string) error {
	for _, dir := range []string{annotationsDir, imagesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	for _, out := range outputs {
		if err := os.WriteFile(filepath.Join(annotationsDir, out.Name), out.XML, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out.Name, err)
		}
		if out.Image == nil {
			continue
		}
		if err := os.WriteFile(filepath.Join(imagesDir, out.ImageName), out.Image.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out.ImageName, err)
		}
	}
	return nil
}
