package labelkit

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/soundprediction/labelkit/pkg/coco"
	"github.com/soundprediction/labelkit/pkg/config"
	"github.com/soundprediction/labelkit/pkg/imagery"
	"github.com/soundprediction/labelkit/pkg/native"
	"github.com/soundprediction/labelkit/pkg/ndjson"
	"github.com/soundprediction/labelkit/pkg/types"
	"github.com/soundprediction/labelkit/pkg/vectorize"
	"github.com/soundprediction/labelkit/pkg/voc"
)

// Client wires the converters, the vectorizer and the NDJSON codec to one
// configuration and image fetcher.
type Client struct {
	cfg        *config.Config
	fetcher    imagery.Fetcher
	logger     *slog.Logger
	vectorizer *vectorize.Vectorizer
}

// NewClient creates a client. A nil cfg uses config.Default(), a nil fetcher
// an HTTPFetcher built from cfg, and a nil logger slog.Default().
func NewClient(cfg *config.Config, fetcher imagery.Fetcher, logger *slog.Logger) *Client {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if fetcher == nil {
		fetcher = imagery.NewHTTPFetcher(cfg.Fetch, cfg.CircuitBreaker, logger)
	}
	return &Client{
		cfg:        cfg,
		fetcher:    fetcher,
		logger:     logger,
		vectorizer: vectorize.New(),
	}
}

// Config returns the client configuration.
func (c *Client) Config() *config.Config {
	return c.cfg
}

// Logger returns the client logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// ParseFormat resolves a label format name, falling back to the configured
// export.label_format when name is empty.
func (c *Client) ParseFormat(name string) (native.Format, error) {
	if name == "" {
		name = c.cfg.Export.LabelFormat
	}
	return native.ParseFormat(name)
}

// ExportCOCO converts a JSON array of export records read from r.
func (c *Client) ExportCOCO(ctx context.Context, r io.Reader, format native.Format) (*coco.Document, error) {
	opts := []coco.Option{
		coco.WithLogger(c.logger),
		coco.WithWorkers(c.cfg.Fetch.Workers),
	}
	if c.cfg.Export.COCOURL != "" {
		opts = append(opts, coco.WithURL(c.cfg.Export.COCOURL))
	}
	return coco.NewConverter(c.fetcher, opts...).Convert(ctx, native.Records(r), format)
}

// ExportVOC converts a JSON array of export records read from r. imagesDir is
// the directory the written images will live in.
func (c *Client) ExportVOC(ctx context.Context, r io.Reader, format native.Format, imagesDir string) ([]voc.Output, error) {
	opts := []voc.Option{
		voc.WithLogger(c.logger),
		voc.WithWorkers(c.cfg.Fetch.Workers),
		voc.WithImageFormat(c.cfg.Export.VOCImageFormat),
	}
	if imagesDir != "" {
		opts = append(opts, voc.WithImagesDir(imagesDir))
	}
	return voc.NewConverter(c.fetcher, opts...).Convert(ctx, native.Records(r), format)
}

// VectorizeOptions returns the configured simplification options.
func (c *Client) VectorizeOptions() vectorize.Options {
	var opts vectorize.Options
	if eps := c.cfg.Vectorize.Epsilon; eps > 0 {
		opts.Epsilon = &eps
	}
	if n := c.cfg.Vectorize.MaxPoints; n > 0 {
		opts.MaxPoints = &n
	}
	return opts
}

// Vectorize polygonizes a mask, grouping annotations by class name.
func (c *Client) Vectorize(grid [][]int, legend map[int]string, opts vectorize.Options) (map[string][]types.Annotation, error) {
	return c.vectorizer.Vectorize(grid, legend, opts)
}

// VectorizeLabel polygonizes a mask into a Label for dataRow. Classes are
// ordered by name; annotations within a class keep extraction order.
func (c *Client) VectorizeLabel(dataRow types.DataRow, grid [][]int, legend map[int]string, opts vectorize.Options) (types.Label, error) {
	groups, err := c.Vectorize(grid, legend, opts)
	if err != nil {
		return types.Label{}, err
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	slices.SortFunc(names, cmp.Compare[string])

	var anns []types.Annotation
	for _, name := range names {
		anns = append(anns, groups[name]...)
	}
	l, err := types.BuildLabel(dataRow, anns)
	if err != nil {
		return types.Label{}, err
	}
	c.logger.Info("vectorized mask", "classes", len(names), "annotations", len(anns))
	return l, nil
}

// ReadLabels decodes every Label of an NDJSON stream.
func ReadLabels(r io.Reader) ([]types.Label, error) {
	var labels []types.Label
	for l, err := range ndjson.Records[types.Label](r) {
		if err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, nil
}

// WriteUploadRows reads Labels from r and writes their import rows to w.
func (c *Client) WriteUploadRows(r io.Reader, w io.Writer) (int, error) {
	labels, err := ReadLabels(r)
	if err != nil {
		return 0, err
	}
	n, err := ndjson.WriteUploadRows(w, labels)
	if err != nil {
		return n, fmt.Errorf("write upload rows: %w", err)
	}
	c.logger.Info("wrote upload rows", "labels", len(labels), "rows", n)
	return n, nil
}
