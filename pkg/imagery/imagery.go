// Package imagery resolves label image URLs to image bytes and dimensions.
//
// Converters depend on the Fetcher interface only; HTTPFetcher is the
// production implementation and tests substitute stubs.
package imagery

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/soundprediction/labelkit/pkg/types"
)

// Image is a fetched image and its decoded header.
type Image struct {
	URL    string
	Width  int
	Height int
	// Depth is 1 for grayscale images and 3 otherwise.
	Depth int
	// Format is the decoder name reported by image.DecodeConfig (jpeg, png, ...).
	Format string
	Data   []byte
}

// Fetcher resolves an image URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Image, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) (*Image, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, url string) (*Image, error) {
	return f(ctx, url)
}

// FetchError reports a URL the fetcher could not resolve.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support for FetchError.
func (e *FetchError) Is(target error) bool {
	return target == types.ErrFetch
}

// Decode reads the dimensions and color depth of data.
func Decode(url string, data []byte) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("decode image: %w", err)}
	}
	return &Image{
		URL:    url,
		Width:  cfg.Width,
		Height: cfg.Height,
		Depth:  depthOf(cfg.ColorModel),
		Format: format,
		Data:   data,
	}, nil
}

func depthOf(m color.Model) int {
	switch m {
	case color.GrayModel, color.Gray16Model:
		return 1
	}
	return 3
}

// Reencode converts img to the named format ("jpg", "jpeg" or "png").
// An empty format, or one matching the source, returns img unchanged.
func Reencode(img *Image, format string) (*Image, error) {
	if format == "" {
		return img, nil
	}
	f, err := imaging.FormatFromExtension(format)
	if err != nil {
		return nil, err
	}
	if extensionOf(f) == img.Format {
		return img, nil
	}

	decoded, err := imaging.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", img.URL, err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, decoded, f); err != nil {
		return nil, fmt.Errorf("encode %s as %s: %w", img.URL, f, err)
	}
	out := *img
	out.Data = buf.Bytes()
	out.Format = extensionOf(f)
	return &out, nil
}

// Extension returns the file extension for the image format, with the dot.
func (img *Image) Extension() string {
	switch img.Format {
	case "jpeg":
		return ".jpg"
	case "":
		return ""
	}
	return "." + img.Format
}

func extensionOf(f imaging.Format) string {
	switch f {
	case imaging.JPEG:
		return "jpeg"
	case imaging.PNG:
		return "png"
	case imaging.GIF:
		return "gif"
	case imaging.BMP:
		return "bmp"
	case imaging.TIFF:
		return "tiff"
	}
	return ""
}
