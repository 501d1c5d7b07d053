package vectorize

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/disintegration/imaging"
	"gopkg.in/yaml.v3"

	"github.com/soundprediction/labelkit/pkg/types"
)

// LoadLegend reads a YAML mapping from pixel value to class name:
//
//	1: cat
//	2: dog
func LoadLegend(path string) (map[int]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read legend: %w", err)
	}
	return ParseLegend(data)
}

// ParseLegend decodes a YAML legend. Keys must be non-negative and names non-empty.
func ParseLegend(data []byte) (map[int]string, error) {
	var legend map[int]string
	if err := yaml.Unmarshal(data, &legend); err != nil {
		return nil, types.NewDecodeError("legend", err)
	}
	for k, name := range legend {
		if k < 0 {
			return nil, types.NewValidationError("legend", "pixel value %d is negative", k)
		}
		if name == "" {
			return nil, types.NewValidationError("legend", "pixel value %d has no class name", k)
		}
	}
	return legend, nil
}

// LoadMask reads a segmentation mask image. Paletted images yield palette
// indices; other images yield their 8-bit gray level (16-bit for Gray16).
func LoadMask(path string) ([][]int, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mask: %w", err)
	}
	return MaskFromImage(img), nil
}

// MaskFromImage converts an image into a grid of pixel values.
func MaskFromImage(img image.Image) [][]int {
	b := img.Bounds()
	grid := make([][]int, b.Dy())
	for y := range grid {
		row := make([]int, b.Dx())
		for x := range row {
			px, py := b.Min.X+x, b.Min.Y+y
			switch m := img.(type) {
			case *image.Paletted:
				row[x] = int(m.ColorIndexAt(px, py))
			case *image.Gray:
				row[x] = int(m.GrayAt(px, py).Y)
			case *image.Gray16:
				row[x] = int(m.Gray16At(px, py).Y)
			default:
				row[x] = int(color.GrayModel.Convert(img.At(px, py)).(color.Gray).Y)
			}
		}
		grid[y] = row
	}
	return grid
}
