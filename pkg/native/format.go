package native

import (
	"strings"

	"github.com/soundprediction/labelkit/pkg/types"
)

// Format selects how the Label payload of a record encodes geometry.
type Format string

const (
	// FormatWKT reads polygons from WKT strings.
	FormatWKT Format = "WKT"
	// FormatXY reads polygons from lists of {x, y} points.
	FormatXY Format = "XY"
	// FormatObjects reads the canonical {"annotations": [...]} payload.
	FormatObjects Format = "OBJECTS"
)

// Formats lists every supported format.
var Formats = []Format{FormatWKT, FormatXY, FormatObjects}

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToUpper(strings.TrimSpace(s)))
	if err := f.Validate(); err != nil {
		return "", err
	}
	return f, nil
}

// Validate reports an UnknownFormatError for unsupported formats.
func (f Format) Validate() error {
	for _, known := range Formats {
		if f == known {
			return nil
		}
	}
	return &types.UnknownFormatError{Format: string(f)}
}

func (f Format) String() string {
	return string(f)
}
