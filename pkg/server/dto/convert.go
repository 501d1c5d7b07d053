package dto

import (
	"errors"
	"fmt"
	"strconv"
)

// MaxMaskPixels bounds the size of masks accepted by the vectorize endpoint.
const MaxMaskPixels = 4096 * 4096

// Validation errors
var (
	ErrEmptyMask        = errors.New("mask cannot be empty")
	ErrMaskTooLarge     = fmt.Errorf("mask exceeds maximum size (%d pixels)", MaxMaskPixels)
	ErrEmptyLegend      = errors.New("legend cannot be empty")
	ErrDataRowIdentity  = errors.New("exactly one of data_row.id or data_row.global_key is required")
	ErrInvalidLegendKey = errors.New("legend keys must be non-negative integers")
)

// DataRowRef identifies the data row a vectorized label belongs to.
type DataRowRef struct {
	ID        string `json:"id,omitempty"`
	GlobalKey string `json:"global_key,omitempty"`
	URL       string `json:"url,omitempty"`
}

// VectorizeRequest is the body of POST /api/v1/vectorize.
type VectorizeRequest struct {
	DataRow DataRowRef `json:"data_row"`
	Mask    [][]int    `json:"mask" binding:"required"`
	// Legend maps pixel values, as JSON object keys, to class names.
	Legend    map[string]string `json:"legend" binding:"required"`
	MaxPoints *int              `json:"max_points,omitempty"`
	Epsilon   *float64          `json:"epsilon,omitempty"`
}

// Validate performs validation on VectorizeRequest
func (r *VectorizeRequest) Validate() error {
	if (r.DataRow.ID == "") == (r.DataRow.GlobalKey == "") {
		return ErrDataRowIdentity
	}
	if len(r.Mask) == 0 || len(r.Mask[0]) == 0 {
		return ErrEmptyMask
	}
	if len(r.Mask)*len(r.Mask[0]) > MaxMaskPixels {
		return ErrMaskTooLarge
	}
	if len(r.Legend) == 0 {
		return ErrEmptyLegend
	}
	_, err := r.ParsedLegend()
	return err
}

// ParsedLegend returns the legend keyed by pixel value.
func (r *VectorizeRequest) ParsedLegend() (map[int]string, error) {
	legend := make(map[int]string, len(r.Legend))
	for k, name := range r.Legend {
		v, err := strconv.Atoi(k)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidLegendKey, k)
		}
		legend[v] = name
	}
	return legend, nil
}

// ValidateResponse reports the number of records in a valid NDJSON body.
type ValidateResponse struct {
	Valid   bool `json:"valid"`
	Records int  `json:"records"`
}
