package types

import (
	"math"
	"strings"
)

// ContextKey is the type of context values set by labelkit surfaces.
type ContextKey string

const (
	// ContextKeyRequestSource identifies the surface that started the work (cli, server).
	ContextKeyRequestSource ContextKey = "request_source"
	// ContextKeyJobID identifies a single conversion run.
	ContextKeyJobID ContextKey = "job_id"
)

// DataRow identifies the labeled asset. Exactly one of ID and GlobalKey is set.
type DataRow struct {
	ID        string `json:"id,omitempty"`
	GlobalKey string `json:"globalKey,omitempty"`
	URL       string `json:"url,omitempty"`
}

// NewDataRow creates a validated DataRow.
func NewDataRow(id, globalKey, url string) (DataRow, error) {
	dr := DataRow{ID: id, GlobalKey: globalKey, URL: url}
	if err := dr.Validate(); err != nil {
		return DataRow{}, err
	}
	return dr, nil
}

// Validate checks that exactly one identity key is present.
func (d DataRow) Validate() error {
	switch {
	case d.ID == "" && d.GlobalKey == "":
		return NewValidationError("data_row", "one of id or global_key is required")
	case d.ID != "" && d.GlobalKey != "":
		return NewValidationError("data_row", "id and global_key are mutually exclusive")
	}
	return nil
}

// FeatureSchema is the class identity of an annotation or answer.
type FeatureSchema struct {
	Name     string `json:"name,omitempty"`
	SchemaID string `json:"schemaId,omitempty"`
}

// Key returns the identity used for matching: the schema id when present, else the name.
func (f FeatureSchema) Key() string {
	if f.SchemaID != "" {
		return f.SchemaID
	}
	return f.Name
}

// Validate checks that the schema resolves a class.
func (f FeatureSchema) Validate(field string) error {
	if strings.TrimSpace(f.Name) == "" && strings.TrimSpace(f.SchemaID) == "" {
		return NewValidationError(field, "one of name or schema_id is required")
	}
	return nil
}

// CustomMetric is a named numeric score attached to an annotation.
type CustomMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func validateConfidence(field string, c *float64) error {
	if c == nil {
		return nil
	}
	if math.IsNaN(*c) || *c < 0 || *c > 1 {
		return NewValidationError(field, "confidence must be within [0, 1], got %v", *c)
	}
	return nil
}

func validateMetrics(field string, metrics []CustomMetric) error {
	for i, m := range metrics {
		if m.Name == "" {
			return NewValidationError(field, "custom_metrics[%d] has an empty name", i)
		}
		if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
			return NewValidationError(field, "custom_metrics[%d] value must be finite, got %v", i, m.Value)
		}
	}
	return nil
}

// Float returns a pointer to v, for optional fields such as Confidence.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v, for optional fields such as Keyframe.
func Bool(v bool) *bool { return &v }
