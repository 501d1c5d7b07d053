package types

import "fmt"

// Annotation is one labeled object, span or classification.
// Common fields live on the outer record; Value carries the variant payload.
type Annotation struct {
	Schema        FeatureSchema
	Confidence    *float64
	CustomMetrics []CustomMetric
	// Classifications nests classification annotations under a geometry or text entity.
	Classifications []Annotation
	// Extra is preserved verbatim across serialization.
	Extra map[string]any
	Value Value
}

// Kind returns the kind of the annotation value, or "" when unset.
func (a Annotation) Kind() Kind {
	if a.Value == nil {
		return ""
	}
	return a.Value.Kind()
}

// Validate checks the annotation invariants.
func (a Annotation) Validate() error {
	return a.validate("annotation")
}

func (a Annotation) validate(field string) error {
	if a.Value == nil {
		return NewValidationError(field, "annotation has no value")
	}
	if err := a.Schema.Validate(field); err != nil {
		return err
	}
	if err := validateConfidence(field, a.Confidence); err != nil {
		return err
	}
	if err := validateMetrics(field, a.CustomMetrics); err != nil {
		return err
	}
	if err := a.Value.validate(fmt.Sprintf("%s.%s", field, a.Value.Kind())); err != nil {
		return err
	}
	if a.Value.Kind().IsClassification() && len(a.Classifications) > 0 {
		return NewValidationError(field, "classification annotations nest classifications under answers")
	}
	return validateNested(field, a.Classifications)
}

// normalize returns a copy with polygon rings closed.
func (a Annotation) normalize() Annotation {
	if p, ok := a.Value.(Polygon); ok {
		a.Value = p.Normalize()
	}
	return a
}
