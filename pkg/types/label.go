package types

import "fmt"

// Label aggregates the annotations attached to one data row.
// Annotation order is preserved and duplicates are permitted.
type Label struct {
	UID                  string
	DataRow              DataRow
	Annotations          []Annotation
	Extra                map[string]any
	IsBenchmarkReference bool
}

// LabelOption configures optional Label fields in BuildLabel.
type LabelOption func(*Label)

// WithUID sets the label identifier.
func WithUID(uid string) LabelOption {
	return func(l *Label) { l.UID = uid }
}

// WithExtra sets the opaque extra map preserved across serialization.
func WithExtra(extra map[string]any) LabelOption {
	return func(l *Label) { l.Extra = extra }
}

// WithBenchmarkReference marks the label as a benchmark reference.
func WithBenchmarkReference(v bool) LabelOption {
	return func(l *Label) { l.IsBenchmarkReference = v }
}

// BuildLabel constructs a Label, closing polygon rings and validating every invariant.
// The annotations slice is copied; the caller may reuse it.
func BuildLabel(dataRow DataRow, annotations []Annotation, opts ...LabelOption) (Label, error) {
	l := Label{DataRow: dataRow}
	for _, opt := range opts {
		opt(&l)
	}

	l.Annotations = make([]Annotation, len(annotations))
	for i, a := range annotations {
		l.Annotations[i] = a.normalize()
	}

	if err := l.Validate(); err != nil {
		return Label{}, err
	}
	return l, nil
}

// Validate checks the data row, every annotation and schema consistency.
func (l Label) Validate() error {
	if err := l.DataRow.Validate(); err != nil {
		return err
	}
	for i, a := range l.Annotations {
		if err := a.validate(fmt.Sprintf("annotations[%d]", i)); err != nil {
			return err
		}
	}
	return checkSchemaConsistency(l.Annotations)
}

// IsSkip reports whether the label carries no annotations.
func (l Label) IsSkip() bool {
	return len(l.Annotations) == 0
}

// checkSchemaConsistency ensures a name and a schema id never disagree within a label.
// Answer schemas are scoped to their question and are not compared.
func checkSchemaConsistency(annotations []Annotation) error {
	byName := make(map[string]string)
	byID := make(map[string]string)

	var walk func([]Annotation) error
	walk = func(anns []Annotation) error {
		for _, a := range anns {
			s := a.Schema
			if s.Name != "" && s.SchemaID != "" {
				if id, ok := byName[s.Name]; ok && id != s.SchemaID {
					return NewValidationError("feature_schema", "name %q maps to schema ids %q and %q", s.Name, id, s.SchemaID)
				}
				if name, ok := byID[s.SchemaID]; ok && name != s.Name {
					return NewValidationError("feature_schema", "schema id %q maps to names %q and %q", s.SchemaID, name, s.Name)
				}
				byName[s.Name] = s.SchemaID
				byID[s.SchemaID] = s.Name
			}
			if err := walk(a.Classifications); err != nil {
				return err
			}
			for _, ans := range answers(a.Value) {
				if err := walk(ans.Classifications); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(annotations)
}

func answers(v Value) []ClassificationAnswer {
	switch c := v.(type) {
	case Radio:
		return []ClassificationAnswer{c.Answer}
	case Checklist:
		return c.Answers
	}
	return nil
}
