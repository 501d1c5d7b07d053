package types

import "fmt"

// ClassificationAnswer is one selected option of a Radio or Checklist question.
type ClassificationAnswer struct {
	Schema          FeatureSchema
	Confidence      *float64
	Keyframe        *bool
	Classifications []Annotation
	Extra           map[string]any
}

func (a ClassificationAnswer) validate(field string) error {
	if err := a.Schema.Validate(field); err != nil {
		return err
	}
	if err := validateConfidence(field, a.Confidence); err != nil {
		return err
	}
	return validateNested(field, a.Classifications)
}

// Radio is a single-choice classification.
type Radio struct {
	Answer ClassificationAnswer
}

func (Radio) Kind() Kind { return KindRadio }

func (r Radio) validate(field string) error {
	return r.Answer.validate(field + ".answer")
}

// Checklist is a multiple-choice classification.
type Checklist struct {
	Answers []ClassificationAnswer
}

func (Checklist) Kind() Kind { return KindChecklist }

func (c Checklist) validate(field string) error {
	if len(c.Answers) == 0 {
		return NewValidationError(field, "checklist requires at least one answer")
	}
	for i, a := range c.Answers {
		if err := a.validate(fmt.Sprintf("%s.answer[%d]", field, i)); err != nil {
			return err
		}
	}
	return nil
}

// Text is a free-form text classification.
type Text struct {
	Answer string
}

func (Text) Kind() Kind { return KindText }

func (Text) validate(string) error { return nil }

// validateNested checks that every entry is itself a valid classification annotation.
func validateNested(field string, nested []Annotation) error {
	for i, c := range nested {
		f := fmt.Sprintf("%s.classifications[%d]", field, i)
		if c.Value == nil || !c.Value.Kind().IsClassification() {
			return NewValidationError(f, "nested entries must be classifications")
		}
		if err := c.validate(f); err != nil {
			return err
		}
	}
	return nil
}
