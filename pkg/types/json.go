package types

import (
	"bytes"
	"encoding/json"
)

// decodeObject decodes a JSON object keeping numbers as json.Number, so extra
// values re-encode exactly as read.
func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// MarshalJSON renders the label through its dict form.
func (l Label) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToDict(l))
}

// UnmarshalJSON decodes the dict form and validates the result.
func (l *Label) UnmarshalJSON(data []byte) error {
	m, err := decodeObject(data)
	if err != nil {
		return NewDecodeError("label", err)
	}
	decoded, err := FromDict(m)
	if err != nil {
		return err
	}
	*l = decoded
	return nil
}

// MarshalJSON renders the annotation through its dict form.
func (a Annotation) MarshalJSON() ([]byte, error) {
	return json.Marshal(AnnotationToDict(a))
}

// UnmarshalJSON decodes a single annotation dict.
func (a *Annotation) UnmarshalJSON(data []byte) error {
	m, err := decodeObject(data)
	if err != nil {
		return NewDecodeError("annotation", err)
	}
	decoded, err := AnnotationFromDict(m)
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}
