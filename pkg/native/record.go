// Package native reads and writes the platform's label export records.
//
// Exports have evolved over time. Decode accepts the legacy polygon encodings
// (WKT strings and XY point lists, with or without per-instance objects) as
// well as the canonical "annotations" object; Encode always writes the
// canonical object.
package native

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"iter"

	"github.com/soundprediction/labelkit/pkg/types"
)

// Export record keys.
const (
	KeyID          = "ID"
	KeyDataRowID   = "DataRow ID"
	KeyGlobalKey   = "Global Key"
	KeyLabeledData = "Labeled Data"
	KeyLabel       = "Label"
	KeyBenchmark   = "Benchmark"
	KeyProjectName = "Project Name"
	KeyCreatedBy   = "Created By"
)

// Record is one exported label. Label holds the raw class payload; keys the
// record does not model are kept in Extra.
type Record struct {
	ID                   string
	DataRowID            string
	GlobalKey            string
	LabeledData          string
	Label                json.RawMessage
	IsBenchmarkReference bool
	Extra                map[string]any
}

// ProjectName returns the "Project Name" export field, if any.
func (r Record) ProjectName() string {
	return r.extraString(KeyProjectName)
}

// CreatedBy returns the "Created By" export field, if any.
func (r Record) CreatedBy() string {
	return r.extraString(KeyCreatedBy)
}

func (r Record) extraString(key string) string {
	s, _ := r.Extra[key].(string)
	return s
}

// UnmarshalJSON decodes an export record.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return types.NewDecodeError("record", err)
	}

	var rec Record
	for k, v := range raw {
		var err error
		switch k {
		case KeyID:
			err = unmarshalString(v, &rec.ID)
		case KeyDataRowID:
			err = unmarshalString(v, &rec.DataRowID)
		case KeyGlobalKey:
			err = unmarshalString(v, &rec.GlobalKey)
		case KeyLabeledData:
			err = unmarshalString(v, &rec.LabeledData)
		case KeyLabel:
			rec.Label = append(json.RawMessage(nil), v...)
		case KeyBenchmark:
			rec.IsBenchmarkReference, err = unmarshalFlag(v)
		default:
			var val any
			if err = json.Unmarshal(v, &val); err == nil {
				if rec.Extra == nil {
					rec.Extra = make(map[string]any)
				}
				rec.Extra[k] = val
			}
		}
		if err != nil {
			return types.NewDecodeError(k, err)
		}
	}
	*r = rec
	return nil
}

// MarshalJSON encodes the record with Extra merged under the modeled keys.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+6)
	for k, v := range r.Extra {
		out[k] = v
	}
	out[KeyID] = r.ID
	if r.DataRowID != "" {
		out[KeyDataRowID] = r.DataRowID
	}
	if r.GlobalKey != "" {
		out[KeyGlobalKey] = r.GlobalKey
	}
	if r.LabeledData != "" {
		out[KeyLabeledData] = r.LabeledData
	}
	if len(r.Label) > 0 {
		out[KeyLabel] = r.Label
	} else {
		out[KeyLabel] = json.RawMessage("{}")
	}
	if r.IsBenchmarkReference {
		out[KeyBenchmark] = true
	}
	return json.Marshal(out)
}

// unmarshalString accepts a JSON string or null.
func unmarshalString(data json.RawMessage, dst *string) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	return json.Unmarshal(data, dst)
}

// unmarshalFlag accepts booleans and the 0/1 integers of older exports.
func unmarshalFlag(data json.RawMessage) (bool, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return false, err
	}
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	case float64:
		return b != 0, nil
	}
	return false, fmt.Errorf("expected boolean, got %T", v)
}

// Records lazily decodes a JSON array of export records. Each element is
// decoded only when the consumer asks for it; iteration stops at the first error.
func Records(r io.Reader) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		dec := json.NewDecoder(r)
		tok, err := dec.Token()
		if err != nil {
			yield(Record{}, types.NewDecodeError("records", err))
			return
		}
		if d, ok := tok.(json.Delim); !ok || d != '[' {
			yield(Record{}, types.NewDecodeError("records", fmt.Errorf("expected array, got %v", tok)))
			return
		}

		for i := 0; dec.More(); i++ {
			var rec Record
			if err := dec.Decode(&rec); err != nil {
				yield(Record{}, types.NewDecodeError(fmt.Sprintf("records[%d]", i), err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}

		if _, err := dec.Token(); err != nil {
			yield(Record{}, types.NewDecodeError("records", err))
		}
	}
}

// Slice returns the records of a finite sequence, for callers that already
// hold the records in memory.
func Slice(records []Record) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for _, rec := range records {
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// WriteRecords writes records as a JSON array.
func WriteRecords(w io.Writer, records []Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if records == nil {
		records = []Record{}
	}
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	return nil
}
