package native

import (
	"encoding/json"
	"fmt"

	"github.com/soundprediction/labelkit/pkg/types"
)

// Encode renders a label as an export record in the canonical format.
func Encode(l types.Label) (Record, error) {
	if err := l.Validate(); err != nil {
		return Record{}, err
	}

	anns := make([]any, len(l.Annotations))
	for i, a := range l.Annotations {
		anns[i] = types.AnnotationToDict(a)
	}
	payload, err := json.Marshal(map[string]any{"annotations": anns})
	if err != nil {
		return Record{}, fmt.Errorf("encode label %s: %w", l.UID, err)
	}

	rec := Record{
		ID:                   l.UID,
		DataRowID:            l.DataRow.ID,
		GlobalKey:            l.DataRow.GlobalKey,
		LabeledData:          l.DataRow.URL,
		Label:                payload,
		IsBenchmarkReference: l.IsBenchmarkReference,
	}
	if len(l.Extra) > 0 {
		rec.Extra = make(map[string]any, len(l.Extra))
		for k, v := range l.Extra {
			rec.Extra[k] = v
		}
	}
	return rec, nil
}
