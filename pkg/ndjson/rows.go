package ndjson

import (
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/soundprediction/labelkit/pkg/types"
)

// UploadRows renders every annotation of labels as a standalone import row
// carrying its data row reference and a uuid. A uuid already present in the
// annotation Extra is kept.
func UploadRows(labels []types.Label) ([]map[string]any, error) {
	var rows []map[string]any
	for i, l := range labels {
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("label %d: %w", i, err)
		}
		ref := map[string]any{}
		if l.DataRow.ID != "" {
			ref["id"] = l.DataRow.ID
		} else {
			ref["globalKey"] = l.DataRow.GlobalKey
		}

		for _, a := range l.Annotations {
			row := types.AnnotationToDict(a)
			if id, ok := row["uuid"].(string); !ok || id == "" {
				row["uuid"] = uuid.NewString()
			}
			row["dataRow"] = ref
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// WriteUploadRows streams the import rows of labels to w as NDJSON.
func WriteUploadRows(w io.Writer, labels []types.Label) (int, error) {
	rows, err := UploadRows(labels)
	if err != nil {
		return 0, err
	}
	nw := NewWriter(w)
	for i, row := range rows {
		if err := nw.Write(row); err != nil {
			return i, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return len(rows), nil
}
