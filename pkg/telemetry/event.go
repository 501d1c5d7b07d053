// Package telemetry tees conversion events (skipped labels, fetch failures,
// rejected records) from slog into durable sinks: Parquet files or a SQL table.
package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/soundprediction/labelkit/pkg/types"
)

// Event is one persisted log record.
type Event struct {
	ID            string    `parquet:"id"`
	Timestamp     time.Time `parquet:"timestamp"`
	Level         string    `parquet:"level"`
	Message       string    `parquet:"message"`
	JobID         string    `parquet:"job_id"`
	RequestSource string    `parquet:"request_source"`
	LabelID       string    `parquet:"label_id"`
	URL           string    `parquet:"url"`
	SourceFile    string    `parquet:"source_file"`
	LineNumber    int       `parquet:"line_number"`
	Attributes    string    `parquet:"attributes"` // JSON string
}

// newEvent flattens a record plus the handler's accumulated attributes.
func newEvent(ctx context.Context, r slog.Record, handlerAttrs []slog.Attr) Event {
	attrs := make(map[string]any)
	for _, a := range handlerAttrs {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	e := Event{
		ID:        uuid.New().String(),
		Timestamp: r.Time.UTC(),
		Level:     r.Level.String(),
		Message:   r.Message,
	}
	if v, ok := ctx.Value(types.ContextKeyJobID).(string); ok {
		e.JobID = v
	}
	if v, ok := ctx.Value(types.ContextKeyRequestSource).(string); ok {
		e.RequestSource = v
	}
	if v, ok := attrs["label_id"].(string); ok {
		e.LabelID = v
	}
	if v, ok := attrs["url"].(string); ok {
		e.URL = v
	}
	for k, v := range attrs {
		if err, ok := v.(error); ok {
			attrs[k] = err.Error()
		}
	}
	attrsJSON, _ := json.Marshal(attrs)
	e.Attributes = string(attrsJSON)

	if r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		e.SourceFile = f.File
		e.LineNumber = f.Line
	}
	return e
}
