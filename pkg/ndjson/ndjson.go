// Package ndjson reads and writes newline-delimited JSON.
//
// Records are separated by a single "\n". A trailing newline is accepted on read
// and never produced on write. Reading is lazy: each call consumes exactly one
// line of input.
package ndjson

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/soundprediction/labelkit/pkg/types"
)

var errBlankLine = errors.New("blank line")

// Reader decodes one JSON value per line.
type Reader struct {
	br   *bufio.Reader
	line int
	err  error
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(r)}
}

// Line returns the 1-based index of the most recently read line.
func (r *Reader) Line() int {
	return r.line
}

// Next returns the next record. It returns io.EOF when the input is exhausted
// and a *types.DecodeError for a malformed or blank line. Errors are sticky.
func (r *Reader) Next() (json.RawMessage, error) {
	if r.err != nil {
		return nil, r.err
	}

	s, err := r.br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		r.err = fmt.Errorf("read line %d: %w", r.line+1, err)
		return nil, r.err
	}
	if errors.Is(err, io.EOF) && s == "" {
		r.err = io.EOF
		return nil, r.err
	}

	r.line++
	s = strings.TrimSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\r")

	if strings.TrimSpace(s) == "" {
		r.err = &types.DecodeError{Line: r.line, Err: errBlankLine}
		return nil, r.err
	}
	if !json.Valid([]byte(s)) {
		var v any
		uerr := json.Unmarshal([]byte(s), &v)
		r.err = &types.DecodeError{Line: r.line, Err: uerr}
		return nil, r.err
	}
	return json.RawMessage(s), nil
}

// Records lazily decodes each line of r into T. Numbers decoded into an
// interface become json.Number so integers beyond float64 precision survive a
// rewrite. Iteration stops after the first error, which is yielded with the
// zero value.
func Records[T any](r io.Reader) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		rd := NewReader(r)
		for {
			raw, err := rd.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			var v T
			if err == nil {
				if uerr := decode(raw, &v); uerr != nil {
					err = &types.DecodeError{Line: rd.Line(), Err: uerr}
				}
			}
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

func decode(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

// Writer encodes one JSON value per line.
type Writer struct {
	w       io.Writer
	written bool
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write encodes v, preceded by a separator unless it is the first record.
func (w *Writer) Write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if w.written {
		if _, err := io.WriteString(w.w, "\n"); err != nil {
			return err
		}
	}
	if _, err := w.w.Write(data); err != nil {
		return err
	}
	w.written = true
	return nil
}

// Marshal encodes records as NDJSON.
func Marshal(records []any) ([]byte, error) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for i, rec := range records {
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes every line of data.
func Unmarshal(data []byte) ([]any, error) {
	out := []any{}
	for v, err := range Records[any](bytes.NewReader(data)) {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
