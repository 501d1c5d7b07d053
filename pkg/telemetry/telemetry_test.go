package telemetry

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/labelkit/pkg/types"
)

func TestParquetHandler(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	next := slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelInfo})

	h, err := NewParquetHandler(next, dir, slog.LevelWarn)
	require.NoError(t, err)

	ctx := context.WithValue(context.Background(), types.ContextKeyJobID, "job-1")
	log := slog.New(h).With("converter", "coco")
	log.InfoContext(ctx, "exported document")
	log.WarnContext(ctx, "skipping label", "label_id", "lbl-1", "url", "ftp://x", "error", errors.New("unsupported scheme"))

	files, _ := filepath.Glob(filepath.Join(dir, "*.parquet"))
	assert.Empty(t, files, "events are buffered until close")

	require.NoError(t, h.Close())
	files, _ = filepath.Glob(filepath.Join(dir, "conversion_events_*.parquet"))
	require.Len(t, files, 1)

	events, err := parquet.ReadFile[Event](files[0])
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "skipping label", events[0].Message)
	assert.Equal(t, "job-1", events[0].JobID)
	assert.Equal(t, "lbl-1", events[0].LabelID)
	assert.Equal(t, "ftp://x", events[0].URL)
	assert.Contains(t, events[0].Attributes, `"converter":"coco"`)
	assert.Contains(t, events[0].Attributes, "unsupported scheme")

	assert.Contains(t, console.String(), "exported document")
	assert.Contains(t, console.String(), "skipping label")
}

func TestParquetHandlerBadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err := NewParquetHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), filepath.Join(file, "sub"), slog.LevelWarn)
	assert.Error(t, err)
}

// recordingDriver is a database/sql driver that records executed statements.
type recordingDriver struct {
	mu    sync.Mutex
	execs []string
	args  [][]driver.Value
}

func (d *recordingDriver) Open(string) (driver.Conn, error) { return &recordingConn{d: d}, nil }

type recordingConn struct{ d *recordingDriver }

func (c *recordingConn) Prepare(query string) (driver.Stmt, error) {
	return &recordingStmt{d: c.d, query: query}, nil
}
func (c *recordingConn) Close() error              { return nil }
func (c *recordingConn) Begin() (driver.Tx, error) { return nil, errors.New("transactions unsupported") }

type recordingStmt struct {
	d     *recordingDriver
	query string
}

func (s *recordingStmt) Close() error  { return nil }
func (s *recordingStmt) NumInput() int { return -1 }
func (s *recordingStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.execs = append(s.d.execs, s.query)
	s.d.args = append(s.d.args, args)
	return driver.RowsAffected(1), nil
}
func (s *recordingStmt) Query([]driver.Value) (driver.Rows, error) {
	return nil, errors.New("queries unsupported")
}

var recorder = &recordingDriver{}

func init() {
	sql.Register("telemetry-recorder", recorder)
}

func TestSQLHandler(t *testing.T) {
	db, err := sql.Open("telemetry-recorder", "")
	require.NoError(t, err)
	defer db.Close()

	h, err := NewSQLHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), db, slog.LevelWarn)
	require.NoError(t, err)

	log := slog.New(h)
	log.Info("not persisted")
	log.Error("fetch failed", "label_id", "lbl-9", "url", "https://example.com/9.jpg")

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	require.Len(t, recorder.execs, 2)
	assert.True(t, strings.Contains(recorder.execs[0], "CREATE TABLE IF NOT EXISTS conversion_events"))
	assert.True(t, strings.Contains(recorder.execs[1], "INSERT INTO conversion_events"))

	args := recorder.args[1]
	require.Len(t, args, 11)
	assert.Equal(t, "ERROR", args[2])
	assert.Equal(t, "fetch failed", args[3])
	assert.Equal(t, "lbl-9", args[6])
}
