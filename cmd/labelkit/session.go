package labelkit

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/soundprediction/labelkit"
	"github.com/soundprediction/labelkit/pkg/config"
	"github.com/soundprediction/labelkit/pkg/logger"
	"github.com/soundprediction/labelkit/pkg/telemetry"
)

// logOutput is where command loggers write; tests redirect it.
var logOutput io.Writer = os.Stderr

// session is the configuration, client and log sinks shared by every command.
type session struct {
	cfg     *config.Config
	client  *labelkit.Client
	closers []io.Closer
}

// newSession loads the configuration and builds the logger chain: the console
// handler, then the parquet and SQL telemetry sinks when configured.
func newSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	rt := &session{cfg: cfg}

	level, _ := config.ParseLevel(cfg.Log.Level)
	minLevel, _ := config.ParseLevel(cfg.Telemetry.MinLevel)

	handler := logger.New(logOutput, logger.Options{
		Level:  level,
		Format: cfg.Log.Format,
		Color:  logOutput == os.Stderr && !strings.EqualFold(cfg.Log.Format, "json"),
	}).Handler()

	if path := cfg.Telemetry.ParquetPath; path != "" {
		ph, err := telemetry.NewParquetHandler(handler, path, minLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize parquet telemetry: %w", err)
		}
		handler = ph
		rt.closers = append(rt.closers, ph)
	}
	if dsn := cfg.Telemetry.DbURL; dsn != "" {
		db, err := telemetry.OpenSQL(dsn)
		if err != nil {
			rt.Close()
			return nil, err
		}
		sh, err := telemetry.NewSQLHandler(handler, db, minLevel)
		if err != nil {
			db.Close()
			rt.Close()
			return nil, err
		}
		handler = sh
		rt.closers = append(rt.closers, db)
	}

	log := slog.New(handler)
	rt.client = labelkit.NewClient(cfg, nil, log)
	return rt, nil
}

// Close flushes and releases the telemetry sinks.
func (rt *session) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// openInput opens path for reading; "-" reads stdin.
func openInput(cmd interface{ InOrStdin() io.Reader }, path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

// createOutput creates path for writing; "-" writes stdout.
func createOutput(cmd interface{ OutOrStdout() io.Writer }, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{cmd.OutOrStdout()}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	return f, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
