package logger_test

import (
	"log/slog"

	"github.com/soundprediction/labelkit/pkg/logger"
)

func ExampleNewDefaultLogger() {
	// Create a logger with default settings
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Debug("Decoding export records")
	log.Info("Exported COCO document", "images", 12) // Will be green in terminal
	log.Warn("Skipping label, image fetch failed")    // Will be yellow in terminal
	log.Error("Conversion failed")                    // Will be red in terminal
}
