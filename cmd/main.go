package main

import (
	"os"

	"github.com/soundprediction/labelkit/cmd/labelkit"
)

func main() {
	if err := labelkit.Execute(); err != nil {
		os.Exit(1)
	}
}
