package utils

import (
	"os"
	"strconv"
)

// DefaultWorkers bounds concurrent image fetches when nothing else is configured.
const DefaultWorkers = 8

// WorkerLimit returns the worker count from LABELKIT_WORKERS or DefaultWorkers.
func WorkerLimit() int {
	val := os.Getenv("LABELKIT_WORKERS")
	if val == "" {
		return DefaultWorkers
	}
	limit, err := strconv.Atoi(val)
	if err != nil || limit <= 0 {
		return DefaultWorkers
	}
	return limit
}
