// Package utils provides the concurrency helpers shared by the converters.
//
//   - WorkerPool: bounded, index-preserving parallel map (concurrent.go)
//   - Batch: fixed-size slicing of work (concurrent.go)
//   - panic recovery into *PanicError (recovery.go)
//   - worker limits from the environment (helpers.go)
package utils
