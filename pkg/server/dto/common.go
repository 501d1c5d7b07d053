package dto

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// Error codes returned in ErrorResponse.Error.
const (
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeValidation     = "validation_failed"
	ErrCodeDecode         = "decode_failed"
	ErrCodeUnknownFormat  = "unknown_format"
	ErrCodeInternal       = "internal_error"
)

// HealthResponse is the body of the health and liveness probes.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version,omitempty"`
	Timestamp string `json:"timestamp"`
}

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// RuntimeStats is a snapshot of the Go runtime.
type RuntimeStats struct {
	AllocMB     float64 `json:"alloc_mb"`
	StackMB     float64 `json:"stack_mb"`
	HeapObjects uint64  `json:"heap_objects"`
	GCCycles    uint32  `json:"gc_cycles"`
	Goroutines  int     `json:"goroutines"`
}

// DetailedHealthResponse extends HealthResponse with build and runtime data.
type DetailedHealthResponse struct {
	HealthResponse
	Uptime string       `json:"uptime"`
	Build  BuildInfo    `json:"build"`
	System RuntimeStats `json:"system"`
}
