package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/labelkit/pkg/server/dto"
)

// Build information, set with -ldflags "-X .../handlers.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

const serviceName = "labelkit"

// HealthHandler answers the health probes.
type HealthHandler struct {
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{started: time.Now()}
}

func (h *HealthHandler) probe(status string) dto.HealthResponse {
	return dto.HealthResponse{
		Status:    status,
		Service:   serviceName,
		Version:   Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// HealthCheck handles GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, h.probe("healthy"))
}

// LivenessCheck handles GET /live
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, h.probe("alive"))
}

// DetailedHealthCheck handles GET /health/detailed
func (h *HealthHandler) DetailedHealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, dto.DetailedHealthResponse{
		HealthResponse: h.probe("healthy"),
		Uptime:         time.Since(h.started).Round(time.Second).String(),
		Build: dto.BuildInfo{
			Version:   Version,
			GitCommit: GitCommit,
			BuildTime: BuildTime,
			GoVersion: runtime.Version(),
		},
		System: runtimeStats(),
	})
}

func runtimeStats() dto.RuntimeStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	const mb = 1 << 20
	return dto.RuntimeStats{
		AllocMB:     float64(m.Alloc) / mb,
		StackMB:     float64(m.StackSys) / mb,
		HeapObjects: m.HeapObjects,
		GCCycles:    m.NumGC,
		Goroutines:  runtime.NumGoroutine(),
	}
}
