package health

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// Response is the body of the health endpoint.
type Response struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Runtime   map[string]interface{} `json:"runtime"`
	Features  map[string]bool        `json:"features"`
}

// Handler serves /health, /ready and /live.
type Handler struct {
	version  string
	started  time.Time
	features map[string]bool
	statuses map[string]func() interface{}
}

// NewHandler creates a health handler. features lists optional capabilities and whether they are on.
func NewHandler(version string, features map[string]bool) *Handler {
	return &Handler{
		version:  version,
		started:  time.Now(),
		features: features,
		statuses: make(map[string]func() interface{}),
	}
}

// AddStatus reports the result of fn under name on the readiness endpoint.
func (h *Handler) AddStatus(name string, fn func() interface{}) {
	h.statuses[name] = fn
}

// HealthCheck reports version, uptime and runtime statistics.
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, Response{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		Features: h.features,
	})
}

// ReadinessCheck reports whether the service accepts traffic.
func (h *Handler) ReadinessCheck(c *gin.Context) {
	body := gin.H{
		"status":   "ready",
		"features": h.features,
	}
	for name, fn := range h.statuses {
		body[name] = fn()
	}
	c.JSON(http.StatusOK, body)
}

// LivenessCheck reports that the process is alive.
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
