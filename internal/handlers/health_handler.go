package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/sjperalta/pratiche-api/internal/jobs"
)

// Pinger is a dependency the service needs to be ready
type Pinger interface {
	PingContext(ctx context.Context) error
}

// redisPinger adapts a redis client to Pinger
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

type HealthHandler struct {
	checks map[string]Pinger
	worker *jobs.Worker
}

// NewHealthHandler creates a health handler. redisClient may be nil when the
// rate cache is disabled.
func NewHealthHandler(db Pinger, redisClient *redis.Client, worker *jobs.Worker) *HealthHandler {
	checks := map[string]Pinger{}
	if db != nil {
		checks["database"] = db
	}
	if redisClient != nil {
		checks["redis"] = redisPinger{client: redisClient}
	}
	return &HealthHandler{checks: checks, worker: worker}
}

// HealthStatus is the readiness report
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Worker    *jobs.WorkerStats `json:"worker,omitempty"`
}

// @Summary Health Check
// @Description Checks the API and its database and cache connectivity
// @Tags Health
// @Produce json
// @Success 200 {object} HealthStatus
// @Failure 503 {object} HealthStatus
// @Router /health [get]
func (h *HealthHandler) Index(c *gin.Context) {
	status := HealthStatus{
		Status:    "ok",
		Service:   "pratiche-api",
		Timestamp: time.Now(),
		Checks:    make(map[string]string, len(h.checks)),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	for name, check := range h.checks {
		if err := check.PingContext(ctx); err != nil {
			status.Status = "error"
			status.Checks[name] = "failed: " + err.Error()
			continue
		}
		status.Checks[name] = "ok"
	}

	if h.worker != nil {
		stats := h.worker.GetStats()
		status.Worker = &stats
	}

	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
