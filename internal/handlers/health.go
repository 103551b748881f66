package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const serviceName = "products-dashboard"

// HealthHandler serves liveness and readiness probes. Redis and the audit
// database are optional; a configured dependency that fails its ping makes
// the service unready.
type HealthHandler struct {
	db       *gorm.DB
	redis    *redis.Client
	sessions func() int
}

func NewHealthHandler(db *gorm.DB, redisClient *redis.Client, sessions func() int) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient, sessions: sessions}
}

// Health provides a health check endpoint
// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": time.Now().UTC(),
	})
}

// Ready provides a readiness check endpoint
// @Summary Readiness check
// @Description Check if the service is ready to handle requests
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			checks["auditDatabase"] = "unreachable"
			healthy = false
		} else {
			checks["auditDatabase"] = "connected"
		}
	} else {
		checks["auditDatabase"] = "disabled"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unreachable"
			healthy = false
		} else {
			checks["redis"] = "connected"
		}
	} else {
		checks["redis"] = "disabled"
	}

	if h.sessions != nil {
		checks["activeSessions"] = h.sessions()
	}

	status := http.StatusOK
	state := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":    state,
		"service":   serviceName,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}
