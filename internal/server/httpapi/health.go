package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthTimeout = 2 * time.Second

// health reports OK while the credential store answers. The cache is
// reported but does not degrade the status, since the limiter falls back
// to memory.
func (s *HTTPServer) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status, code := "OK", http.StatusOK
	checks := gin.H{"database": "up", "cache": "disabled"}

	if err := s.deps.Store.Ping(ctx); err != nil {
		s.logger.Warn(ctx, "store ping failed", "error", err)
		checks["database"] = "down"
		status, code = "DEGRADED", http.StatusServiceUnavailable
	}

	if s.deps.Cache != nil {
		checks["cache"] = "up"
		if err := s.deps.Cache.Ping(ctx); err != nil {
			s.logger.Warn(ctx, "cache ping failed", "error", err)
			checks["cache"] = "down"
		}
	}

	now := s.now()
	c.JSON(code, gin.H{
		"status":      status,
		"timestamp":   now.UTC().Format(timestampLayout),
		"uptime":      now.Sub(s.started).Seconds(),
		"environment": s.config.Environment,
		"checks":      checks,
	})
}
