package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/slange/storefront/internal/server/models"
)

func (s *HTTPServer) setUpRoutes() {
	r := s.engine

	r.Use(s.requestLogger(), s.recovery(), s.cors())
	if s.deps.Metrics != nil {
		r.Use(s.instrument())
		r.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}

	r.GET("/health", s.health)

	api := r.Group("/api")
	api.Use(s.rateLimit())

	a := api.Group("/auth")
	a.POST("/register", s.register)
	a.POST("/login", s.login)
	a.POST("/refresh", s.refresh)
	a.POST("/forgot-password", s.forgotPassword)
	a.POST("/reset-password", s.resetPassword)
	a.POST("/logout", s.logout)
	a.GET("/me", s.authenticate(), s.me)

	u := api.Group("/users", s.authenticate())
	u.GET("/:userId", RequireOwnershipOrAdmin("userId"), s.getUser)

	admin := api.Group("/admin", s.authenticate())
	admin.GET("/users", RequireRole(models.RoleAdmin), s.listUsers)
	admin.PATCH("/users/:userId/status", RequireRole(models.RoleAdmin, models.RoleModerator), s.setUserStatus)

	r.NoRoute(s.notFound)
}

func (s *HTTPServer) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success":   false,
		"error":     "Route not found",
		"path":      c.Request.URL.Path,
		"method":    c.Request.Method,
		"timestamp": s.now().UTC().Format(timestampLayout),
	})
}
