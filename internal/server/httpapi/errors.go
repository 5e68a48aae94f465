package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/slange/storefront/internal/common"
	"github.com/slange/storefront/internal/server/auth"
)

const (
	msgServerError = "Server error"
	msgInvalidJSON = "Invalid JSON format"

	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// statusOf is the single kind-to-status table of the API.
func statusOf(k common.Kind) int {
	switch k {
	case common.KindValidation, common.KindConflict:
		return http.StatusBadRequest
	case common.KindUnauthenticated:
		return http.StatusUnauthorized
	case common.KindForbidden:
		return http.StatusForbidden
	case common.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {message, errors?, error?} and aborts the
// chain. Internal errors are logged with op; their cause is only shown in
// development.
func (s *HTTPServer) respondError(c *gin.Context, op string, err error) {
	var e *common.Error
	if !errors.As(err, &e) {
		e = common.Internal(msgServerError, err)
	}
	status := statusOf(e.Kind)

	body := gin.H{"message": e.Message}
	if len(e.Fields) > 0 {
		body["errors"] = e.Fields
	}

	if status >= http.StatusInternalServerError {
		s.logFailure(c, op, err)
		if s.config.IsDevelopment() {
			body["error"] = err.Error()
		}
	}

	c.AbortWithStatusJSON(status, body)
}

// deny aborts a request rejected by middleware or a guard. These bodies
// are {success:false, error}, unlike handler errors.
func deny(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

// denyError is deny for a service error. Internal failures are logged.
func (s *HTTPServer) denyError(c *gin.Context, op string, err error) {
	var e *common.Error
	if !errors.As(err, &e) {
		e = common.Internal(msgServerError, err)
	}
	status := statusOf(e.Kind)
	if status >= http.StatusInternalServerError {
		s.logFailure(c, op, err)
	}
	deny(c, status, e.Message)
}

func (s *HTTPServer) logFailure(c *gin.Context, op string, err error) {
	args := []any{"op", op, "path", c.Request.URL.Path, "error", err}
	if id, ok := auth.IdentityFrom(c.Request.Context()); ok {
		args = append(args, "user_id", id.UserID)
	}
	s.logger.Error(c.Request.Context(), "request failed", args...)
}

// bindJSON decodes the request body into dst. The body is cached so guards
// and handlers can both read it. An empty body leaves dst untouched.
func (s *HTTPServer) bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindBodyWith(dst, binding.JSON)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": msgInvalidJSON})
	return false
}
