package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/slange/storefront/internal/server/models"
)

const (
	msgNotAuthenticated   = "Access denied. User not authenticated."
	msgInsufficientRights = "Access denied. Insufficient permissions."
	msgNotOwner           = "Access denied. You can only access your own resources."
)

// RequireRole lets the request through only if the caller holds one of roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identityOf(c)
		if !ok {
			deny(c, http.StatusUnauthorized, msgNotAuthenticated)
			return
		}
		if !id.HasRole(roles...) {
			deny(c, http.StatusForbidden, msgInsufficientRights)
			return
		}
		c.Next()
	}
}

// RequireOwnershipOrAdmin compares the caller with the owner id taken from
// the path parameter field, or else from the JSON body field of the same
// name. Admins always pass, and so does a request that names no owner.
func RequireOwnershipOrAdmin(field string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identityOf(c)
		if !ok {
			deny(c, http.StatusUnauthorized, msgNotAuthenticated)
			return
		}
		if id.Role == models.RoleAdmin {
			c.Next()
			return
		}

		owner := c.Param(field)
		if owner == "" {
			owner = ownerFromBody(c, field)
		}
		if owner != "" && owner != id.UserID {
			deny(c, http.StatusForbidden, msgNotOwner)
			return
		}
		c.Next()
	}
}

func ownerFromBody(c *gin.Context, field string) string {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return ""
	}
	var body map[string]any
	if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
		return ""
	}
	switch v := body[field].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
