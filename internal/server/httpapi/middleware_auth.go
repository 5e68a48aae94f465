package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/slange/storefront/internal/common"
	"github.com/slange/storefront/internal/server/auth"
)

const (
	msgNoToken = "Access denied. No token provided."

	identityKey = "identity"
)

// authenticate resolves the session token to an active user and attaches
// an auth.Identity to both the request context and the gin context.
func (s *HTTPServer) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			deny(c, http.StatusUnauthorized, msgNoToken)
			return
		}

		user, err := s.deps.Users.Authenticate(c.Request.Context(), token)
		if err != nil {
			s.denyError(c, "authenticate", err)
			return
		}

		id := auth.NewIdentity(user)
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Set(identityKey, id)
		c.Next()
	}
}

// tokenFromRequest prefers "Authorization: Bearer <token>" over the token
// cookie.
func tokenFromRequest(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
	}
	if v, err := c.Cookie(common.TokenCookieName); err == nil {
		return v
	}
	return ""
}

// identityOf returns the identity set by authenticate, if any.
func identityOf(c *gin.Context) (*auth.Identity, bool) {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(*auth.Identity); ok && id != nil {
			return id, true
		}
	}
	return auth.IdentityFrom(c.Request.Context())
}
