package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/slange/storefront/internal/common"
	"github.com/slange/storefront/internal/server/models"
)

type userStatusRequest struct {
	IsActive *bool `json:"isActive"`
}

func (s *HTTPServer) getUser(c *gin.Context) {
	user, err := s.deps.Users.GetUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		s.respondError(c, "get_user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (s *HTTPServer) listUsers(c *gin.Context) {
	offset, err1 := queryInt(c, "offset", 0)
	limit, err2 := queryInt(c, "limit", 0)
	if err1 != nil || err2 != nil {
		fields := map[string]string{}
		if err1 != nil {
			fields["offset"] = "offset must be an integer"
		}
		if err2 != nil {
			fields["limit"] = "limit must be an integer"
		}
		s.respondError(c, "list_users", common.Validation("Validation failed", fields))
		return
	}

	list, err := s.deps.Users.ListUsers(c.Request.Context(), offset, limit)
	if err != nil {
		s.respondError(c, "list_users", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list, "offset": offset, "count": len(list)})
}

// setUserStatus activates or deactivates an account. Moderators may not
// change admin accounts.
func (s *HTTPServer) setUserStatus(c *gin.Context) {
	var req userStatusRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if req.IsActive == nil {
		s.respondError(c, "set_user_status",
			common.Validation("Validation failed", map[string]string{"isActive": "isActive is required"}))
		return
	}

	ctx := c.Request.Context()
	userID := c.Param("userId")

	caller, _ := identityOf(c)
	if caller.Role != models.RoleAdmin {
		target, err := s.deps.Users.GetUser(ctx, userID)
		if err != nil {
			s.respondError(c, "set_user_status", err)
			return
		}
		if target.Role == models.RoleAdmin {
			s.respondError(c, "set_user_status", common.Forbidden(msgInsufficientRights))
			return
		}
	}

	user, err := s.deps.Users.SetActive(ctx, userID, *req.IsActive)
	if err != nil {
		s.respondError(c, "set_user_status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	v := c.Query(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
