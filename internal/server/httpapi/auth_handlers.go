package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/slange/storefront/internal/common"
	"github.com/slange/storefront/internal/server/services"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (s *HTTPServer) register(c *gin.Context) {
	var req services.RegisterInput
	if !s.bindJSON(c, &req) {
		return
	}

	res, err := s.deps.Users.Register(c.Request.Context(), req)
	s.authEvent("register", err)
	if err != nil {
		s.respondError(c, "register", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    res.User,
		"token":   res.Token,
	})
}

func (s *HTTPServer) login(c *gin.Context) {
	var req loginRequest
	if !s.bindJSON(c, &req) {
		return
	}

	res, err := s.deps.Users.Login(c.Request.Context(), req.Email, req.Password)
	s.authEvent("login", err)
	if err != nil {
		s.respondError(c, "login", err)
		return
	}

	s.setTokenCookie(c, res.Token)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    res.User,
		"token":   res.Token,
	})
}

// refresh takes the token from the body, or else from the header or cookie.
// A cookie-carried token is replaced by the new one.
func (s *HTTPServer) refresh(c *gin.Context) {
	var req tokenRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if req.Token == "" {
		req.Token = tokenFromRequest(c)
	}

	token, err := s.deps.Users.Refresh(c.Request.Context(), req.Token)
	s.authEvent("refresh", err)
	if err != nil {
		s.respondError(c, "refresh", err)
		return
	}

	if _, err := c.Cookie(common.TokenCookieName); err == nil {
		s.setTokenCookie(c, token)
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Token refreshed successfully",
		"token":   token,
	})
}

func (s *HTTPServer) forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !s.bindJSON(c, &req) {
		return
	}

	res, err := s.deps.Users.ForgotPassword(c.Request.Context(), req.Email)
	s.authEvent("forgot_password", err)
	if err != nil {
		s.respondError(c, "forgot_password", err)
		return
	}

	body := gin.H{"message": "Password reset email sent"}
	if res.Token != "" {
		body["resetToken"] = res.Token
	}
	c.JSON(http.StatusOK, body)
}

func (s *HTTPServer) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !s.bindJSON(c, &req) {
		return
	}

	err := s.deps.Users.ResetPassword(c.Request.Context(), req.Token, req.NewPassword)
	s.authEvent("reset_password", err)
	if err != nil {
		s.respondError(c, "reset_password", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

// logout only clears the cookie; issued tokens stay valid until expiry.
func (s *HTTPServer) logout(c *gin.Context) {
	s.clearTokenCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

func (s *HTTPServer) me(c *gin.Context) {
	id, ok := identityOf(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msgNotAuthenticated})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": id.User})
}

func (s *HTTPServer) setTokenCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(common.TokenCookieName, token, int(s.config.TokenValidityDuration.Seconds()), "/", "", !s.config.IsDevelopment(), true)
}

func (s *HTTPServer) clearTokenCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(common.TokenCookieName, "", -1, "/", "", !s.config.IsDevelopment(), true)
}

func (s *HTTPServer) authEvent(event string, err error) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.AuthEvent(event, err)
	}
}
