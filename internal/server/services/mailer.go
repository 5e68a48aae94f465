package services

import (
	"context"
	"net/url"
	"time"

	"github.com/slange/storefront/internal/logging"
	"github.com/slange/storefront/internal/server/models"
)

// Mailer delivers password-reset links out of band.
type Mailer interface {
	SendPasswordReset(ctx context.Context, user *models.User, token string, expires time.Time) error
}

// LogMailer records reset requests in the log instead of sending mail.
// The link itself, which carries the token, is only logged when
// includeLink is set (development).
type LogMailer struct {
	logger      logging.Logger
	frontendURL string
	includeLink bool
}

func NewLogMailer(l logging.Logger, frontendURL string, includeLink bool) *LogMailer {
	return &LogMailer{logger: l.With("module", "mailer"), frontendURL: frontendURL, includeLink: includeLink}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, user *models.User, token string, expires time.Time) error {
	link, err := ResetLink(m.frontendURL, token)
	if err != nil {
		return err
	}

	args := []any{"user_id", user.ID, "expires_at", expires.UTC().Format(time.RFC3339)}
	if m.includeLink {
		args = append(args, "link", link)
	}
	m.logger.Info(ctx, "password reset link issued", args...)
	return nil
}

// ResetLink builds the frontend URL a user follows to set a new password.
func ResetLink(frontendURL, token string) (string, error) {
	u, err := url.Parse(frontendURL)
	if err != nil {
		return "", err
	}
	u = u.JoinPath("reset-password")
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
