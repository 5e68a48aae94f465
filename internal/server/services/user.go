// Package services contains server-side business logic. This file implements
// UserService: registration, login, token refresh, password reset and the
// request authentication used by the HTTP middleware.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/slange/storefront/internal/common"
	"github.com/slange/storefront/internal/logging"
	"github.com/slange/storefront/internal/server/auth"
	"github.com/slange/storefront/internal/server/config"
	"github.com/slange/storefront/internal/server/models"
	"github.com/slange/storefront/internal/server/repositories/repomanager"
	"github.com/slange/storefront/internal/server/repositories/users"
)

// Caller-facing messages. Authentication failures share one message per
// flow so responses do not reveal whether an account exists.
const (
	MsgUserExists         = "User already exists"
	MsgInvalidCredentials = "Invalid credentials"
	MsgTokenRequired      = "Token is required"
	MsgInvalidToken       = "Invalid token"
	MsgUserNotFound       = "User not found"
	MsgResetFieldsMissing = "Token and new password are required"
	MsgServerError        = "Server error"

	MsgAuthInvalidToken = "Invalid token."
	MsgAuthUserNotFound = "Token is valid but user not found."
	MsgAuthDeactivated  = "User account is deactivated."
	MsgAuthFailed       = "Authentication failed."
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// RegisterInput is the payload of a new registration.
type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=6,maxbytes=72"`
	FirstName string `json:"firstName" validate:"required,min=2,max=50"`
	LastName  string `json:"lastName" validate:"required,min=2,max=50"`
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type emailInput struct {
	Email string `json:"email" validate:"required,email"`
}

type newPasswordInput struct {
	NewPassword string `json:"newPassword" validate:"required,min=6,maxbytes=72"`
}

// AuthResult is a user (without secrets) plus a freshly issued session token.
type AuthResult struct {
	User  *models.User
	Token string
}

// ResetRequest describes an issued password-reset token. Token is empty
// unless the service is configured to echo it.
type ResetRequest struct {
	Token     string
	ExpiresAt time.Time
}

// UserService provides authentication-related operations.
type UserService struct {
	repomanager                repomanager.RepositoryManager
	hasher                     *auth.Hasher
	tokens                     *auth.TokenIssuer
	mailer                     Mailer
	logger                     logging.Logger
	tokenValidityDuration      time.Duration
	resetTokenValidityDuration time.Duration
	exposeResetToken           bool
	now                        func() time.Time

	// dummyDigest is compared against on unknown emails so login takes
	// the same time whether or not the account exists.
	dummyDigest string
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(m repomanager.RepositoryManager, tokens *auth.TokenIssuer, hasher *auth.Hasher,
	mailer Mailer, l logging.Logger, cfg *config.Config) (*UserService, error) {

	dummy, err := hasher.Hash("storefront-dummy-password")
	if err != nil {
		return nil, err
	}

	return &UserService{
		repomanager:                m,
		hasher:                     hasher,
		tokens:                     tokens,
		mailer:                     mailer,
		logger:                     l.With("module", "user_service"),
		tokenValidityDuration:      cfg.TokenValidityDuration,
		resetTokenValidityDuration: cfg.ResetTokenValidityDuration,
		exposeResetToken:           cfg.ExposeResetToken,
		now:                        time.Now,
		dummyDigest:                dummy,
	}, nil
}

func (s *UserService) users() users.Repository {
	return s.repomanager.Users()
}

// Register creates a customer account and returns it with a session token.
// A duplicate email is reported as a Conflict; the store's unique index
// settles concurrent registrations of the same address.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = common.NormalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	digest, err := s.hashPassword(ctx, "register", "password", in.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users().Create(ctx, &models.User{
		Email:        in.Email,
		PasswordHash: digest,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         models.RoleCustomer,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.Conflict(MsgUserExists, err)
		}
		s.logger.Error(ctx, "user create failed", "op", "register", "error", err)
		return nil, common.Internal(MsgServerError, err)
	}

	token, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return &AuthResult{User: user.Sanitized(), Token: token}, nil
}

// Login verifies credentials. Unknown email, wrong password and deactivated
// accounts all fail with the same error.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	in := loginInput{Email: common.NormalizeEmail(email), Password: password}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	user, err := s.users().GetCredentialsByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(in.Password, s.dummyDigest)
			return nil, invalidCredentials()
		}
		s.logger.Error(ctx, "credentials lookup failed", "op", "login", "error", err)
		return nil, common.Internal(MsgServerError, err)
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) || !user.IsActive {
		return nil, invalidCredentials()
	}

	now := s.now().UTC()
	if err := s.users().TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn(ctx, "last login update failed", "user_id", user.ID, "error", err)
	} else {
		user.LastLogin = &now
	}

	token, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return &AuthResult{User: user.Sanitized(), Token: token}, nil
}

// Refresh exchanges a valid session token for a new one. Every verification
// or lookup failure, including a deactivated account, is Unauthenticated.
func (s *UserService) Refresh(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", common.Validation(MsgTokenRequired, nil)
	}

	claims, err := s.tokens.Verify(token, auth.PurposeSession)
	if err != nil {
		return "", common.Unauthenticated(MsgInvalidToken, err)
	}

	user, err := s.users().GetByID(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "user lookup failed", "op", "refresh", "user_id", claims.UserID, "error", err)
		}
		return "", common.Unauthenticated(MsgInvalidToken, err)
	}
	if !user.IsActive {
		return "", common.Unauthenticated(MsgInvalidToken, nil)
	}

	return s.issueSession(ctx, user)
}

// ForgotPassword issues a single-use reset token for the account behind
// email and hands it to the mailer. Only the hash of the token id is stored.
func (s *UserService) ForgotPassword(ctx context.Context, email string) (*ResetRequest, error) {
	in := emailInput{Email: common.NormalizeEmail(email)}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	user, err := s.users().GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound(MsgUserNotFound, err)
		}
		s.logger.Error(ctx, "user lookup failed", "op", "forgot_password", "error", err)
		return nil, common.Internal(MsgServerError, err)
	}

	tok, err := s.tokens.Issue(auth.PurposeReset, user.ID, user.Role, s.resetTokenValidityDuration)
	if err != nil {
		s.logger.Error(ctx, "reset token signing failed", "user_id", user.ID, "error", err)
		return nil, common.Internal(MsgServerError, err)
	}

	if err := s.users().SetPasswordReset(ctx, user.ID, common.HashToken(tok.ID), tok.ExpiresAt); err != nil {
		s.logger.Error(ctx, "reset token store failed", "user_id", user.ID, "error", err)
		return nil, common.Internal(MsgServerError, err)
	}

	if err := s.mailer.SendPasswordReset(ctx, user, tok.Value, tok.ExpiresAt); err != nil {
		s.logger.Error(ctx, "reset mail failed", "user_id", user.ID, "error", err)
		return nil, common.Internal(MsgServerError, err)
	}

	s.logger.Info(ctx, "password reset requested", "user_id", user.ID)

	res := &ResetRequest{ExpiresAt: tok.ExpiresAt}
	if s.exposeResetToken {
		res.Token = tok.Value
	}
	return res, nil
}

// ResetPassword sets a new password using a reset token. The token is
// consumed by the same write, so it cannot be replayed. Existing session
// tokens stay valid until they expire.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return common.Validation(MsgResetFieldsMissing, nil)
	}
	if err := validateStruct(newPasswordInput{NewPassword: newPassword}); err != nil {
		return err
	}

	claims, err := s.tokens.Verify(token, auth.PurposeReset)
	if err != nil {
		return invalidResetToken(err)
	}

	digest, err := s.hashPassword(ctx, "reset_password", "newPassword", newPassword)
	if err != nil {
		return err
	}

	err = s.users().ConsumePasswordReset(ctx, claims.UserID, common.HashToken(claims.ID), digest, s.now().UTC())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return invalidResetToken(err)
		}
		s.logger.Error(ctx, "password update failed", "user_id", claims.UserID, "error", err)
		return common.Internal(MsgServerError, err)
	}

	s.logger.Info(ctx, "password reset", "user_id", claims.UserID)
	return nil
}

// Authenticate resolves a session token to an active user record without
// its password digest.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Verify(token, auth.PurposeSession)
	if err != nil {
		return nil, common.Unauthenticated(MsgAuthInvalidToken, err)
	}

	user, err := s.users().GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Unauthenticated(MsgAuthUserNotFound, err)
		}
		s.logger.Error(ctx, "user lookup failed", "op", "authenticate", "user_id", claims.UserID, "error", err)
		return nil, common.Internal(MsgAuthFailed, err)
	}

	if !user.IsActive {
		return nil, common.Unauthenticated(MsgAuthDeactivated, nil)
	}

	return user.Sanitized(), nil
}

// GetUser returns a user by id.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound(MsgUserNotFound, err)
		}
		s.logger.Error(ctx, "user lookup failed", "op", "get_user", "user_id", id, "error", err)
		return nil, common.Internal(MsgServerError, err)
	}
	return user.Sanitized(), nil
}

// ListUsers pages through all users. A non-positive limit selects the
// default page size; limits above the maximum are clamped.
func (s *UserService) ListUsers(ctx context.Context, offset, limit int) ([]*models.User, error) {
	if offset < 0 {
		return nil, common.Validation("Validation failed", map[string]string{"offset": "offset must not be negative"})
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	list, err := s.users().List(ctx, offset, limit)
	if err != nil {
		s.logger.Error(ctx, "user list failed", "error", err)
		return nil, common.Internal(MsgServerError, err)
	}
	for i, u := range list {
		list[i] = u.Sanitized()
	}
	return list, nil
}

// SetActive activates or deactivates an account. A deactivated account can
// no longer log in, refresh or pass the auth middleware.
func (s *UserService) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	if err := s.users().SetActive(ctx, id, active); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound(MsgUserNotFound, err)
		}
		s.logger.Error(ctx, "user status update failed", "user_id", id, "error", err)
		return nil, common.Internal(MsgServerError, err)
	}

	s.logger.Info(ctx, "user status changed", "user_id", id, "active", active)
	return s.GetUser(ctx, id)
}

// SetActiveByEmail is SetActive addressed by email, for operators.
func (s *UserService) SetActiveByEmail(ctx context.Context, email string, active bool) (*models.User, error) {
	user, err := s.users().GetByEmail(ctx, common.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound(MsgUserNotFound, err)
		}
		return nil, common.Internal(MsgServerError, err)
	}
	return s.SetActive(ctx, user.ID, active)
}

// EnsureAdmin creates an admin account, or promotes and re-activates the
// existing account with the same email and sets its password. The steps run
// in one transaction. created reports whether a new record was written.
func (s *UserService) EnsureAdmin(ctx context.Context, in RegisterInput) (user *models.User, created bool, err error) {
	in.Email = common.NormalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if err := validateStruct(in); err != nil {
		return nil, false, err
	}

	digest, err := s.hashPassword(ctx, "ensure_admin", "password", in.Password)
	if err != nil {
		return nil, false, err
	}

	err = s.repomanager.WithinTx(ctx, func(ctx context.Context, repo users.Repository) error {
		existing, err := repo.GetByEmail(ctx, in.Email)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			user, err = repo.Create(ctx, &models.User{
				Email:        in.Email,
				PasswordHash: digest,
				FirstName:    in.FirstName,
				LastName:     in.LastName,
				Role:         models.RoleAdmin,
				IsActive:     true,
			})
			created = true
			return err
		case err != nil:
			return err
		}

		if err := repo.SetRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return err
		}
		if err := repo.UpdatePassword(ctx, existing.ID, digest); err != nil {
			return err
		}
		if err := repo.SetActive(ctx, existing.ID, true); err != nil {
			return err
		}
		existing.Role = models.RoleAdmin
		existing.IsActive = true
		user = existing
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "ensure admin failed", "error", err)
		return nil, false, common.Internal(MsgServerError, err)
	}

	s.logger.Info(ctx, "admin ensured", "user_id", user.ID, "created", created)
	return user.Sanitized(), created, nil
}

// --- helpers ---

// hashPassword reports a password bcrypt cannot take as a validation
// failure on field.
func (s *UserService) hashPassword(ctx context.Context, op, field, plaintext string) (string, error) {
	digest, err := s.hasher.Hash(plaintext)
	switch {
	case errors.Is(err, auth.ErrPasswordTooLong):
		return "", common.Validation("Validation failed", map[string]string{
			field: fmt.Sprintf("%s must be at most 72 bytes long", field),
		})
	case err != nil:
		s.logger.Error(ctx, "password hash failed", "op", op, "error", err)
		return "", common.Internal(MsgServerError, err)
	}
	return digest, nil
}

func (s *UserService) issueSession(ctx context.Context, user *models.User) (string, error) {
	tok, err := s.tokens.Issue(auth.PurposeSession, user.ID, user.Role, s.tokenValidityDuration)
	if err != nil {
		s.logger.Error(ctx, "token signing failed", "user_id", user.ID, "error", err)
		return "", common.Internal(MsgServerError, err)
	}
	return tok.Value, nil
}

// invalidCredentials is a 400-class error, matching the public login contract.
func invalidCredentials() error {
	return &common.Error{Kind: common.KindValidation, Message: MsgInvalidCredentials, Err: common.ErrInvalidCredentials}
}

func invalidResetToken(cause error) error {
	return &common.Error{Kind: common.KindValidation, Message: MsgInvalidToken, Err: cause}
}
