// Package auth implements password hashing, signed tokens and the request
// identity carried through context.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/slange/storefront/internal/common"
	"github.com/slange/storefront/internal/server/models"
)

// Purpose separates session tokens from password-reset tokens so one can
// never be used in place of the other.
type Purpose string

const (
	PurposeSession Purpose = "session"
	PurposeReset   Purpose = "reset"
)

// Claims is the JWT payload: registered claims plus the user id, role and
// purpose.
type Claims struct {
	jwt.RegisteredClaims
	UserID  string      `json:"userId"`
	Role    models.Role `json:"role"`
	Purpose Purpose     `json:"typ"`
}

// Token is an issued token together with the claims the caller may need to
// persist.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies HS256 tokens with a single server secret.
// Rotating the secret invalidates every outstanding token.
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

func NewTokenIssuer(secretKey string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secretKey), now: time.Now}
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	return &TokenIssuer{secret: i.secret, now: now}
}

// Issue signs a token for userID valid for ttl.
func (i *TokenIssuer) Issue(purpose Purpose, userID string, role models.Role, ttl time.Duration) (*Token, error) {
	now := i.now()
	id := uuid.NewString()
	expires := now.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UserID:  userID,
		Role:    role,
		Purpose: purpose,
	})

	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return nil, err
	}

	return &Token{Value: tokenString, ID: id, ExpiresAt: expires}, nil
}

// Verify checks signature, expiry and purpose. Expired tokens yield
// common.ErrTokenExpired; everything else wraps common.ErrInvalidToken.
func (i *TokenIssuer) Verify(tokenString string, purpose Purpose) (*Claims, error) {
	claims := &Claims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)

	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("%w: unexpected purpose %q", common.ErrInvalidToken, claims.Purpose)
	}

	return claims, nil
}
