// Package common contains shared constants, sentinel errors and the typed
// error used across the storefront components.
package common

// TokenCookieName is the cookie that carries the session token for browser
// clients. The Authorization header takes precedence when both are present.
const TokenCookieName = "token"

// RequestIDHeaderName is echoed back on every HTTP response.
const RequestIDHeaderName = "X-Request-ID"
