package accountauth

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is matched by every *AuthError.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is returned by Login for any wrong email or password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountExists is returned by Signup when the email is taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrRateLimited is returned when a request budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrRateLimiterUnavailable is returned when the limiter backend cannot be reached.
	ErrRateLimiterUnavailable = errors.New("rate limiter backend unavailable")
	// ErrVerificationFailed covers a wrong, expired or missing verification code.
	ErrVerificationFailed = errors.New("verification failed")
	// ErrVerificationUnavailable is returned when no verification backend answered.
	ErrVerificationUnavailable = errors.New("verification backend unavailable")
	// ErrMailDelivery is returned when a code was generated but could not be sent.
	ErrMailDelivery = errors.New("verification mail delivery failed")
	// ErrPasswordPolicy is returned for passwords outside the account policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrInvalidInput is returned for empty or malformed request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRefreshInvalid is returned by Refresh for any rejected refresh token.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRevocationUnavailable is returned when a token could not be blacklisted.
	ErrRevocationUnavailable = errors.New("revocation backend unavailable")
	// ErrAccountUnavailable is returned when the account repository failed.
	ErrAccountUnavailable = errors.New("account backend unavailable")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// AuthReason classifies why Authenticate rejected a request. It is for logs,
// metrics and audit only; clients always see a uniform rejection.
type AuthReason string

const (
	ReasonMissing            AuthReason = "missing"
	ReasonMalformed          AuthReason = "malformed"
	ReasonBadSignature       AuthReason = "bad_signature"
	ReasonExpired            AuthReason = "expired"
	ReasonUnsupported        AuthReason = "unsupported"
	ReasonRevoked            AuthReason = "revoked"
	ReasonAccountMissing     AuthReason = "account_missing"
	ReasonBackendUnavailable AuthReason = "backend_unavailable"
)

// AuthError is a per-request authentication failure.
type AuthError struct {
	Reason AuthReason
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "unauthorized: " + string(e.Reason)
	}
	return fmt.Sprintf("unauthorized: %s: %v", e.Reason, e.Err)
}

// Unwrap exposes both ErrUnauthorized and the underlying cause.
func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnauthorized}
	}
	return []error{ErrUnauthorized, e.Err}
}

func authError(reason AuthReason, err error) *AuthError {
	return &AuthError{Reason: reason, Err: err}
}

// ReasonOf returns the reason carried by err, or "" when err is not an
// *AuthError.
func ReasonOf(err error) AuthReason {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ""
}

// ConfigError is a fatal startup problem. Build returns it before any backend
// is touched.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configError(field string, err error) *ConfigError {
	return &ConfigError{Field: field, Err: err}
}
