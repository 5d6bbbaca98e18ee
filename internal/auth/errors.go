package auth

import (
	"errors"
	"fmt"
)

// AuthorizationOutcome classifies a single token poll attempt
type AuthorizationOutcome int

const (
	// OutcomeUnclassified covers any error code outside the provider's
	// documented vocabulary; always terminal, never retried
	OutcomeUnclassified AuthorizationOutcome = iota
	// OutcomePending means the user has not finished authorizing yet
	OutcomePending
	// OutcomeSlowDown means the provider wants a wider polling interval
	OutcomeSlowDown
	// OutcomeDeclined means the user rejected the authorization request
	OutcomeDeclined
	// OutcomeBadVerificationCode means the device code was not recognized
	OutcomeBadVerificationCode
	// OutcomeExpired means the device code expired before authorization
	OutcomeExpired
)

// String returns the provider-side error code for the outcome
func (o AuthorizationOutcome) String() string {
	switch o {
	case OutcomePending:
		return "authorization_pending"
	case OutcomeSlowDown:
		return "slow_down"
	case OutcomeDeclined:
		return "authorization_declined"
	case OutcomeBadVerificationCode:
		return "bad_verification_code"
	case OutcomeExpired:
		return "expired_token"
	default:
		return "unclassified"
	}
}

// Recoverable reports whether polling may continue after this outcome.
// Only pending and slow_down loop; everything else terminates the flow.
func (o AuthorizationOutcome) Recoverable() bool {
	return o == OutcomePending || o == OutcomeSlowDown
}

// Outcome maps the provider's error field onto the closed outcome set
func (e *TokenError) Outcome() AuthorizationOutcome {
	switch e.ErrorCode {
	case "authorization_pending":
		return OutcomePending
	case "slow_down":
		return OutcomeSlowDown
	case "authorization_declined":
		return OutcomeDeclined
	case "bad_verification_code":
		return OutcomeBadVerificationCode
	case "expired_token":
		return OutcomeExpired
	default:
		return OutcomeUnclassified
	}
}

// Error implements the error interface for TokenError
func (e *TokenError) Error() string {
	if e.ErrorDescription != "" {
		return fmt.Sprintf("%s: %s", e.ErrorCode, e.ErrorDescription)
	}
	return e.ErrorCode
}

// NetworkError wraps a transport-level failure (DNS, TLS, timeout). The flow
// client never retries these; the caller may restart the whole flow.
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Cause)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// UnexpectedResponseError reports a provider response that does not parse as
// any known schema. Body carries the raw text for diagnostics.
type UnexpectedResponseError struct {
	StatusCode int
	Body       string
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected response (status %d): %s", e.StatusCode, e.Body)
}

// AuthorizationError is a terminal, provider-reported rejection of the flow
type AuthorizationError struct {
	Outcome  AuthorizationOutcome
	Response *TokenError
}

func (e *AuthorizationError) Error() string {
	if e.Response != nil && e.Response.ErrorDescription != "" {
		return fmt.Sprintf("authorization failed (%s): %s", e.Outcome, e.Response.ErrorDescription)
	}
	return fmt.Sprintf("authorization failed (%s)", e.Outcome)
}

// StoreError wraps a credential store failure so callers can distinguish a
// failed save from a failed authentication
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("credential store %s failed: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// ErrNotLoggedIn is returned by stores when no credentials exist
var ErrNotLoggedIn = errors.New("not logged in")
