package auth

import (
	"time"
)

// Credentials represents stored authentication credentials
type Credentials struct {
	// Tenant the credentials were issued for
	Tenant string `json:"tenant"`
	// OAuth access token
	AccessToken string `json:"access_token"`
	// OAuth refresh token for renewing access
	RefreshToken string `json:"refresh_token,omitempty"`
	// Scopes granted by the provider
	Scope string `json:"scope,omitempty"`
	// Token expiration time
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	// Client ID used for authentication
	ClientID string `json:"client_id,omitempty"`
}

// IsExpired checks if the access token has expired
func (c *Credentials) IsExpired() bool {
	if c.ExpiresAt == nil {
		return false // No expiry means token doesn't expire
	}
	return time.Now().After(*c.ExpiresAt)
}

// TimeUntilExpiry returns the duration until token expiry
func (c *Credentials) TimeUntilExpiry() time.Duration {
	if c.ExpiresAt == nil {
		return time.Duration(0)
	}
	return time.Until(*c.ExpiresAt)
}

// AuthStatus represents the current authentication status
type AuthStatus struct {
	LoggedIn     bool
	Credentials  *Credentials
	Error        error
	NeedsRefresh bool
}

// DeviceAuthResponse represents the response from the device code endpoint.
// The device_code is a bearer secret for the lifetime of the flow and must
// never be logged or written to the credential store.
type DeviceAuthResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval,omitempty"`
	Message         string `json:"message,omitempty"`
}

// TokenResponse represents the response from the token endpoint
type TokenResponse struct {
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	ExtExpiresIn int    `json:"ext_expires_in,omitempty"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}

// TokenError represents an error response from the token endpoint.
// The identity platform decorates the standard OAuth error object with
// diagnostic fields (error_codes, trace_id, correlation_id).
type TokenError struct {
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorCodes       []int  `json:"error_codes,omitempty"`
	Timestamp        string `json:"timestamp,omitempty"`
	TraceID          string `json:"trace_id,omitempty"`
	CorrelationID    string `json:"correlation_id,omitempty"`
}

// LoginConfig contains configuration for the login process
type LoginConfig struct {
	// Don't open browser automatically
	NoBrowser bool
	// Override tenant (for testing, or org-specific tenants)
	Tenant string
	// Override OAuth client ID (for testing)
	ClientID string
	// Override requested scopes
	Scope string
	// Force re-authentication even if already logged in
	Force bool
}

// Constants for OAuth configuration
const (
	// Default OAuth client ID for mstodo authentication
	DefaultClientID = "c85cbdd1-4823-4bc8-b02e-2f3f7caa9dd7"
	// Default tenant for authentication
	DefaultTenant = "e620629d-ca12-4421-8f81-ba47552f618d"
	// Scopes required to read and write To Do tasks
	DefaultScope = "offline_access User.Read Tasks.ReadWrite"
	// Maximum time to wait for login completion; the provider's expires_in
	// bounds each individual flow well below this
	LoginTimeout = 30 * time.Minute
	// Keyring service name
	KeyringService = "mstodo-cli"
	// Keyring username
	KeyringUsername = "default"
	// Fixed grant type string for the device code grant
	DeviceCodeGrantType = "urn:ietf:params:oauth:grant-type:device_code"
	// Grant type for refreshing an access token
	RefreshGrantType = "refresh_token"
)

// Endpoints holds the provider URLs used by the flow client. Immutable after
// construction so tests can point the client at mock servers.
type Endpoints struct {
	DeviceCodeURL string
	TokenURL      string
}

// DefaultEndpoints returns the identity platform endpoints for a tenant
func DefaultEndpoints(tenant string) Endpoints {
	if tenant == "" {
		tenant = DefaultTenant
	}
	base := "https://login.microsoftonline.com/" + tenant + "/oauth2/v2.0"
	return Endpoints{
		DeviceCodeURL: base + "/devicecode",
		TokenURL:      base + "/token",
	}
}
