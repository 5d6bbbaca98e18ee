package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pkg/browser"
)

// Manager handles authentication operations
type Manager struct {
	store         CredentialStore
	oauthProvider OAuthProvider
	browserOpener BrowserOpener
	config        *LoginConfig
}

// defaultBrowserOpener implements BrowserOpener using the browser package
type defaultBrowserOpener struct{}

func (d *defaultBrowserOpener) OpenURL(url string) error {
	return browser.OpenURL(url)
}

// NewManager creates a new authentication manager
func NewManager(store CredentialStore, config *LoginConfig) *Manager {
	config = withDefaults(config)

	return &Manager{
		store:         store,
		oauthProvider: NewOAuthClient(DefaultEndpoints(config.Tenant), config.ClientID, config.Scope),
		browserOpener: &defaultBrowserOpener{},
		config:        config,
	}
}

// NewManagerWithProvider creates a new authentication manager with a custom
// OAuth provider. Primarily for testing.
func NewManagerWithProvider(store CredentialStore, provider OAuthProvider, config *LoginConfig) *Manager {
	return &Manager{
		store:         store,
		oauthProvider: provider,
		browserOpener: &defaultBrowserOpener{},
		config:        withDefaults(config),
	}
}

// NewManagerWithMocks creates a manager with all dependencies mocked, for
// tests that must not touch the network or a real browser
func NewManagerWithMocks(store CredentialStore, provider OAuthProvider, opener BrowserOpener, config *LoginConfig) *Manager {
	config = withDefaults(config)
	config.NoBrowser = true

	return &Manager{
		store:         store,
		oauthProvider: provider,
		browserOpener: opener,
		config:        config,
	}
}

func withDefaults(config *LoginConfig) *LoginConfig {
	if config == nil {
		config = &LoginConfig{}
	}
	if config.Tenant == "" {
		config.Tenant = DefaultTenant
	}
	if config.ClientID == "" {
		config.ClientID = DefaultClientID
	}
	if config.Scope == "" {
		config.Scope = DefaultScope
	}
	return config
}

// StartDeviceFlow starts the device code flow and returns the challenge for
// the caller to display. When valid credentials already exist the flow is
// not started unless Force is set; expired credentials with a refresh token
// are refreshed instead.
func (m *Manager) StartDeviceFlow(ctx context.Context) (*DeviceAuthResponse, error) {
	if !m.config.Force {
		if creds, err := m.store.Load(); err == nil && creds != nil {
			if !creds.IsExpired() {
				return nil, fmt.Errorf("already logged in")
			}
			if creds.RefreshToken != "" {
				if _, err := m.Refresh(ctx, creds); err == nil {
					return nil, fmt.Errorf("already logged in (token refreshed)")
				}
			}
		}
	}

	challenge, err := m.oauthProvider.RequestDeviceCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start device flow: %w", err)
	}

	if !m.config.NoBrowser && m.browserOpener != nil {
		_ = m.browserOpener.OpenURL(challenge.VerificationURI)
	}

	return challenge, nil
}

// CompleteDeviceFlow polls until the flow reaches a terminal state and, on
// success, persists the credentials. The store write happens at most once
// per flow.
func (m *Manager) CompleteDeviceFlow(ctx context.Context, challenge *DeviceAuthResponse) (*Credentials, error) {
	token, err := m.oauthProvider.PollForToken(ctx, challenge)
	if err != nil {
		return nil, err
	}

	creds := m.newCredentials(token, "")

	if err := m.store.Save(creds); err != nil {
		return nil, err
	}

	return creds, nil
}

// Login performs the complete device flow login
func (m *Manager) Login(ctx context.Context) (*Credentials, error) {
	challenge, err := m.StartDeviceFlow(ctx)
	if err != nil {
		return nil, err
	}
	return m.CompleteDeviceFlow(ctx, challenge)
}

// Logout removes stored credentials
func (m *Manager) Logout() error {
	return m.store.Delete()
}

// Status returns the current authentication status
func (m *Manager) Status() *AuthStatus {
	creds, err := m.store.Load()
	if err != nil || creds == nil {
		status := &AuthStatus{LoggedIn: false}
		if err != nil && !errors.Is(err, ErrNotLoggedIn) {
			status.Error = err
		}
		return status
	}

	status := &AuthStatus{
		LoggedIn:    true,
		Credentials: creds,
	}

	if creds.IsExpired() {
		status.NeedsRefresh = true
	}

	return status
}

// GetToken returns the current access token, refreshing if necessary
func (m *Manager) GetToken(ctx context.Context) (string, error) {
	creds, err := m.store.Load()
	if err != nil || creds == nil {
		return "", ErrNotLoggedIn
	}

	if creds.IsExpired() {
		if creds.RefreshToken == "" {
			return "", fmt.Errorf("token expired and no refresh token available")
		}
		refreshed, err := m.Refresh(ctx, creds)
		if err != nil {
			return "", fmt.Errorf("failed to refresh token: %w", err)
		}
		creds = refreshed
	}

	return creds.AccessToken, nil
}

// Refresh exchanges the stored refresh token for a new access token. The
// result is a new credentials record; the input is never mutated.
func (m *Manager) Refresh(ctx context.Context, creds *Credentials) (*Credentials, error) {
	if creds.RefreshToken == "" {
		return nil, fmt.Errorf("no refresh token available")
	}

	token, err := m.oauthProvider.RefreshToken(ctx, creds.RefreshToken)
	if err != nil {
		return nil, err
	}

	// Keep the existing refresh token unless the provider rotated it
	newCreds := m.newCredentials(token, creds.RefreshToken)

	if err := m.store.Save(newCreds); err != nil {
		return nil, err
	}

	return newCreds, nil
}

func (m *Manager) newCredentials(token *TokenResponse, fallbackRefreshToken string) *Credentials {
	creds := &Credentials{
		Tenant:       m.config.Tenant,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Scope:        token.Scope,
		ClientID:     m.config.ClientID,
	}
	if creds.RefreshToken == "" {
		creds.RefreshToken = fallbackRefreshToken
	}
	if token.ExpiresIn > 0 {
		expiresAt := time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
		creds.ExpiresAt = &expiresAt
	}
	return creds
}
