package auth

import (
	"context"
	"errors"
	"testing"
)

func TestManager_Login(t *testing.T) {
	h := NewTestHelpers()

	t.Run("successful flow saves credentials once", func(t *testing.T) {
		builder := NewMockBuilder().
			WithDeviceFlow(h.DeviceAuthResponse(), nil).
			WithTokenPolling([]interface{}{
				h.AuthorizationPendingError(),
				h.TokenResponse(),
			})

		manager, provider, store := builder.Build()

		creds, err := manager.Login(context.Background())
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}

		if creds.AccessToken != "access-token" {
			t.Errorf("AccessToken = %q", creds.AccessToken)
		}
		if creds.RefreshToken != "refresh-token" {
			t.Errorf("RefreshToken = %q", creds.RefreshToken)
		}
		if creds.ExpiresAt == nil {
			t.Error("ExpiresAt should be set from expires_in")
		}
		if store.SaveCalls != 1 {
			t.Errorf("store Save called %d times, want exactly 1", store.SaveCalls)
		}
		if len(provider.PollForTokenCalls) != 1 {
			t.Errorf("PollForToken called %d times, want 1", len(provider.PollForTokenCalls))
		}
	})

	t.Run("declined flow does not touch the store", func(t *testing.T) {
		builder := NewMockBuilder().
			WithDeviceFlow(h.DeviceAuthResponse(), nil).
			WithTokenPolling([]interface{}{h.DeclinedError()})

		manager, _, store := builder.Build()

		_, err := manager.Login(context.Background())

		var authErr *AuthorizationError
		if !errors.As(err, &authErr) {
			t.Fatalf("error = %v, want AuthorizationError", err)
		}
		if authErr.Outcome != OutcomeDeclined {
			t.Errorf("Outcome = %v, want Declined", authErr.Outcome)
		}
		if store.SaveCalls != 0 {
			t.Errorf("store Save called %d times, want 0", store.SaveCalls)
		}
	})

	t.Run("store failure surfaces as StoreError", func(t *testing.T) {
		storeErr := &StoreError{Op: "save", Cause: errors.New("keyring locked")}
		builder := NewMockBuilder().
			WithDeviceFlow(h.DeviceAuthResponse(), nil).
			WithStoreError(storeErr)

		manager, _, _ := builder.Build()

		// The store error on Load is ignored for the already-logged-in
		// check; the Save after polling must propagate
		_, err := manager.Login(context.Background())

		var got *StoreError
		if !errors.As(err, &got) {
			t.Fatalf("error = %v, want StoreError", err)
		}
	})
}

func TestManager_StartDeviceFlow(t *testing.T) {
	h := NewTestHelpers()

	t.Run("already logged in", func(t *testing.T) {
		builder := NewMockBuilder().
			WithStoredCredentials(h.ValidCredentials())

		manager, provider, _ := builder.Build()

		_, err := manager.StartDeviceFlow(context.Background())
		if err == nil {
			t.Error("StartDeviceFlow() should error when already logged in")
		}
		if len(provider.RequestDeviceCodeCalls) != 0 {
			t.Errorf("RequestDeviceCode called %d times, want 0", len(provider.RequestDeviceCodeCalls))
		}
	})

	t.Run("force restarts the flow despite valid credentials", func(t *testing.T) {
		store := NewMockStore(h.ValidCredentials(), nil)
		provider := &MockOAuthProvider{}
		manager := NewManagerWithMocks(store, provider, &MockBrowserOpener{}, &LoginConfig{Force: true})

		resp, err := manager.StartDeviceFlow(context.Background())
		if err != nil {
			t.Fatalf("StartDeviceFlow() error = %v", err)
		}
		if resp == nil {
			t.Fatal("StartDeviceFlow() returned nil challenge")
		}
	})

	t.Run("expired credentials with working refresh", func(t *testing.T) {
		builder := NewMockBuilder().
			WithStoredCredentials(h.ExpiredCredentials()).
			WithRefreshToken(h.TokenResponse(), nil).
			WithDeviceFlow(h.DeviceAuthResponse(), nil)

		manager, provider, _ := builder.Build()

		// Refresh succeeds, so no new device flow starts
		_, err := manager.StartDeviceFlow(context.Background())
		if err == nil {
			t.Error("StartDeviceFlow() should report already logged in after refresh")
		}
		if len(provider.RequestDeviceCodeCalls) != 0 {
			t.Errorf("RequestDeviceCode called %d times, want 0", len(provider.RequestDeviceCodeCalls))
		}
	})

	t.Run("expired credentials with failing refresh", func(t *testing.T) {
		builder := NewMockBuilder().
			WithStoredCredentials(h.ExpiredCredentials()).
			WithRefreshToken(nil, &NetworkError{Cause: errors.New("offline")}).
			WithDeviceFlow(h.DeviceAuthResponse(), nil)

		manager, provider, _ := builder.Build()

		resp, err := manager.StartDeviceFlow(context.Background())
		if err != nil {
			t.Fatalf("StartDeviceFlow() error = %v", err)
		}
		if resp == nil {
			t.Fatal("StartDeviceFlow() returned nil challenge")
		}
		if len(provider.RequestDeviceCodeCalls) != 1 {
			t.Errorf("RequestDeviceCode called %d times, want 1", len(provider.RequestDeviceCodeCalls))
		}
	})

	t.Run("browser opened with verification URI", func(t *testing.T) {
		store := NewMockStore(nil, nil)
		provider := &MockOAuthProvider{}
		browser := &MockBrowserOpener{}

		manager := NewManagerWithMocks(store, provider, browser, nil)
		manager.config.NoBrowser = false

		resp, err := manager.StartDeviceFlow(context.Background())
		if err != nil {
			t.Fatalf("StartDeviceFlow() error = %v", err)
		}

		if len(browser.OpenURLCalls) != 1 {
			t.Fatalf("Browser OpenURL called %d times, want 1", len(browser.OpenURLCalls))
		}
		if browser.OpenURLCalls[0].URL != resp.VerificationURI {
			t.Errorf("Browser opened %v, want %v", browser.OpenURLCalls[0].URL, resp.VerificationURI)
		}
	})
}

func TestManager_Refresh(t *testing.T) {
	h := NewTestHelpers()

	t.Run("produces a new record", func(t *testing.T) {
		old := h.ExpiredCredentials()
		builder := NewMockBuilder().
			WithStoredCredentials(old).
			WithRefreshToken(&TokenResponse{
				TokenType:   "Bearer",
				AccessToken: "fresh-token",
				ExpiresIn:   3600,
			}, nil)

		manager, _, _ := builder.Build()

		newCreds, err := manager.Refresh(context.Background(), old)
		if err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}

		if newCreds == old {
			t.Error("Refresh() must return a new record, not mutate the old one")
		}
		if newCreds.AccessToken != "fresh-token" {
			t.Errorf("AccessToken = %q", newCreds.AccessToken)
		}
		// Provider sent no refresh_token: keep the existing one
		if newCreds.RefreshToken != old.RefreshToken {
			t.Errorf("RefreshToken = %q, want the retained %q", newCreds.RefreshToken, old.RefreshToken)
		}
		if old.AccessToken != "expired-token" {
			t.Error("the old record was mutated")
		}
	})

	t.Run("no refresh token", func(t *testing.T) {
		manager, _, _ := NewMockBuilder().Build()

		_, err := manager.Refresh(context.Background(), &Credentials{AccessToken: "x"})
		if err == nil {
			t.Error("Refresh() should fail without a refresh token")
		}
	})
}

func TestManager_GetToken(t *testing.T) {
	h := NewTestHelpers()

	t.Run("valid token returned as-is", func(t *testing.T) {
		builder := NewMockBuilder().WithStoredCredentials(h.ValidCredentials())
		manager, provider, _ := builder.Build()

		token, err := manager.GetToken(context.Background())
		if err != nil {
			t.Fatalf("GetToken() error = %v", err)
		}
		if token != "valid-token" {
			t.Errorf("token = %q", token)
		}
		if len(provider.RefreshTokenCalls) != 0 {
			t.Errorf("RefreshToken called %d times, want 0", len(provider.RefreshTokenCalls))
		}
	})

	t.Run("expired token refreshed", func(t *testing.T) {
		builder := NewMockBuilder().
			WithStoredCredentials(h.ExpiredCredentials()).
			WithRefreshToken(&TokenResponse{AccessToken: "fresh-token", ExpiresIn: 3600}, nil)

		manager, provider, _ := builder.Build()

		token, err := manager.GetToken(context.Background())
		if err != nil {
			t.Fatalf("GetToken() error = %v", err)
		}
		if token != "fresh-token" {
			t.Errorf("token = %q", token)
		}
		if len(provider.RefreshTokenCalls) != 1 {
			t.Errorf("RefreshToken called %d times, want 1", len(provider.RefreshTokenCalls))
		}
	})

	t.Run("not logged in", func(t *testing.T) {
		manager, _, _ := NewMockBuilder().Build()

		_, err := manager.GetToken(context.Background())
		if !errors.Is(err, ErrNotLoggedIn) {
			t.Errorf("error = %v, want ErrNotLoggedIn", err)
		}
	})
}

func TestManager_Status(t *testing.T) {
	h := NewTestHelpers()

	t.Run("logged in", func(t *testing.T) {
		manager, _, _ := NewMockBuilder().WithStoredCredentials(h.ValidCredentials()).Build()

		status := manager.Status()
		if !status.LoggedIn {
			t.Error("LoggedIn = false, want true")
		}
		if status.NeedsRefresh {
			t.Error("NeedsRefresh = true, want false")
		}
	})

	t.Run("expired", func(t *testing.T) {
		manager, _, _ := NewMockBuilder().WithStoredCredentials(h.ExpiredCredentials()).Build()

		status := manager.Status()
		if !status.LoggedIn || !status.NeedsRefresh {
			t.Errorf("LoggedIn/NeedsRefresh = %v/%v, want true/true", status.LoggedIn, status.NeedsRefresh)
		}
	})

	t.Run("not logged in", func(t *testing.T) {
		manager, _, _ := NewMockBuilder().Build()

		if status := manager.Status(); status.LoggedIn {
			t.Error("LoggedIn = true, want false")
		}
	})
}

func TestManager_Logout(t *testing.T) {
	h := NewTestHelpers()

	manager, _, store := NewMockBuilder().WithStoredCredentials(h.ValidCredentials()).Build()

	if err := manager.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if store.Exists() {
		t.Error("credentials still present after logout")
	}
}
