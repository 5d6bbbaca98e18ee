package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"
)

// OAuthClient handles OAuth device flow authentication against the identity
// platform's device code and token endpoints
type OAuthClient struct {
	httpClient HTTPClient
	endpoints  Endpoints
	clientID   string
	scope      string
}

// Ensure OAuthClient implements OAuthProvider
var _ OAuthProvider = (*OAuthClient)(nil)

// NewOAuthClient creates a new OAuth client. Endpoints, client id and scope
// are fixed at construction so tests can point at mock servers.
func NewOAuthClient(endpoints Endpoints, clientID, scope string) *OAuthClient {
	if endpoints.DeviceCodeURL == "" || endpoints.TokenURL == "" {
		endpoints = DefaultEndpoints("")
	}
	if clientID == "" {
		clientID = DefaultClientID
	}
	if scope == "" {
		scope = DefaultScope
	}

	return &OAuthClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoints:  endpoints,
		clientID:   clientID,
		scope:      scope,
	}
}

// RequestDeviceCode requests a device code challenge. The returned user code,
// verification URI and message are for the caller to display.
func (c *OAuthClient) RequestDeviceCode(ctx context.Context) (*DeviceAuthResponse, error) {
	data := url.Values{
		"client_id": {c.clientID},
		"scope":     {c.scope},
	}

	status, body, err := c.postForm(ctx, c.endpoints.DeviceCodeURL, data)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, &UnexpectedResponseError{StatusCode: status, Body: string(body)}
	}

	var challenge DeviceAuthResponse
	if err := json.Unmarshal(body, &challenge); err != nil || challenge.DeviceCode == "" {
		return nil, &UnexpectedResponseError{StatusCode: status, Body: string(body)}
	}

	return &challenge, nil
}

// PollForToken polls the token endpoint until the user authorizes the device
// code, the challenge expires, or the provider reports a terminal error.
// Pacing follows the challenge's interval and expires_in values; slow_down
// widens the interval per RFC 8628. Cancelling ctx aborts within one tick.
func (c *OAuthClient) PollForToken(ctx context.Context, challenge *DeviceAuthResponse) (*TokenResponse, error) {
	schedule := newPollSchedule(challenge)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		token, err := c.requestToken(ctx, challenge.DeviceCode)
		if err == nil {
			return token, nil
		}

		var tokenErr *TokenError
		if !errors.As(err, &tokenErr) {
			// Transport failures and unparseable responses are terminal
			return nil, err
		}

		outcome := tokenErr.Outcome()
		if !outcome.Recoverable() {
			return nil, &AuthorizationError{Outcome: outcome, Response: tokenErr}
		}
		if outcome == OutcomeSlowDown {
			schedule.SlowDown()
		}

		tick, err := schedule.NextTick(ctx)
		if err != nil {
			return nil, err
		}
		if tick == TickDeadline {
			return nil, &AuthorizationError{Outcome: OutcomeExpired, Response: tokenErr}
		}
	}
}

// requestToken makes a single token request for a device code
func (c *OAuthClient) requestToken(ctx context.Context, deviceCode string) (*TokenResponse, error) {
	data := url.Values{
		"client_id":  {c.clientID},
		"code":       {deviceCode},
		"grant_type": {DeviceCodeGrantType},
	}

	status, body, err := c.postForm(ctx, c.endpoints.TokenURL, data)
	if err != nil {
		return nil, err
	}

	return c.decodeTokenResponse(status, body)
}

// RefreshToken exchanges a refresh token for a new token record. A single
// attempt: failures surface to the caller, which decides whether to restart
// the device flow.
func (c *OAuthClient) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	data := url.Values{
		"client_id":     {c.clientID},
		"grant_type":    {RefreshGrantType},
		"refresh_token": {refreshToken},
	}

	status, body, err := c.postForm(ctx, c.endpoints.TokenURL, data)
	if err != nil {
		return nil, err
	}

	return c.decodeTokenResponse(status, body)
}

// postForm sends a form-encoded POST and returns the status and raw body.
// Transport failures come back as NetworkError.
func (c *OAuthClient) postForm(ctx context.Context, endpoint string, data url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(data.Encode()))
	if err != nil {
		return 0, nil, &NetworkError{Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &NetworkError{Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &NetworkError{Cause: err}
	}

	return resp.StatusCode, body, nil
}

// decodeTokenResponse parses a token endpoint response into either a token
// record or a classified provider error. Anything that fits neither shape is
// an UnexpectedResponseError carrying the raw body.
func (c *OAuthClient) decodeTokenResponse(status int, body []byte) (*TokenResponse, error) {
	if status == http.StatusOK {
		var token TokenResponse
		if err := json.Unmarshal(body, &token); err != nil || token.AccessToken == "" {
			return nil, &UnexpectedResponseError{StatusCode: status, Body: string(body)}
		}
		return &token, nil
	}

	var tokenErr TokenError
	if err := json.Unmarshal(body, &tokenErr); err != nil || tokenErr.ErrorCode == "" {
		return nil, &UnexpectedResponseError{StatusCode: status, Body: string(body)}
	}
	if tokenErr.Outcome() == OutcomeUnclassified {
		// Never guess at unknown provider codes
		return nil, &UnexpectedResponseError{StatusCode: status, Body: string(body)}
	}

	return nil, &tokenErr
}
