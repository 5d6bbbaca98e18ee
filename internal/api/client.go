// Package api is a thin Microsoft Graph To Do client. It consumes the access
// token owned by the auth manager; all protocol logic lives in internal/auth.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mstodo/mstodo-cli/internal/auth"
)

const (
	// DefaultBaseURL is the Microsoft Graph endpoint
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"
)

// TokenSource provides a valid access token, refreshing when needed
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// Ensure the auth manager satisfies TokenSource
var _ TokenSource = (*auth.Manager)(nil)

// Client wraps the Graph To Do endpoints with authentication
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new To Do API client backed by tokens
func NewClient(tokens TokenSource, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: &http.Client{
			Transport: &authTransport{
				tokens:     tokens,
				underlying: http.DefaultTransport,
			},
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
	}
}

// authTransport adds authentication headers to requests
type authTransport struct {
	tokens     TokenSource
	underlying http.RoundTripper
}

// RoundTrip implements http.RoundTripper with authentication
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.tokens.GetToken(req.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to get auth token: %w", err)
	}

	req = req.Clone(req.Context())
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	// Graph correlates requests by this id; keep one per request for support
	req.Header.Set("client-request-id", uuid.NewString())

	return t.underlying.RoundTrip(req)
}

// User is the profile of the authenticated user
type User struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// TaskList is a To Do task list
type TaskList struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	WellknownListName string `json:"wellknownListName,omitempty"`
}

// Task is a single To Do task
type Task struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Status     string `json:"status,omitempty"`
	Importance string `json:"importance,omitempty"`
}

// listEnvelope is the Graph collection wrapper
type listEnvelope[T any] struct {
	Value []T `json:"value"`
}

// apiError is the Graph error envelope
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GetMe retrieves the authenticated user's profile
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListTaskLists retrieves the user's task lists
func (c *Client) ListTaskLists(ctx context.Context) ([]TaskList, error) {
	var envelope listEnvelope[TaskList]
	if err := c.get(ctx, "/me/todo/lists", &envelope); err != nil {
		return nil, err
	}
	return envelope.Value, nil
}

// ListTasks retrieves the tasks in a list
func (c *Client) ListTasks(ctx context.Context, listID string) ([]Task, error) {
	var envelope listEnvelope[Task]
	if err := c.get(ctx, "/me/todo/lists/"+listID+"/tasks", &envelope); err != nil {
		return nil, err
	}
	return envelope.Value, nil
}

// CreateTask adds a task with the given title to a list
func (c *Client) CreateTask(ctx context.Context, listID, title string) (*Task, error) {
	payload, err := json.Marshal(Task{Title: title})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/me/todo/lists/"+listID+"/tasks", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var task Task
	if err := c.do(req, http.StatusCreated, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, http.StatusOK, out)
}

func (c *Client) do(req *http.Request, wantStatus int, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		var graphErr apiError
		if err := json.Unmarshal(body, &graphErr); err == nil && graphErr.Error.Code != "" {
			return fmt.Errorf("API error %s: %s", graphErr.Error.Code, graphErr.Error.Message)
		}
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
