// Package client is a Go client for the task API, used by the todo CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"priority-todo-backend/internal/auth"
	"priority-todo-backend/internal/categories"
	"priority-todo-backend/internal/tasks"
)

const Platform = "cli"

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
	Details any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	appVersion string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithAppVersion is sent as X-App-Version.
func WithAppVersion(v string) Option {
	return func(c *Client) { c.appVersion = v }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the bearer token in use, if any.
func (c *Client) Token() string { return c.token }

func (c *Client) SetToken(token string) { c.token = token }

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Message string    `json:"message"`
	Token   string    `json:"token"`
	User    auth.User `json:"user"`
}

// Register creates an account and keeps the returned token.
func (c *Client) Register(ctx context.Context, email, username, password string) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"email":    email,
		"username": username,
		"password": password,
	}, &out)
	if err != nil {
		return AuthResult{}, err
	}
	c.token = out.Token
	return out, nil
}

// Login authenticates and keeps the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return AuthResult{}, err
	}
	c.token = out.Token
	return out, nil
}

func (c *Client) Me(ctx context.Context) (auth.User, error) {
	var out struct {
		User auth.User `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out)
	return out.User, err
}

// Logout revokes the current token and forgets it.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

func (c *Client) ListTasks(ctx context.Context) ([]tasks.Task, error) {
	var out struct {
		Tasks []tasks.Task `json:"tasks"`
	}
	err := c.do(ctx, http.MethodGet, "/tasks", nil, &out)
	return out.Tasks, err
}

func (c *Client) GetTask(ctx context.Context, id int64) (tasks.Task, error) {
	var out struct {
		Task tasks.Task `json:"task"`
	}
	err := c.do(ctx, http.MethodGet, taskPath(id), nil, &out)
	return out.Task, err
}

func (c *Client) CreateTask(ctx context.Context, in tasks.NewTask) (tasks.Task, error) {
	var out struct {
		Task tasks.Task `json:"task"`
	}
	err := c.do(ctx, http.MethodPost, "/tasks", in, &out)
	return out.Task, err
}

// UpdateTask sends only the fields set in p.
func (c *Client) UpdateTask(ctx context.Context, id int64, p tasks.Patch) (tasks.Task, error) {
	var out struct {
		Task tasks.Task `json:"task"`
	}
	err := c.do(ctx, http.MethodPatch, taskPath(id), p, &out)
	return out.Task, err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

func (c *Client) ListCategories(ctx context.Context) ([]categories.Category, error) {
	var out struct {
		Categories []categories.Category `json:"categories"`
	}
	err := c.do(ctx, http.MethodGet, "/categories", nil, &out)
	return out.Categories, err
}

func (c *Client) CreateCategory(ctx context.Context, in categories.NewCategory) (categories.Category, error) {
	var out struct {
		Category categories.Category `json:"category"`
	}
	err := c.do(ctx, http.MethodPost, "/categories", in, &out)
	return out.Category, err
}

// Track reports a client-side analytics event.
func (c *Client) Track(ctx context.Context, event string, props map[string]any) error {
	return c.do(ctx, http.MethodPost, "/analytics/events", map[string]any{
		"event":      event,
		"properties": props,
	}, nil)
}

func taskPath(id int64) string {
	return "/tasks/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Platform", Platform)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.appVersion != "" {
		req.Header.Set("X-App-Version", c.appVersion)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return responseError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func responseError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var payload struct {
		Error   string `json:"error"`
		Details any    `json:"details"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Details = payload.Details
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
