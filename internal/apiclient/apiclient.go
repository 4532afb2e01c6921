// Package apiclient wraps HTTP calls to the sockdo gateway.
package apiclient

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

	"github.com/fentz26/sockdo/internal/models"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
}

// Client talks to the gateway's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client with timeout.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultClientTimeout,
		},
	}
}

// BaseURL returns the gateway address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListTodos fetches every todo.
func (c *Client) ListTodos(ctx context.Context) ([]models.Todo, error) {
	var todos []models.Todo
	if err := c.do(ctx, http.MethodGet, "/api/todos", nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// CreateTodo adds a todo with the given title.
func (c *Client) CreateTodo(ctx context.Context, title string) (*models.Todo, error) {
	var todo models.Todo
	body := map[string]string{"title": title}
	if err := c.do(ctx, http.MethodPost, "/api/todos", body, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// SetCompleted marks a todo done or not done.
func (c *Client) SetCompleted(ctx context.Context, id int64, completed bool) (*models.Todo, error) {
	return c.update(ctx, id, map[string]any{"completed": completed})
}

// Rename changes a todo's title.
func (c *Client) Rename(ctx context.Context, id int64, title string) (*models.Todo, error) {
	return c.update(ctx, id, map[string]any{"title": title})
}

func (c *Client) update(ctx context.Context, id int64, body map[string]any) (*models.Todo, error) {
	var todo models.Todo
	if err := c.do(ctx, http.MethodPut, todoPath(id), body, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// DeleteTodo removes a todo.
func (c *Client) DeleteTodo(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, todoPath(id), nil, nil)
}

// CheckHealth returns the gateway health payload. Unlike other calls it
// returns the parsed body alongside the error on a non-200 answer.
func (c *Client) CheckHealth(ctx context.Context) (*models.GatewayHealth, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var health models.GatewayHealth
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &health, &APIError{Status: resp.StatusCode, Message: health.Error}
	}
	return &health, nil
}

func todoPath(id int64) string {
	return "/api/todos/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
