package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fentz26/sockdo/internal/models"
	"github.com/fentz26/sockdo/internal/protocol"
)

// ListTodos fetches the whole collection.
func (c *Client) ListTodos(ctx context.Context) ([]models.Todo, error) {
	var todos []models.Todo
	if err := c.call(ctx, protocol.GetTodos, nil, &todos); err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []models.Todo{}
	}
	return todos, nil
}

// CreateTodo forwards data verbatim as the CREATE_TODO payload.
func (c *Client) CreateTodo(ctx context.Context, data any) (*models.Todo, error) {
	var todo models.Todo
	if err := c.call(ctx, protocol.CreateTodo, data, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// UpdateTodo forwards data verbatim as the UPDATE_TODO payload. data must
// carry the todo id.
func (c *Client) UpdateTodo(ctx context.Context, data any) (*models.Todo, error) {
	var todo models.Todo
	if err := c.call(ctx, protocol.UpdateTodo, data, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// DeleteTodo forwards data verbatim as the DELETE_TODO payload.
func (c *Client) DeleteTodo(ctx context.Context, data any) error {
	_, err := c.SendCommand(ctx, protocol.DeleteTodo, data)
	return err
}

// Health queries backend liveness.
func (c *Client) Health(ctx context.Context) (*models.BackendHealth, error) {
	var health models.BackendHealth
	if err := c.call(ctx, protocol.Health, nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *Client) call(ctx context.Context, cmd protocol.Command, data, out any) error {
	raw, err := c.SendCommand(ctx, cmd, data)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s result: %w", cmd, err)
	}
	return nil
}
