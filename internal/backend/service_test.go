package backend

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/fentz26/sockdo/internal/models"
	"github.com/fentz26/sockdo/internal/protocol"
	"github.com/fentz26/sockdo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.New()
	require.NoError(t, err, "Failed to create store")
	t.Cleanup(func() { st.Close() })
	return NewService(st, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func handle(t *testing.T, svc *Service, command string, data any, id int64) protocol.Response {
	t.Helper()
	req := &protocol.Request{Command: command, ID: protocol.Int64(id)}
	if data != nil {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		req.Data = raw
	}
	return svc.Handle(context.Background(), req)
}

func decodeTodo(t *testing.T, resp protocol.Response) models.Todo {
	t.Helper()
	require.True(t, resp.Success, "unexpected failure: %s", resp.Error)
	var todo models.Todo
	require.NoError(t, json.Unmarshal(resp.Data, &todo))
	return todo
}

func decodeTodos(t *testing.T, resp protocol.Response) []models.Todo {
	t.Helper()
	require.True(t, resp.Success, "unexpected failure: %s", resp.Error)
	var todos []models.Todo
	require.NoError(t, json.Unmarshal(resp.Data, &todos))
	return todos
}

func TestCreateThenGet_GrowsByOneWithGreaterID(t *testing.T) {
	svc := newTestService(t)

	var maxID int64
	for i, title := range []string{"a", "b", "c"} {
		before := decodeTodos(t, handle(t, svc, "GET_TODOS", nil, 1))

		created := decodeTodo(t, handle(t, svc, "CREATE_TODO", map[string]any{"title": title}, 2))
		assert.Greater(t, created.ID, maxID)
		assert.False(t, created.Completed)
		assert.Equal(t, title, created.Title)
		maxID = created.ID

		after := decodeTodos(t, handle(t, svc, "GET_TODOS", nil, 3))
		assert.Len(t, after, len(before)+1, "iteration %d", i)
		for _, prev := range before {
			assert.Greater(t, created.ID, prev.ID)
		}
	}
}

func TestCreateTodo_TitleRequired(t *testing.T) {
	svc := newTestService(t)

	for _, data := range []any{nil, map[string]any{}, map[string]any{"title": ""}, map[string]any{"title": nil}, map[string]any{"title": 5}} {
		resp := handle(t, svc, "CREATE_TODO", data, 11)
		assert.False(t, resp.Success)
		assert.Equal(t, "Title is required", resp.Error)
		require.NotNil(t, resp.ID)
		assert.Equal(t, int64(11), *resp.ID)
		assert.Nil(t, resp.Data)
	}

	assert.Empty(t, decodeTodos(t, handle(t, svc, "GET_TODOS", nil, 1)))
}

func TestUpdateTodo_PartialFields(t *testing.T) {
	svc := newTestService(t)
	created := decodeTodo(t, handle(t, svc, "CREATE_TODO", map[string]any{"title": "write tests"}, 1))

	done := decodeTodo(t, handle(t, svc, "UPDATE_TODO", map[string]any{"id": created.ID, "completed": true}, 2))
	assert.True(t, done.Completed)
	assert.Equal(t, "write tests", done.Title, "title must survive a completed-only update")

	renamed := decodeTodo(t, handle(t, svc, "UPDATE_TODO", map[string]any{"id": created.ID, "title": "write more tests"}, 3))
	assert.Equal(t, "write more tests", renamed.Title)
	assert.True(t, renamed.Completed, "completed must survive a title-only update")
	assert.True(t, created.CreatedAt.Equal(renamed.CreatedAt.Time), "createdAt is immutable")
}

func TestUpdateTodo_NotFound(t *testing.T) {
	svc := newTestService(t)

	for _, data := range []any{
		map[string]any{"id": 999, "title": "x"},
		map[string]any{"id": "1", "title": "x"},
		map[string]any{"id": nil},
		map[string]any{"title": "no id"},
	} {
		resp := handle(t, svc, "UPDATE_TODO", data, 5)
		assert.False(t, resp.Success)
		assert.Equal(t, "Todo not found", resp.Error)
	}
}

func TestUpdateTodo_IntegralFloatID(t *testing.T) {
	svc := newTestService(t)
	decodeTodo(t, handle(t, svc, "CREATE_TODO", map[string]any{"title": "x"}, 1))

	resp := svc.Handle(context.Background(), &protocol.Request{
		Command: "UPDATE_TODO",
		Data:    json.RawMessage(`{"id":1.0,"completed":true}`),
		ID:      protocol.Int64(2),
	})
	assert.True(t, decodeTodo(t, resp).Completed)
}

func TestDeleteTodo(t *testing.T) {
	svc := newTestService(t)
	keep := decodeTodo(t, handle(t, svc, "CREATE_TODO", map[string]any{"title": "keep"}, 1))
	drop := decodeTodo(t, handle(t, svc, "CREATE_TODO", map[string]any{"title": "drop"}, 2))

	resp := handle(t, svc, "DELETE_TODO", map[string]any{"id": drop.ID}, 3)
	assert.True(t, resp.Success)
	assert.JSONEq(t, "null", string(resp.Data))

	todos := decodeTodos(t, handle(t, svc, "GET_TODOS", nil, 4))
	require.Len(t, todos, 1)
	assert.Equal(t, keep.ID, todos[0].ID)
}

func TestDeleteTodo_MissingIsIdempotentFailure(t *testing.T) {
	svc := newTestService(t)
	decodeTodo(t, handle(t, svc, "CREATE_TODO", map[string]any{"title": "keep"}, 1))
	before := decodeTodos(t, handle(t, svc, "GET_TODOS", nil, 2))

	for i := 0; i < 2; i++ {
		resp := handle(t, svc, "DELETE_TODO", map[string]any{"id": 42}, 3)
		assert.False(t, resp.Success)
		assert.Equal(t, "Todo not found", resp.Error)
	}

	after := decodeTodos(t, handle(t, svc, "GET_TODOS", nil, 4))
	assert.Equal(t, before, after)
}

func TestHealth(t *testing.T) {
	svc := newTestService(t)
	decodeTodo(t, handle(t, svc, "CREATE_TODO", map[string]any{"title": "x"}, 1))

	resp := handle(t, svc, "HEALTH", nil, 7)
	require.True(t, resp.Success)

	var health models.BackendHealth
	require.NoError(t, json.Unmarshal(resp.Data, &health))
	assert.Equal(t, "OK", health.Status)
	assert.Equal(t, "backend", health.Service)
	assert.Equal(t, 1, health.Todos)
	assert.GreaterOrEqual(t, health.Uptime, 0.0)
}

func TestUnknownCommand(t *testing.T) {
	svc := newTestService(t)

	for _, cmd := range []string{"", "get_todos", "DROP_TABLE"} {
		resp := handle(t, svc, cmd, nil, 31)
		assert.False(t, resp.Success)
		assert.Equal(t, "Unknown command", resp.Error)
		require.NotNil(t, resp.ID)
		assert.Equal(t, int64(31), *resp.ID)
	}
}

func TestNonObjectDataActsAsEmpty(t *testing.T) {
	svc := newTestService(t)

	resp := svc.Handle(context.Background(), &protocol.Request{
		Command: "CREATE_TODO",
		Data:    json.RawMessage(`[1,2,3]`),
		ID:      protocol.Int64(1),
	})
	assert.Equal(t, "Title is required", resp.Error)

	resp = svc.Handle(context.Background(), &protocol.Request{
		Command: "GET_TODOS",
		Data:    json.RawMessage(`null`),
		ID:      protocol.Int64(2),
	})
	assert.True(t, resp.Success)
}

func TestStoreFailureIsReported(t *testing.T) {
	st, err := store.New()
	require.NoError(t, err)
	svc := NewService(st, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// Close the store to simulate an internal failure
	st.Close()

	resp := handle(t, svc, "GET_TODOS", nil, 1)
	assert.False(t, resp.Success)
	assert.Equal(t, "Internal error", resp.Error)
}
