// Package backend owns the todo collection and answers protocol commands
// received over a Unix domain socket.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/fentz26/sockdo/internal/models"
	"github.com/fentz26/sockdo/internal/protocol"
	"github.com/fentz26/sockdo/internal/store"
)

// ServiceName is reported by the HEALTH command.
const ServiceName = "backend"

// Service provides the todo business logic.
type Service struct {
	store   *store.Store
	started time.Time
	log     *slog.Logger
}

// NewService creates a new backend service over s.
func NewService(s *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   s,
		started: time.Now(),
		log:     logger,
	}
}

// --- Todo Operations ---

// GetTodos returns the whole collection in insertion order.
func (s *Service) GetTodos(ctx context.Context) ([]models.Todo, error) {
	return s.store.ListTodos(ctx)
}

// CreateTodo appends a todo. The title must be non-empty.
func (s *Service) CreateTodo(ctx context.Context, title string) (*models.Todo, error) {
	if title == "" {
		return nil, ErrTitleRequired
	}
	return s.store.CreateTodo(ctx, title)
}

// UpdateTodo overwrites the provided fields of a todo.
func (s *Service) UpdateTodo(ctx context.Context, id int64, p store.Patch) (*models.Todo, error) {
	todo, err := s.store.UpdateTodo(ctx, id, p)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTodoNotFound
	}
	return todo, err
}

// DeleteTodo removes a todo.
func (s *Service) DeleteTodo(ctx context.Context, id int64) error {
	err := s.store.DeleteTodo(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrTodoNotFound
	}
	return err
}

// Health reports liveness, collection size and process uptime in seconds.
func (s *Service) Health(ctx context.Context) (*models.BackendHealth, error) {
	n, err := s.store.CountTodos(ctx)
	if err != nil {
		return nil, err
	}
	return &models.BackendHealth{
		Status:  "OK",
		Service: ServiceName,
		Todos:   n,
		Uptime:  time.Since(s.started).Seconds(),
	}, nil
}

// --- Dispatch ---

// Handle runs one decoded request and builds its response. It never panics.
func (s *Service) Handle(ctx context.Context, req *protocol.Request) (resp protocol.Response) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("command panicked", "command", req.Command, "panic", r)
			resp = protocol.Fail(req.ID, ErrInternal.Error())
		}
	}()

	s.log.Debug("processing command", "command", req.Command, "id", idAttr(req.ID))

	cmd, ok := protocol.ParseCommand(req.Command)
	if !ok {
		return protocol.Fail(req.ID, ErrUnknownCommand.Error())
	}

	data, err := s.dispatch(ctx, cmd, fieldsOf(req.Data))
	if err != nil {
		return s.failure(req, err)
	}

	resp, err = protocol.OK(req.ID, data)
	if err != nil {
		return s.failure(req, fmt.Errorf("encode result: %w", err))
	}
	return resp
}

func (s *Service) dispatch(ctx context.Context, cmd protocol.Command, f fields) (any, error) {
	switch cmd {
	case protocol.GetTodos:
		return s.GetTodos(ctx)

	case protocol.CreateTodo:
		title, _ := f.string("title")
		return s.CreateTodo(ctx, title)

	case protocol.UpdateTodo:
		id, ok := f.id("id")
		if !ok {
			return nil, ErrTodoNotFound
		}
		var p store.Patch
		if title, ok := f.string("title"); ok {
			p.Title = &title
		}
		if completed, ok := f.bool("completed"); ok {
			p.Completed = &completed
		}
		return s.UpdateTodo(ctx, id, p)

	case protocol.DeleteTodo:
		id, ok := f.id("id")
		if !ok {
			return nil, ErrTodoNotFound
		}
		// A nil interface, not a typed nil, so the response carries data:null.
		return nil, s.DeleteTodo(ctx, id)

	case protocol.Health:
		return s.Health(ctx)
	}
	return nil, ErrUnknownCommand
}

func (s *Service) failure(req *protocol.Request, err error) protocol.Response {
	switch {
	case errors.Is(err, ErrTitleRequired),
		errors.Is(err, ErrTodoNotFound),
		errors.Is(err, ErrUnknownCommand):
		return protocol.Fail(req.ID, err.Error())
	}
	s.log.Error("command failed", "command", req.Command, "id", idAttr(req.ID), "err", err)
	return protocol.Fail(req.ID, ErrInternal.Error())
}

// fields is a command payload viewed as a JSON object. Payloads that are
// absent, null or not objects behave as an empty object.
type fields map[string]json.RawMessage

func fieldsOf(raw json.RawMessage) fields {
	f := fields{}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return f
	}
	if err := json.Unmarshal(raw, &f); err != nil {
		return fields{}
	}
	return f
}

func (f fields) string(key string) (string, bool) {
	raw, ok := f[key]
	if !ok {
		return "", false
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", false
	}
	return v, true
}

func (f fields) bool(key string) (bool, bool) {
	raw, ok := f[key]
	if !ok {
		return false, false
	}
	var v *bool
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return false, false
	}
	return *v, true
}

// id reads an integral JSON number. Values such as 2.0 are accepted; strings,
// fractions and null are not ids.
func (f fields) id(key string) (int64, bool) {
	raw, ok := f[key]
	if !ok {
		return 0, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	fl, err := n.Float64()
	if err != nil || fl != math.Trunc(fl) || math.Abs(fl) > math.MaxInt64 {
		return 0, false
	}
	return int64(fl), true
}

func idAttr(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
