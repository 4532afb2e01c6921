// Package protocol defines the newline-delimited JSON envelopes exchanged
// between the gateway and the backend over a Unix domain socket.
package protocol

import (
	"encoding/json"
	"errors"
)

// Command names a backend operation. The set is closed; use ParseCommand to
// map a wire string onto it.
type Command string

const (
	GetTodos   Command = "GET_TODOS"
	CreateTodo Command = "CREATE_TODO"
	UpdateTodo Command = "UPDATE_TODO"
	DeleteTodo Command = "DELETE_TODO"
	Health     Command = "HEALTH"
)

var commands = map[Command]struct{}{
	GetTodos:   {},
	CreateTodo: {},
	UpdateTodo: {},
	DeleteTodo: {},
	Health:     {},
}

// ParseCommand reports whether s names a known command. Matching is exact and
// case-sensitive.
func ParseCommand(s string) (Command, bool) {
	c := Command(s)
	_, ok := commands[c]
	return c, ok
}

// Request is the envelope sent by a caller.
type Request struct {
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data,omitempty"`
	ID      *int64          `json:"id"`
}

// Response is the envelope returned by the backend. A nil ID encodes as
// null and means the request could not be parsed.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	ID      *int64          `json:"id"`
}

var nullData = json.RawMessage("null")

// OK builds a successful response carrying v as data. A nil v is sent as
// an explicit null.
func OK(id *int64, v any) (Response, error) {
	if v == nil {
		return Response{Success: true, Data: nullData, ID: id}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return Response{}, err
	}
	return Response{Success: true, Data: raw, ID: id}, nil
}

// Fail builds a failed response.
func Fail(id *int64, msg string) Response {
	return Response{Success: false, Error: msg, ID: id}
}

// Int64 returns a pointer to v, for filling envelope ids.
func Int64(v int64) *int64 { return &v }

// Sentinel errors for framing.
var (
	ErrInvalidFrame  = errors.New("invalid frame")
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
)
