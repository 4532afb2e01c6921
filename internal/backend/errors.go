package backend

import "errors"

// Sentinel errors for backend commands. Their messages are sent verbatim as
// the error field of a failed response.
var (
	ErrTitleRequired  = errors.New("Title is required")
	ErrTodoNotFound   = errors.New("Todo not found")
	ErrUnknownCommand = errors.New("Unknown command")
	ErrInvalidMessage = errors.New("Invalid message format")
	ErrInternal       = errors.New("Internal error")
)
