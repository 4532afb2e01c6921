package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strings"
	"unicode"

	"github.com/fentz26/sockdo/internal/models"
	"github.com/gin-gonic/gin"
)

// Fixed error bodies.
const (
	errFetchTodos       = "Failed to fetch todos"
	errBackendNotViaUDS = "Backend not available via UDS"
	errBodyTooLarge     = "request entity too large"
)

// MaxBodySize caps JSON request bodies. Every body fits in one backend frame.
const MaxBodySize = 100 << 10

// --- Todo Handlers ---

func (s *Server) listTodos(c *gin.Context) {
	todos, err := s.backend.ListTodos(c.Request.Context())
	if err != nil {
		s.requestLog(c).Error("error fetching todos", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errFetchTodos})
		return
	}
	c.JSON(http.StatusOK, todos)
}

func (s *Server) createTodo(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	todo, err := s.backend.CreateTodo(c.Request.Context(), body)
	if err != nil {
		s.requestLog(c).Warn("error creating todo", "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, todo)
}

func (s *Server) updateTodo(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}
	data := map[string]any{"id": parseIntParam(c.Param("id"))}
	for k, v := range body {
		data[k] = v
	}

	todo, err := s.backend.UpdateTodo(c.Request.Context(), data)
	if err != nil {
		s.requestLog(c).Warn("error updating todo", "err", err)
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, todo)
}

func (s *Server) deleteTodo(c *gin.Context) {
	data := map[string]any{"id": parseIntParam(c.Param("id"))}
	if err := s.backend.DeleteTodo(c.Request.Context(), data); err != nil {
		s.requestLog(c).Warn("error deleting todo", "err", err)
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Health ---

func (s *Server) health(c *gin.Context) {
	backend, err := s.backend.Health(c.Request.Context())
	if err != nil {
		s.requestLog(c).Warn("backend health check failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, models.GatewayHealth{
			Status:  "ERROR",
			Service: ServiceName,
			Error:   errBackendNotViaUDS,
		})
		return
	}
	c.JSON(http.StatusOK, models.GatewayHealth{
		Status:  "OK",
		Service: ServiceName,
		Backend: backend,
	})
}

// --- Helpers ---

// readBody reads the request body as a JSON object. Bodies that are not
// declared as application/json, or that are empty, malformed or not objects,
// yield an empty object. A body over MaxBodySize is answered with 413 and ok
// is false.
func (s *Server) readBody(c *gin.Context) (map[string]json.RawMessage, bool) {
	obj, err := readObject(c)
	if err != nil {
		s.requestLog(c).Warn("rejecting request body", "err", err)
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": errBodyTooLarge})
		return nil, false
	}
	return obj, true
}

func readObject(c *gin.Context) (map[string]json.RawMessage, error) {
	obj := map[string]json.RawMessage{}
	if c.Request.Body == nil || c.ContentType() != "application/json" {
		return obj, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return obj, nil
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return obj, nil
	}
	if err := json.Unmarshal(body, &obj); err != nil {
		return map[string]json.RawMessage{}, nil
	}
	return obj, nil
}

// parseIntParam reads a leading integer the way a browser's parseInt does:
// leading whitespace, an optional sign, then decimal digits (or 0x-prefixed
// hex digits). Trailing junk is ignored. It returns nil when no digits are
// found or the value does not fit in an int64, and nil matches no todo.
func parseIntParam(s string) *int64 {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)

	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	base := uint64(10)
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		s = s[2:]
	}

	var n uint64
	digits := 0
	for _, r := range s {
		d, ok := digitValue(r, base)
		if !ok {
			break
		}
		if n > (math.MaxInt64-d)/base {
			return nil
		}
		n = n*base + d
		digits++
	}
	if digits == 0 {
		return nil
	}

	v := int64(n)
	if neg {
		v = -v
	}
	return &v
}

func digitValue(r rune, base uint64) (uint64, bool) {
	var d uint64
	switch {
	case r >= '0' && r <= '9':
		d = uint64(r - '0')
	case r >= 'a' && r <= 'f':
		d = uint64(r-'a') + 10
	case r >= 'A' && r <= 'F':
		d = uint64(r-'A') + 10
	default:
		return 0, false
	}
	return d, d < base
}
