// Package client sends protocol commands to the backend over a Unix domain
// socket, one connection per command.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fentz26/sockdo/internal/protocol"
)

// DefaultTimeout bounds a single command exchange.
const DefaultTimeout = 5 * time.Second

// ErrTimeout is returned when no matching response arrives in time.
var ErrTimeout = errors.New("Request timeout")

// CommandError carries the error string of a failed response.
type CommandError struct {
	Command protocol.Command
	Message string
}

func (e *CommandError) Error() string {
	return e.Message
}

// DialFunc opens a connection to the backend.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Client issues commands to the backend at a socket path. It is safe for
// concurrent use; calls share nothing but the correlation id counter.
type Client struct {
	socketPath string
	timeout    time.Duration
	dial       DialFunc
	log        *slog.Logger
	nextID     atomic.Int64
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithDialer replaces the default net.Dialer.
func WithDialer(dial DialFunc) Option {
	return func(c *Client) { c.dial = dial }
}

// WithLogger sets the logger for dropped or unmatched frames.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a client for the backend listening on socketPath.
func New(socketPath string, opts ...Option) *Client {
	var d net.Dialer
	c := &Client{
		socketPath: socketPath,
		timeout:    DefaultTimeout,
		dial:       d.DialContext,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SocketPath returns the backend socket path.
func (c *Client) SocketPath() string {
	return c.socketPath
}

// SendCommand opens a connection, sends cmd with data and waits for the
// response carrying the same correlation id. It returns the response data on
// success, a *CommandError when the backend reports a failure, ErrTimeout when
// the deadline passes, or the transport error.
func (c *Client) SendCommand(ctx context.Context, cmd protocol.Command, data any) (json.RawMessage, error) {
	payload, err := encodeData(data)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dial(ctx, "unix", c.socketPath)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("connect to backend: %w", err)
	}

	s := newSession(conn, c.log)
	defer s.close()

	id := c.nextID.Add(1)
	ch := s.register(id)

	go s.readLoop()

	req := protocol.Request{Command: string(cmd), Data: payload, ID: protocol.Int64(id)}
	if err := protocol.WriteFrame(conn, req); err != nil {
		return nil, fmt.Errorf("send %s: %w", cmd, err)
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		if !res.resp.Success {
			return nil, &CommandError{Command: cmd, Message: res.resp.Error}
		}
		return res.resp.Data, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}

func encodeData(data any) (json.RawMessage, error) {
	switch v := data.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case json.RawMessage:
		if len(v) == 0 {
			return json.RawMessage("{}"), nil
		}
		return v, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode command data: %w", err)
	}
	return raw, nil
}

type result struct {
	resp *protocol.Response
	err  error
}

// session is one connection with its table of outstanding requests.
// Responses are routed by correlation id; ids nobody waits for are dropped.
type session struct {
	conn net.Conn
	log  *slog.Logger

	mu      sync.Mutex
	pending map[int64]chan result
	closed  bool
}

func newSession(conn net.Conn, logger *slog.Logger) *session {
	return &session{
		conn:    conn,
		log:     logger,
		pending: make(map[int64]chan result),
	}
}

func (s *session) register(id int64) <-chan result {
	ch := make(chan result, 1)
	s.mu.Lock()
	s.pending[id] = ch
	s.mu.Unlock()
	return ch
}

// resolve completes the pending call for resp.ID. It reports whether one
// was waiting.
func (s *session) resolve(resp *protocol.Response) bool {
	if resp.ID == nil {
		return false
	}
	s.mu.Lock()
	ch, ok := s.pending[*resp.ID]
	if ok {
		delete(s.pending, *resp.ID)
	}
	s.mu.Unlock()

	if ok {
		ch <- result{resp: resp}
	}
	return ok
}

// failAll completes every pending call with err.
func (s *session) failAll(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.pending {
		ch <- result{err: err}
		delete(s.pending, id)
	}
}

func (s *session) readLoop() {
	// A GET_TODOS reply carries the whole collection in one frame.
	dec := protocol.NewDecoderSize(0)
	buf := make([]byte, 4096)
	for {
		n, readErr := s.conn.Read(buf)
		if n > 0 {
			segments, feedErr := dec.Feed(buf[:n])
			for _, seg := range segments {
				resp, err := protocol.DecodeResponse(seg)
				if err != nil {
					s.failAll(fmt.Errorf("decode response: %w", err))
					return
				}
				if !s.resolve(resp) && resp.ID != nil {
					s.log.Debug("ignoring response without pending request", "id", *resp.ID)
				}
			}
			if feedErr != nil {
				s.failAll(fmt.Errorf("decode response: %w", feedErr))
				return
			}
		}
		if readErr != nil {
			if s.isClosed() {
				return
			}
			if errors.Is(readErr, io.EOF) {
				readErr = io.ErrUnexpectedEOF
			}
			s.failAll(fmt.Errorf("read from backend: %w", readErr))
			return
		}
	}
}

func (s *session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.conn.Close()
}
