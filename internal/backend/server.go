package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/fentz26/sockdo/internal/protocol"
)

// SocketMode lets any local user, including the gateway process, connect.
const SocketMode os.FileMode = 0o666

const readBufferSize = 4096

// Server accepts protocol connections on a Unix domain socket.
type Server struct {
	service    *Service
	socketPath string
	log        *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// NewServer creates a server for service bound to socketPath.
func NewServer(service *Service, socketPath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		service:    service,
		socketPath: socketPath,
		log:        logger,
		conns:      make(map[net.Conn]struct{}),
	}
}

// SocketPath returns the filesystem path the server binds.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Listen removes a stale socket file, binds the socket and opens its
// permissions. Serve calls it when it has not been called yet.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}
	if s.closed {
		return net.ErrClosed
	}

	if err := removeSocket(s.socketPath); err != nil {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, SocketMode); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	s.listener = ln
	return nil
}

// Serve accepts connections until ctx is cancelled or Close is called. It
// returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	s.log.Info("backend listening", "socket", s.socketPath)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-stop:
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				break
			}
			s.Close()
			return fmt.Errorf("accept: %w", err)
		}
		if !s.track(conn) {
			conn.Close()
			break
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handleConn(ctx, conn)
		}()
	}

	s.wg.Wait()
	return nil
}

// Close stops accepting, drops open connections and removes the socket file.
// In-flight requests may be cut off.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.listener
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	if rmErr := removeSocket(s.socketPath); rmErr != nil && err == nil {
		err = rmErr
	}
	s.log.Info("backend stopped", "socket", s.socketPath)
	return err
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) track(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	c.Close()
}

// handleConn reads frames in arrival order and answers each on the same
// connection. Bad frames are reported and the connection keeps serving.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	s.log.Info("client connected")
	defer s.log.Info("client disconnected")

	dec := protocol.NewDecoder()
	buf := make([]byte, readBufferSize)

	for {
		n, readErr := conn.Read(buf)
		if n > 0 {
			segments, feedErr := dec.Feed(buf[:n])
			for _, seg := range segments {
				resp := s.process(ctx, seg)
				if err := protocol.WriteFrame(conn, resp); err != nil {
					if !s.isClosed() {
						s.log.Warn("write response failed", "err", err)
					}
					return
				}
			}
			if feedErr != nil {
				s.log.Warn("discarding oversized frame", "err", feedErr)
				if err := protocol.WriteFrame(conn, protocol.Fail(nil, ErrInvalidMessage.Error())); err != nil {
					return
				}
			}
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) && !s.isClosed() {
				s.log.Warn("socket error", "err", readErr)
			}
			return
		}
	}
}

func (s *Server) process(ctx context.Context, seg []byte) protocol.Response {
	req, err := protocol.DecodeRequest(seg)
	if err != nil {
		s.log.Warn("invalid message", "err", err)
		return protocol.Fail(nil, ErrInvalidMessage.Error())
	}
	return s.service.Handle(ctx, req)
}

func removeSocket(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
