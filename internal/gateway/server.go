// Package gateway exposes the todo backend as a REST API over HTTP.
package gateway

import (
	"context"
	_ "embed"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/fentz26/sockdo/internal/models"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// ServiceName is reported by the /health endpoint.
const ServiceName = "frontend"

//go:embed static/index.html
var indexHTML []byte

// Backend is the subset of the UDS client the gateway needs.
type Backend interface {
	ListTodos(ctx context.Context) ([]models.Todo, error)
	CreateTodo(ctx context.Context, data any) (*models.Todo, error)
	UpdateTodo(ctx context.Context, data any) (*models.Todo, error)
	DeleteTodo(ctx context.Context, data any) error
	Health(ctx context.Context) (*models.BackendHealth, error)
}

// Server provides the HTTP API for sockdo.
type Server struct {
	backend Backend
	addr    string
	log     *slog.Logger
	server  *http.Server
}

// NewServer creates a new HTTP gateway in front of backend.
func NewServer(backend Backend, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		backend: backend,
		addr:    addr,
		log:     logger,
	}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler builds the gin router.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(accessLog(s.log))

	// Enable CORS for local frontends
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/", s.index)
	router.GET("/health", s.health)

	api := router.Group("/api")
	{
		api.GET("/todos", s.listTodos)
		api.POST("/todos", s.createTodo)
		api.PUT("/todos/:id", s.updateTodo)
		api.DELETE("/todos/:id", s.deleteTodo)
	}

	return router
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	s.log.Info("gateway listening", "url", "http://"+displayAddr(s.addr))
	return s.server.ListenAndServe()
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("gateway listening", "url", "http://"+ln.Addr().String())
	return s.server.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func displayAddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || host != "" {
		return addr
	}
	return net.JoinHostPort("localhost", port)
}

func (s *Server) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}
