package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fentz26/sockdo/internal/client"
	"github.com/fentz26/sockdo/internal/gateway"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the HTTP gateway",
	Long:  `Starts the HTTP gateway which serves the REST API and the web page, forwarding each request to the backend over its Unix domain socket.`,
	RunE:  runGateway,
}

func init() {
	gatewayCmd.Flags().StringVar(&socketFlag, "socket", "", "Backend socket path (overrides config)")
}

func runGateway(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(gateway.ServiceName)
	if err != nil {
		return err
	}
	socketPath := cfg.SocketPath
	if socketFlag != "" {
		socketPath = socketFlag
	}

	c := client.New(socketPath,
		client.WithTimeout(cfg.RequestTimeout),
		client.WithLogger(logger),
	)
	server := gateway.NewServer(c, cfg.HTTPAddr(), logger)

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	serverErr := make(chan error, 1)
	go func() {
		err := server.Start()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	logger.Info("shutdown complete")
	return nil
}
