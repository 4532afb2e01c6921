package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/fentz26/sockdo/internal/backend"
	"github.com/fentz26/sockdo/internal/store"
	"github.com/spf13/cobra"
)

var socketFlag string

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Start the todo backend on a Unix domain socket",
	Long:  `Starts the backend service which holds the todo list in memory and answers commands on a Unix domain socket.`,
	RunE:  runBackend,
}

func init() {
	backendCmd.Flags().StringVar(&socketFlag, "socket", "", "Socket path (overrides config)")
}

func runBackend(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(backend.ServiceName)
	if err != nil {
		return err
	}
	socketPath := cfg.SocketPath
	if socketFlag != "" {
		socketPath = socketFlag
	}

	s, err := store.New()
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error("store close failed", "error", err)
		}
	}()

	service := backend.NewService(s, logger)
	server := backend.NewServer(service, socketPath, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Serve(ctx); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
