package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/fentz26/sockdo/internal/apiclient"
	"github.com/fentz26/sockdo/internal/tui"
	"github.com/spf13/cobra"
)

var noStart bool

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive TUI",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().BoolVar(&noStart, "no-start", false, "Do not start the backend and gateway when they are down")
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !noStart {
		if err := ensureServices(); err != nil {
			return err
		}
	}

	app := tui.New(apiclient.New(apiAddr))
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// ensureServices starts the backend and the gateway in the background when
// they are not reachable.
func ensureServices() error {
	if !isBackendRunning(cfg.SocketPath) {
		fmt.Println("Backend not running. Starting background service...")
		if err := startDetached("backend"); err != nil {
			return fmt.Errorf("failed to start backend: %w", err)
		}
		if err := waitFor("backend", func() bool { return isBackendRunning(cfg.SocketPath) }); err != nil {
			return err
		}
	}
	if !isGatewayRunning(apiAddr) {
		fmt.Println("Gateway not running. Starting background service...")
		if err := startDetached("gateway"); err != nil {
			return fmt.Errorf("failed to start gateway: %w", err)
		}
		if err := waitFor("gateway", func() bool { return isGatewayRunning(apiAddr) }); err != nil {
			return fmt.Errorf("%w at %s", err, apiAddr)
		}
	}
	return nil
}

func isBackendRunning(socketPath string) bool {
	conn, err := net.DialTimeout("unix", socketPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func isGatewayRunning(addr string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

func startDetached(process string) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	args := []string{process}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	cmd := exec.Command(exe, args...)
	// Detach process so it survives TUI exit
	configureDaemonProc(cmd)

	// Output would draw over the TUI.
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

func waitFor(name string, ready func() bool) error {
	fmt.Printf("   Waiting for %s...", name)
	for i := 0; i < 20; i++ { // Wait up to 5 seconds
		if ready() {
			fmt.Println(" Done.")
			return nil
		}
		time.Sleep(250 * time.Millisecond)
		fmt.Print(".")
	}
	fmt.Println(" Timeout!")
	return fmt.Errorf("%s started but not reachable", name)
}
