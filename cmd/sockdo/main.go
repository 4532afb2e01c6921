package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fentz26/sockdo/internal/config"
	"github.com/fentz26/sockdo/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sockdo",
	Short: "sockdo - todo list over a Unix socket",
	Long: `sockdo runs a todo backend that speaks newline-delimited JSON over a Unix
domain socket, and an HTTP gateway that exposes it as a REST API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if !cmd.Flags().Changed("api") {
			apiAddr = cfg.GatewayURL
		}
		return nil
	},
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	configPath string
	apiAddr    string
	cfg        *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (default $"+config.EnvConfigFile+")")
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", config.Default().GatewayURL, "Gateway address")

	// Add subcommands
	rootCmd.AddCommand(backendCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(todoCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(tuiCmd)
}

// newLogger builds the process logger and installs it as the slog default.
func newLogger(process string) (*slog.Logger, error) {
	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat, process)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
