package main

import (
	"fmt"

	"github.com/fentz26/sockdo/internal/apiclient"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show gateway and backend health",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	health, err := apiclient.New(apiAddr).CheckHealth(cmd.Context())
	out := cmd.OutOrStdout()
	if health != nil {
		fmt.Fprintf(out, "Gateway:  %s (%s)\n", health.Status, health.Service)
		if b := health.Backend; b != nil {
			fmt.Fprintf(out, "Backend:  %s (%s)\n", b.Status, b.Service)
			fmt.Fprintf(out, "Todos:    %d\n", b.Todos)
			fmt.Fprintf(out, "Uptime:   %.1fs\n", b.Uptime)
		} else if health.Error != "" {
			fmt.Fprintf(out, "Backend:  %s\n", health.Error)
		}
	}
	return err
}
