package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/auto-dns/container-status-sync/internal/app"
	"github.com/auto-dns/container-status-sync/internal/logger"
	"github.com/auto-dns/container-status-sync/internal/proxy"
)

var proxyCmd = &cobra.Command{
	Use:       "proxy {start|stop|restart} SERVER_ID",
	Short:     "Start, stop or restart the reverse proxy on a server",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"start", "stop", "restart"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFrom(cmd)
		log := logger.SetupLogger(&cfg.Logging)

		force, _ := cmd.Flags().GetBool("force")
		timeout, _ := cmd.Flags().GetInt("timeout")

		a, err := app.New(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to create app: %w", err)
		}
		return runProxyAction(cmd, a, args[0], args[1], proxy.StopOptions{Force: force, Timeout: timeout})
	},
}

func runProxyAction(cmd *cobra.Command, a proxyApplication, action, serverID string, opts proxy.StopOptions) error {
	defer a.CloseStore()
	defer a.Close()
	if err := a.ProxyAction(cmd.Context(), action, serverID, opts); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "proxy %s on %s: ok\n", action, serverID)
	return err
}

func init() {
	proxyCmd.Flags().Bool("force", false, "mark the proxy as intentionally stopped (stop only)")
	proxyCmd.Flags().Int("timeout", 0, "seconds to wait for a graceful stop (default from config)")
}
