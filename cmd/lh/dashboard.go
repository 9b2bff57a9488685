package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/linkhoard/linkhoard/internal/config"
	"github.com/linkhoard/linkhoard/internal/dashboard"
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	GroupID: "advanced",
	Short:   "Start the real-time sync dashboard",
	Long: `Start a WebSocket dashboard server for watching sync activity.

The server broadcasts sync lifecycle events to every connected client:
- sync_started: a push or pull began
- item_synced: a collection or link was uploaded
- item_failed: an upload failed
- sync_complete: the batch finished, with counts and duration
- stats: store totals and pending counts

Example usage:
  lh dashboard                # default port 7317
  lh dashboard --port 9000

Connect with a WebSocket client:
  ws://localhost:7317/ws`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		_, cfg := loadConfig()

		port := cfg.DashboardPort
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		server := dashboard.NewServer(&dashboard.Config{
			Port:   port,
			Logger: config.NewLogger(cfg, "[dashboard] "),
		})

		if err := server.Start(); err != nil {
			fatalf("starting dashboard: %v", err)
		}

		fmt.Printf("Dashboard server started on http://localhost:%d\n", port)
		fmt.Printf("WebSocket endpoint: ws://localhost:%d/ws\n", port)
		fmt.Printf("Health check: http://localhost:%d/health\n", port)
		fmt.Println("\nPress Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		<-ctx.Done()

		fmt.Println("\nShutting down dashboard server...")
		if err := server.Stop(); err != nil {
			fatalf("during shutdown: %v", err)
		}
		fmt.Println("Dashboard server stopped")
	},
}

func init() {
	dashboardCmd.Flags().Int("port", config.DefaultDashboardPort, "Dashboard server port")

	rootCmd.AddCommand(dashboardCmd)
}
