package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/linkhoard/linkhoard/internal/config"
	"github.com/linkhoard/linkhoard/internal/daemon"
	"github.com/linkhoard/linkhoard/internal/dashboard"
	"github.com/linkhoard/linkhoard/internal/remote"
	"github.com/linkhoard/linkhoard/internal/sync"
	"github.com/linkhoard/linkhoard/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "advanced",
	Short:   "Watch a drop directory and sync in the background",
	Long: `Run the linkhoard daemon in the foreground.

The daemon watches the configured import directory for dropped .json/.jsonl
candidate files, ingests them into the local store, and periodically pushes
pending changes to the remote service. Processed files are renamed with a
.done (or .err) suffix.

With --dashboard the daemon also serves the WebSocket dashboard and streams
sync progress to connected clients.

Example usage:
  lh daemon
  lh daemon --import-dir ~/Drop/links --dashboard`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		loader, cfg := loadConfig()

		importDir, _ := cmd.Flags().GetString("import-dir")
		if importDir == "" {
			importDir = cfg.ImportDir
		}
		if importDir == "" {
			fatalf("no import directory configured (set import_dir or pass --import-dir)")
		}

		st := openStore(cfg)
		defer st.Close()

		logger := config.NewLogger(cfg, "[sync] ")
		client := remote.NewHTTPClient(cfg.APIBaseURL, cfg.APIToken, logger)
		opts := sync.Options{
			ImmediateSync: loader.ImmediateSync,
			RateStatus:    client.Limiter().Status,
			Logger:        logger,
		}

		var server *dashboard.Server
		if withDashboard, _ := cmd.Flags().GetBool("dashboard"); withDashboard {
			server = dashboard.NewServer(&dashboard.Config{
				Port:   cfg.DashboardPort,
				Logger: config.NewLogger(cfg, "[dashboard] "),
			})
			if err := server.Start(); err != nil {
				fatalf("starting dashboard: %v", err)
			}
			fmt.Printf("Dashboard: ws://localhost:%d/ws\n", cfg.DashboardPort)
			opts.Notifier = dashboard.NewNotifier(server, st, config.NewLogger(cfg, "[dashboard] "))
		}

		engine := sync.New(st, client, opts)

		dcfg := daemon.DefaultConfig()
		dcfg.AutoPushInterval = cfg.AutoPushInterval
		dcfg.Logger = config.NewLogger(cfg, "[daemon] ")

		d, err := daemon.NewWithConfig(engine, importDir, dcfg)
		if err != nil {
			fatalf("%v", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		fmt.Printf("Watching %s %s\n", importDir, ui.RenderMuted("(Ctrl+C to stop)"))
		if err := d.Start(ctx); err != nil {
			fatalf("%v", err)
		}

		fmt.Println("\nShutting down...")
		if server != nil {
			if err := server.Stop(); err != nil {
				fmt.Fprintf(os.Stderr, "Error stopping dashboard: %v\n", err)
			}
		}
	},
}

func init() {
	daemonCmd.Flags().String("import-dir", "", "Drop directory to watch (default: import_dir from config)")
	daemonCmd.Flags().Bool("dashboard", false, "Also serve the WebSocket dashboard")

	rootCmd.AddCommand(daemonCmd)
}
