package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/linkhoard/linkhoard/internal/config"
	"github.com/linkhoard/linkhoard/internal/remote"
	"github.com/linkhoard/linkhoard/internal/store"
	"github.com/linkhoard/linkhoard/internal/sync"
	"github.com/linkhoard/linkhoard/internal/ui"
)

var (
	configDirFlag string
	noColorFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "lh",
	Short: "Local-first bookmark manager with remote sync",
	Long: `linkhoard keeps your bookmarks in a local SQLite database and syncs
them with a remote bookmark service.

Every change lands locally first; whether it is uploaded immediately or
queued for a manual 'lh push' depends on the immediate_sync setting.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColorFlag {
			ui.SetColorEnabled(false)
		}
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "", "Config directory (default: per-user config dir)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "links", Title: "Link commands:"},
		&cobra.Group{ID: "collections", Title: "Collection commands:"},
		&cobra.Group{ID: "sync", Title: "Sync commands:"},
		&cobra.Group{ID: "advanced", Title: "Advanced commands:"},
	)
}

// fatalf prints an error and exits.
func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// loadConfig resolves the loader and config for the current invocation.
func loadConfig() (*config.Loader, *config.Config) {
	loader, err := config.NewLoader(configDirFlag)
	if err != nil {
		fatalf("%v", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		fatalf("%v", err)
	}
	return loader, cfg
}

// openStore opens and initializes the local database.
func openStore(cfg *config.Config) *store.Store {
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		fatalf("opening database: %v", err)
	}
	if err := st.InitSchema(context.Background()); err != nil {
		st.Close()
		fatalf("initializing database: %v", err)
	}
	return st
}

// newEngine wires a sync engine from the config: store, HTTP client, rate
// limiter, and the live strategy preference.
func newEngine(loader *config.Loader, cfg *config.Config, extra ...sync.Notifier) (*sync.Engine, *store.Store) {
	st := openStore(cfg)

	logger := config.NewLogger(cfg, "[sync] ")
	client := remote.NewHTTPClient(cfg.APIBaseURL, cfg.APIToken, logger)

	opts := sync.Options{
		ImmediateSync: loader.ImmediateSync,
		RateStatus:    client.Limiter().Status,
		Logger:        logger,
	}
	if len(extra) > 0 {
		opts.Notifier = extra[0]
	}

	return sync.New(st, client, opts), st
}

// reportResult prints the sync outcome of a local mutation.
func reportResult(res sync.SyncResult) {
	switch res.Type {
	case sync.ResultImmediateSuccess:
		fmt.Printf("%s Synced\n", ui.RenderPass("✓"))
	case sync.ResultManualQueued:
		fmt.Printf("%s Saved locally %s\n", ui.RenderPass("✓"), ui.RenderMuted("(queued, run 'lh push' to upload)"))
	case sync.ResultImmediatePartialFailure:
		fmt.Printf("%s Saved locally, %d item(s) failed to sync: %s\n",
			ui.RenderWarn("⚠"), len(res.FailedItemIDs), res.Err)
	case sync.ResultImmediateFailure:
		fmt.Printf("%s Saved locally, sync failed: %s\n", ui.RenderWarn("⚠"), res.Err)
		fmt.Printf("  %s\n", ui.RenderMuted("The change stays queued; 'lh push' will retry."))
	}
}
