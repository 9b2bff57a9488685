package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/linkhoard/linkhoard/internal/config"
	"github.com/linkhoard/linkhoard/internal/remote"
	"github.com/linkhoard/linkhoard/internal/ui"
)

var pushCmd = &cobra.Command{
	Use:     "push",
	GroupID: "sync",
	Short:   "Upload pending local changes",
	Long: `Upload every pending collection and link to the remote service.

Collections go first, then links. A per-item failure is reported and the
rest of the batch continues; failed items stay pending for the next push.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		loader, cfg := loadConfig()
		engine, st := newEngine(loader, cfg)
		defer st.Close()

		result, err := engine.SyncUp(context.Background())
		if err != nil {
			fatalf("%v", err)
		}

		if result.CollectionsSynced == 0 && result.LinksSynced == 0 && len(result.Errors) == 0 {
			fmt.Println(ui.RenderMuted("Nothing to push"))
			return
		}

		fmt.Printf("%s Pushed %d collection(s), %d link(s)\n",
			ui.RenderPass("✓"), result.CollectionsSynced, result.LinksSynced)
		for _, e := range result.Errors {
			fmt.Printf("%s %s\n", ui.RenderFail("✗"), e.Error())
		}
		if len(result.Errors) > 0 {
			fmt.Printf("%s\n", ui.RenderMuted(fmt.Sprintf("%d item(s) stay queued; 'lh push' will retry them.", len(result.Errors))))
		}
	},
}

var pullCmd = &cobra.Command{
	Use:     "pull",
	GroupID: "sync",
	Short:   "Download remote bookmarks into the local store",
	Long: `Download the remote collections and links and merge them locally.
Remote wins on matched URLs; local created_at timestamps are preserved.

When local changes are still pending, pull stops and asks what to do:
abort, push first, or overwrite. Use --force to skip the prompt and
accept the overwrite.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		loader, cfg := loadConfig()
		engine, st := newEngine(loader, cfg)
		defer st.Close()

		ctx := context.Background()
		force, _ := cmd.Flags().GetBool("force")

		if !force {
			counts, err := engine.UnsyncedCounts(ctx)
			if err != nil {
				fatalf("%v", err)
			}
			if counts.Total() > 0 {
				fmt.Printf("%s %d collection(s) and %d link(s) have unpushed local changes.\n",
					ui.RenderWarn("⚠"), counts.Collections, counts.Links)

				switch promptConflict() {
				case conflictAbort:
					fmt.Println(ui.RenderMuted("Pull aborted"))
					return
				case conflictPushFirst:
					result, err := engine.SyncUp(ctx)
					if err != nil {
						fatalf("%v", err)
					}
					if len(result.Errors) > 0 {
						fatalf("push left %d item(s) unsynced; resolve them before pulling", len(result.Errors))
					}
					fmt.Printf("%s Pushed %d collection(s), %d link(s)\n",
						ui.RenderPass("✓"), result.CollectionsSynced, result.LinksSynced)
				case conflictOverwrite:
					force = true
				}
			}
		}

		result, err := engine.SyncDown(ctx, force)
		if err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("%s Pulled %d link(s)\n", ui.RenderPass("✓"), result.LinksPulled)
		for _, e := range result.Errors {
			fmt.Printf("%s %s\n", ui.RenderFail("✗"), e.Error())
		}
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show sync status",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		loader, cfg := loadConfig()
		st := openStore(cfg)
		defer st.Close()

		client := remote.NewHTTPClient(cfg.APIBaseURL, cfg.APIToken, config.NewLogger(cfg, "[sync] "))

		ctx := context.Background()

		totalLinks, err := st.CountLinks(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		totalCollections, err := st.CountCollections(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		pendingCollections, pendingLinks, err := st.PendingCounts(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		lastSync, err := st.LastSyncedAt(ctx)
		if err != nil {
			fatalf("%v", err)
		}

		strategy := "manual"
		if loader.ImmediateSync() {
			strategy = "immediate"
		}

		fmt.Printf("%s\n", ui.RenderTitle("linkhoard status"))
		fmt.Printf("  Links:       %d (%d pending)\n", totalLinks, pendingLinks)
		fmt.Printf("  Collections: %d (%d pending)\n", totalCollections, pendingCollections)
		fmt.Printf("  Strategy:    %s\n", strategy)
		if lastSync != nil {
			fmt.Printf("  Last sync:   %s\n", lastSync.Local().Format("2006-01-02 15:04:05"))
		} else {
			fmt.Printf("  Last sync:   %s\n", ui.RenderMuted("never"))
		}
		if ok, msg := client.Limiter().Status(); !ok {
			fmt.Printf("  Rate limit:  %s\n", ui.RenderWarn(msg))
		}

		pending := pendingCollections + pendingLinks
		if pending == 0 {
			fmt.Printf("  %s\n", ui.RenderPass("Everything synced"))
		} else {
			fmt.Printf("  %s\n", ui.RenderPending(fmt.Sprintf("%d change(s) waiting for 'lh push'", pending)))
		}
	},
}

type conflictChoice string

const (
	conflictAbort     conflictChoice = "abort"
	conflictPushFirst conflictChoice = "push"
	conflictOverwrite conflictChoice = "overwrite"
)

// promptConflict asks how to resolve pending local changes before a pull.
func promptConflict() conflictChoice {
	choice := conflictAbort
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[conflictChoice]().
			Title("Pull would overwrite unpushed local changes").
			Options(
				huh.NewOption("Abort the pull", conflictAbort),
				huh.NewOption("Push local changes first, then pull", conflictPushFirst),
				huh.NewOption("Pull anyway, remote wins on conflicts", conflictOverwrite),
			).
			Value(&choice),
	))
	if err := form.Run(); err != nil {
		fatalf("%v", err)
	}
	return choice
}

func init() {
	pullCmd.Flags().Bool("force", false, "Skip the conflict prompt and overwrite")

	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(statusCmd)
}
