package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/linkhoard/linkhoard/internal/store"
	"github.com/linkhoard/linkhoard/internal/sync"
	"github.com/linkhoard/linkhoard/internal/ui"
)

var collectionCmd = &cobra.Command{
	Use:     "collection",
	Aliases: []string{"col"},
	GroupID: "collections",
	Short:   "Manage collections",
	Long: `Create, list, edit and delete collections.

Collection management is a premium feature on the remote service. When the
account check fails the mutation still happens locally and waits for 'lh push'.`,
}

var collectionAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a collection",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		loader, cfg := loadConfig()
		engine, st := newEngine(loader, cfg)
		defer st.Close()

		params := sync.CollectionParams{Name: args[0]}
		params.Description, _ = cmd.Flags().GetString("description")
		params.Visibility = visibilityFromFlags(cmd, store.VisibilityPrivate)
		if tags, _ := cmd.Flags().GetString("tags"); tags != "" {
			params.Tags = splitTags(tags)
		}

		col, res, err := engine.CreateCollection(context.Background(), params)
		if err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("Created collection #%d %s\n", col.ID, col.Name)
		reportResult(res)
	},
}

var collectionUpdateCmd = &cobra.Command{
	Use:   "update NAME",
	Short: "Edit a collection",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		loader, cfg := loadConfig()
		engine, st := newEngine(loader, cfg)
		defer st.Close()

		ctx := context.Background()
		current, err := st.GetCollectionByName(ctx, args[0])
		if err != nil {
			fatalf("%v", err)
		}
		currentTags, err := st.CollectionTags(ctx, current.ID)
		if err != nil {
			fatalf("%v", err)
		}

		params := sync.CollectionParams{
			Name:        current.Name,
			Description: current.Description,
			Visibility:  current.Visibility,
			Tags:        currentTags,
		}
		if cmd.Flags().Changed("name") {
			params.Name, _ = cmd.Flags().GetString("name")
		}
		if cmd.Flags().Changed("description") {
			params.Description, _ = cmd.Flags().GetString("description")
		}
		if cmd.Flags().Changed("visibility") {
			params.Visibility = visibilityFromFlags(cmd, current.Visibility)
		}
		if cmd.Flags().Changed("tags") {
			tags, _ := cmd.Flags().GetString("tags")
			params.Tags = splitTags(tags)
		}

		col, res, err := engine.UpdateCollection(ctx, current.ID, params)
		if err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("Updated collection #%d %s\n", col.ID, col.Name)
		reportResult(res)
	},
}

var collectionRmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Delete a collection",
	Long: `Delete a collection. Member links move to uncategorized unless --cascade
is given, in which case they are deleted too.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		loader, cfg := loadConfig()
		engine, st := newEngine(loader, cfg)
		defer st.Close()

		ctx := context.Background()
		col, err := st.GetCollectionByName(ctx, args[0])
		if err != nil {
			fatalf("%v", err)
		}

		mode := store.DeleteModeMoveToUncategorized
		if cascade, _ := cmd.Flags().GetBool("cascade"); cascade {
			mode = store.DeleteModeCascade
		}

		res, err := engine.DeleteCollection(ctx, col.ID, mode)
		if err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("Deleted collection %s\n", col.Name)
		reportResult(res)
	},
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections",
	Run: func(cmd *cobra.Command, args []string) {
		_, cfg := loadConfig()
		st := openStore(cfg)
		defer st.Close()

		ctx := context.Background()
		cols, err := st.ListCollections(ctx)
		if err != nil {
			fatalf("%v", err)
		}

		if len(cols) == 0 {
			fmt.Println(ui.RenderMuted("No collections"))
			return
		}
		for _, c := range cols {
			marker := ui.RenderPass("✓")
			if c.IsDirty || c.LastSyncedAt == nil {
				marker = ui.RenderPending("↑")
			}

			var details []string
			details = append(details, fmt.Sprintf("%d links", c.LinkCount))
			details = append(details, string(c.Visibility))
			if tags, err := st.CollectionTags(ctx, c.ID); err == nil && len(tags) > 0 {
				details = append(details, "#"+strings.Join(tags, " #"))
			}

			fmt.Printf("%s %s  %s\n", marker, ui.RenderTitle(c.Name), ui.RenderMuted(strings.Join(details, "  ")))
			if c.Description != "" {
				fmt.Printf("   %s\n", c.Description)
			}
		}
	},
}

func visibilityFromFlags(cmd *cobra.Command, fallback store.Visibility) store.Visibility {
	raw, _ := cmd.Flags().GetString("visibility")
	if raw == "" {
		return fallback
	}
	v := store.Visibility(raw)
	if !v.Valid() {
		fatalf("invalid visibility %q (want public, private or hidden)", raw)
	}
	return v
}

func init() {
	collectionAddCmd.Flags().String("description", "", "Collection description")
	collectionAddCmd.Flags().String("visibility", "", "public, private or hidden (default private)")
	collectionAddCmd.Flags().String("tags", "", "Comma-separated collection tags")

	collectionUpdateCmd.Flags().String("name", "", "Rename the collection")
	collectionUpdateCmd.Flags().String("description", "", "Collection description")
	collectionUpdateCmd.Flags().String("visibility", "", "public, private or hidden")
	collectionUpdateCmd.Flags().String("tags", "", "Comma-separated collection tags")

	collectionRmCmd.Flags().Bool("cascade", false, "Delete member links too")

	collectionCmd.AddCommand(collectionAddCmd)
	collectionCmd.AddCommand(collectionUpdateCmd)
	collectionCmd.AddCommand(collectionRmCmd)
	collectionCmd.AddCommand(collectionListCmd)
	rootCmd.AddCommand(collectionCmd)
}
