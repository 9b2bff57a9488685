package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/linkhoard/linkhoard/internal/store"
	"github.com/linkhoard/linkhoard/internal/sync"
	"github.com/linkhoard/linkhoard/internal/ui"
)

var addCmd = &cobra.Command{
	Use:     "add URL",
	GroupID: "links",
	Short:   "Bookmark a URL",
	Long: `Add a link to the local store.

The link is saved locally no matter what; with immediate_sync enabled it is
also uploaded right away, otherwise it waits for 'lh push'.

Example usage:
  lh add https://go.dev/blog/error-handling
  lh add https://example.com --title "Example" --tags go,blog --collection Reading`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		loader, cfg := loadConfig()
		engine, st := newEngine(loader, cfg)
		defer st.Close()

		params := linkParamsFromFlags(cmd)
		params.URL = args[0]

		link, res, err := engine.CreateLink(context.Background(), params)
		if err != nil {
			if errors.Is(err, store.ErrDuplicateURL) {
				fatalf("already bookmarked: %s", args[0])
			}
			fatalf("%v", err)
		}

		fmt.Printf("Added #%d %s\n", link.ID, link.URL)
		reportResult(res)
	},
}

var updateCmd = &cobra.Command{
	Use:     "update ID",
	GroupID: "links",
	Short:   "Edit a bookmarked link",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		loader, cfg := loadConfig()
		engine, st := newEngine(loader, cfg)
		defer st.Close()

		ctx := context.Background()
		id := parseID(args[0])

		current, err := engine.Store().GetLinkByID(ctx, id)
		if err != nil {
			fatalf("%v", err)
		}

		// Flags the caller did not pass keep the stored value.
		params := sync.LinkParams{
			URL:        current.URL,
			Title:      current.Title,
			Notes:      current.Notes,
			Tags:       current.Tags,
			Collection: current.Collection,
			Private:    current.IsPrivate,
		}
		if cmd.Flags().Changed("url") {
			params.URL, _ = cmd.Flags().GetString("url")
		}
		if cmd.Flags().Changed("title") {
			params.Title, _ = cmd.Flags().GetString("title")
		}
		if cmd.Flags().Changed("notes") {
			params.Notes, _ = cmd.Flags().GetString("notes")
		}
		if cmd.Flags().Changed("tags") {
			tags, _ := cmd.Flags().GetString("tags")
			params.Tags = splitTags(tags)
		}
		if cmd.Flags().Changed("collection") {
			params.Collection, _ = cmd.Flags().GetString("collection")
		}
		if cmd.Flags().Changed("private") {
			params.Private, _ = cmd.Flags().GetBool("private")
		}

		link, res, err := engine.UpdateLink(ctx, id, params)
		if err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("Updated #%d %s\n", link.ID, link.URL)
		reportResult(res)
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm ID",
	GroupID: "links",
	Short:   "Delete a bookmarked link",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		loader, cfg := loadConfig()
		engine, st := newEngine(loader, cfg)
		defer st.Close()

		id := parseID(args[0])
		res, err := engine.DeleteLink(context.Background(), id)
		if err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("Deleted #%d\n", id)
		reportResult(res)
	},
}

var mvCmd = &cobra.Command{
	Use:     "mv ID [COLLECTION]",
	GroupID: "links",
	Short:   "Move a link to a collection",
	Long: `Move a link into the named collection. Omit the collection to move the
link back to uncategorized.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		loader, cfg := loadConfig()
		engine, st := newEngine(loader, cfg)
		defer st.Close()

		id := parseID(args[0])
		collection := ""
		if len(args) == 2 {
			collection = args[1]
		}

		link, res, err := engine.MoveLink(context.Background(), id, collection)
		if err != nil {
			fatalf("%v", err)
		}

		dest := collection
		if dest == "" {
			dest = "uncategorized"
		}
		fmt.Printf("Moved #%d to %s\n", link.ID, dest)
		reportResult(res)
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "links",
	Short:   "List bookmarked links",
	Long: `List links, newest first.

The --since flag accepts natural language:
  lh list --since "last monday"
  lh list --since "3 days ago"`,
	Run: func(cmd *cobra.Command, args []string) {
		_, cfg := loadConfig()
		st := openStore(cfg)
		defer st.Close()

		filter := store.LinkFilter{}
		filter.Collection, _ = cmd.Flags().GetString("collection")
		filter.Uncategorized, _ = cmd.Flags().GetBool("uncategorized")
		filter.Tag, _ = cmd.Flags().GetString("tag")
		filter.DirtyOnly, _ = cmd.Flags().GetBool("pending")
		filter.Limit, _ = cmd.Flags().GetInt("limit")
		filter.Offset, _ = cmd.Flags().GetInt("offset")

		if since, _ := cmd.Flags().GetString("since"); since != "" {
			filter.Since = parseSince(since)
		}

		links, err := st.ListLinks(context.Background(), filter)
		if err != nil {
			fatalf("%v", err)
		}

		if len(links) == 0 {
			fmt.Println(ui.RenderMuted("No links found"))
			return
		}
		for _, l := range links {
			printLink(l)
		}
	},
}

// printLink renders one list row: id, sync marker, URL, then detail lines.
func printLink(l *store.Link) {
	marker := ui.RenderPass("✓")
	if l.IsDirty || l.LastSyncedAt == nil {
		marker = ui.RenderPending("↑")
	}

	title := l.Title
	if title == "" {
		title = ui.RenderMuted("(untitled)")
	}
	fmt.Printf("%s #%-4d %s\n", marker, l.ID, title)
	fmt.Printf("   %s\n", l.URL)

	var details []string
	if l.Collection != "" {
		details = append(details, "in "+l.Collection)
	}
	if len(l.Tags) > 0 {
		details = append(details, "#"+strings.Join(l.Tags, " #"))
	}
	if l.IsPrivate {
		details = append(details, "private")
	}
	if len(details) > 0 {
		fmt.Printf("   %s\n", ui.RenderMuted(strings.Join(details, "  ")))
	}
}

// linkParamsFromFlags collects the shared link flags.
func linkParamsFromFlags(cmd *cobra.Command) sync.LinkParams {
	params := sync.LinkParams{}
	params.Title, _ = cmd.Flags().GetString("title")
	params.Notes, _ = cmd.Flags().GetString("notes")
	params.Collection, _ = cmd.Flags().GetString("collection")
	params.Private, _ = cmd.Flags().GetBool("private")
	if tags, _ := cmd.Flags().GetString("tags"); tags != "" {
		params.Tags = splitTags(tags)
	}
	return params
}

func splitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil {
		fatalf("invalid id %q", s)
	}
	return id
}

// parseSince turns a natural-language time expression into a cutoff.
func parseSince(expr string) time.Time {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	result, err := w.Parse(expr, time.Now())
	if err != nil || result == nil {
		fatalf("cannot parse --since %q", expr)
	}
	return result.Time
}

func addLinkFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "Link title")
	cmd.Flags().String("notes", "", "Free-form notes")
	cmd.Flags().String("tags", "", "Comma-separated tags")
	cmd.Flags().String("collection", "", "Collection name")
	cmd.Flags().Bool("private", false, "Hide from public profile")
}

func init() {
	addLinkFlags(addCmd)

	addLinkFlags(updateCmd)
	updateCmd.Flags().String("url", "", "Replace the URL")

	listCmd.Flags().String("collection", "", "Only links in this collection")
	listCmd.Flags().Bool("uncategorized", false, "Only links without a collection")
	listCmd.Flags().String("tag", "", "Only links carrying this tag")
	listCmd.Flags().Bool("pending", false, "Only links awaiting upload")
	listCmd.Flags().String("since", "", "Only links updated since (natural language ok)")
	listCmd.Flags().Int("limit", 0, "Maximum number of links")
	listCmd.Flags().Int("offset", 0, "Skip the first N links")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(mvCmd)
	rootCmd.AddCommand(listCmd)
}
