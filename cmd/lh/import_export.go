package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/linkhoard/linkhoard/internal/export"
	"github.com/linkhoard/linkhoard/internal/ui"
)

var importCmd = &cobra.Command{
	Use:     "import FILE",
	GroupID: "sync",
	Short:   "Import links from a JSON or JSONL file",
	Long: `Import candidate links from FILE.

The file holds one JSON object per line (JSONL) or a single JSON array.
Each record carries url, title, notes, tags, collection and private fields;
only url is required. Already-bookmarked URLs are skipped, unknown
collections fall back to uncategorized.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		loader, cfg := loadConfig()
		engine, st := newEngine(loader, cfg)
		defer st.Close()

		candidates, err := export.ReadCandidatesFile(args[0])
		if err != nil {
			fatalf("%v", err)
		}

		report, res, err := engine.ImportCandidates(context.Background(), candidates)
		if err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("%s Imported %d link(s), skipped %d duplicate(s)\n",
			ui.RenderPass("✓"), report.Imported, report.Skipped)
		for _, msg := range report.Errors {
			fmt.Printf("%s %s\n", ui.RenderFail("✗"), msg)
		}
		if report.Imported > 0 {
			reportResult(res)
		}
	},
}

var exportCmd = &cobra.Command{
	Use:     "export FILE",
	GroupID: "sync",
	Short:   "Export the local store to a file",
	Long: `Export all local bookmarks to FILE.

Formats:
  jsonl  one link per line, re-importable with 'lh import' (default)
  yaml   full snapshot including collections and their tags`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, cfg := loadConfig()
		st := openStore(cfg)
		defer st.Close()

		format, _ := cmd.Flags().GetString("format")
		ctx := context.Background()

		var result *export.Result
		var err error
		switch format {
		case "jsonl":
			result, err = export.WriteJSONL(ctx, st, args[0])
		case "yaml":
			result, err = export.WriteSnapshot(ctx, st, args[0])
		default:
			fatalf("unknown format %q (want jsonl or yaml)", format)
		}
		if err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("%s Wrote %d link(s), %d collection(s) to %s\n",
			ui.RenderPass("✓"), result.LinksWritten, result.CollectionsWritten, result.Path)
	},
}

func init() {
	exportCmd.Flags().String("format", "jsonl", "Output format: jsonl or yaml")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
}
