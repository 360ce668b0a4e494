package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <item-id>",
		Short: "Show one catalog item in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			item, ok := store.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown item %s", args[0])
			}
			if jsonOut {
				return writeJSON(cmd, item)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Item "+item.ID, colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Source", statusInfo, item.SourceURL, colorize))
			fmt.Fprintln(out, renderStatusLine("Text", statusInfo, truncate(item.FullText, 100), colorize))

			fmt.Fprintln(out, renderStatusLine("Cache", flagKind(item.CacheComplete), "", colorize))
			fmt.Fprintln(out, renderStatusLine("Media", flagKind(item.MediaProcessed),
				fmt.Sprintf("%d of %d downloaded, %d described",
					len(item.DownloadedMedia), len(item.MediaRefs), len(item.MediaDescriptions)), colorize))
			category := ""
			if item.Category != nil {
				category = strings.Join([]string{item.Category.Main, item.Category.Sub, item.Category.ItemName}, "/")
			}
			fmt.Fprintln(out, renderStatusLine("Category", flagKind(item.CategoriesProcessed), category, colorize))
			fmt.Fprintln(out, renderStatusLine("Artifact", flagKind(item.KBItemCreated), item.ArtifactPath, colorize))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the item as JSON")
	return cmd
}

func flagKind(done bool) statusKind {
	if done {
		return statusOK
	}
	return statusWarn
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
