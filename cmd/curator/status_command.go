package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"curator/internal/catalog"
	"curator/internal/stats"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalog processing status",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			snap := stats.BuildSnapshot(store.All())
			if jsonOut {
				return writeJSON(cmd, snap)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Catalog", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Items", statusInfo,
				fmt.Sprintf("%d total, %d processed, %d pending", snap.TotalItems, snap.ProcessedItems, snap.UnprocessedItems), colorize))
			fmt.Fprintln(out, renderStatusLine("Media files", statusInfo, strconv.Itoa(snap.MediaFiles), colorize))

			rows := make([][]string, 0, len(snap.PendingByPhase))
			for _, phase := range catalog.Phases() {
				rows = append(rows, []string{string(phase), strconv.Itoa(snap.PendingByPhase[string(phase)])})
			}
			fmt.Fprintln(out, renderTable([]column{col("Phase"), numCol("Pending")}, rows))

			if len(snap.Categories) > 0 {
				names := make([]string, 0, len(snap.Categories))
				for name := range snap.Categories {
					names = append(names, name)
				}
				sort.Strings(names)
				catRows := make([][]string, 0, len(names))
				for _, name := range names {
					catRows = append(catRows, []string{name, strconv.Itoa(snap.Categories[name])})
				}
				fmt.Fprintln(out, renderTable([]column{col("Category"), numCol("Items")}, catRows))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit status as JSON")
	return cmd
}
