package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"curator/internal/stats"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			history, err := stats.OpenHistory(cfg.HistoryDBPath())
			if err != nil {
				return err
			}
			defer history.Close()

			runs, err := history.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				outcome := "ok"
				if run.Degraded {
					outcome = "degraded"
				}
				rows = append(rows, []string{
					run.RunID,
					run.StartedAt.Local().Format(time.DateTime),
					fmt.Sprintf("%.1fs", run.DurationSeconds),
					strconv.Itoa(run.Succeeded),
					strconv.Itoa(run.Failed),
					strconv.Itoa(run.Repaired),
					outcome,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{
					col("Run"), col("Started"), numCol("Duration"),
					numCol("Succeeded"), numCol("Failed"), numCol("Repaired"),
					col("Outcome"),
				},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit runs as JSON")
	return cmd
}
