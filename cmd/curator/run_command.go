package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"curator/internal/bookmarks"
	"curator/internal/fileutil"
	"curator/internal/logging"
	"curator/internal/pipeline"
	"curator/internal/stats"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var ids []string
	var bookmarksFile string
	var revalidate bool
	var recache bool
	var skipSync bool
	var skipReadme bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full processing pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			importIDs, err := resolveImportIDs(ids, bookmarksFile, cfg.Pipeline.BookmarksFile)
			if err != nil {
				return err
			}

			orchestrator, err := pipeline.New(cfg, logger, pipeline.Deps{})
			if err != nil {
				return err
			}
			defer orchestrator.Close()

			report, runErr := orchestrator.Run(cmd.Context(), pipeline.Options{
				ImportIDs:  importIDs,
				Revalidate: revalidate,
				Recache:    recache,
				SkipSync:   skipSync,
				SkipReadme: skipReadme,
			})
			if runErr != nil && !errors.Is(runErr, pipeline.ErrDegraded) {
				return runErr
			}
			if report != nil {
				if jsonOut {
					if err := writeJSON(cmd, report); err != nil {
						return err
					}
				} else {
					printRunReport(cmd, report)
				}
			}
			return runErr
		},
	}

	cmd.Flags().StringArrayVar(&ids, "id", nil, "Tweet ID or status URL to register before the run (repeatable)")
	cmd.Flags().StringVar(&bookmarksFile, "bookmarks", "", "Bookmarks export file to import before the run")
	cmd.Flags().BoolVar(&revalidate, "revalidate", false, "Reconcile state flags before every phase")
	cmd.Flags().BoolVar(&recache, "recache", false, "Fetch source content again for every item")
	cmd.Flags().BoolVar(&skipSync, "skip-sync", false, "Do not push the knowledge base after the run")
	cmd.Flags().BoolVar(&skipReadme, "skip-readme", false, "Do not regenerate the root README")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the run report as JSON")
	return cmd
}

// resolveImportIDs merges explicit IDs with a bookmarks file. When no file is
// given, the configured bookmarks file is used if it exists.
func resolveImportIDs(ids []string, bookmarksFile, configured string) ([]string, error) {
	seen := map[string]struct{}{}
	var out []string
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, raw := range ids {
		id := bookmarks.ExtractStatusID(strings.TrimSpace(raw))
		if id == "" {
			return nil, fmt.Errorf("not a tweet ID or status URL: %q", raw)
		}
		add(id)
	}

	path := bookmarksFile
	if path == "" && configured != "" && fileutil.PathExists(configured) {
		path = configured
	}
	if path != "" {
		fromFile, err := bookmarks.ParseLinksFile(path)
		if err != nil {
			return nil, err
		}
		for _, id := range fromFile {
			add(id)
		}
	}
	return out, nil
}

func printRunReport(cmd *cobra.Command, report *stats.Report) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Run "+report.RunID, colorize) {
		fmt.Fprintln(out, line)
	}

	rows := make([][]string, 0, len(report.Phases))
	for _, p := range report.Phases {
		rows = append(rows, []string{
			p.Phase,
			strconv.Itoa(p.Attempted),
			strconv.Itoa(p.Succeeded),
			strconv.Itoa(p.Failed),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]column{col("Phase"), numCol("Attempted"), numCol("Succeeded"), numCol("Failed")},
		rows,
	))

	kind := statusOK
	message := fmt.Sprintf("%d items processed in %.1fs", report.SucceededItems(), report.DurationSeconds)
	switch {
	case report.FailedItems() > 0:
		kind = statusWarn
		message = fmt.Sprintf("%d succeeded, %d failed in %.1fs",
			report.SucceededItems(), report.FailedItems(), report.DurationSeconds)
	case report.Degraded:
		kind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Outcome", kind, message, colorize))
	if report.Repaired > 0 {
		fmt.Fprintln(out, renderStatusLine("Repaired", statusWarn, fmt.Sprintf("%d items revalidated", report.Repaired), colorize))
	}
	if report.SyncError != "" {
		fmt.Fprintln(out, renderStatusLine("Sync", statusError, report.SyncError, colorize))
	}
	for _, failure := range report.Failures {
		fmt.Fprintln(out, renderStatusLine("Item "+failure.ItemID, statusError,
			fmt.Sprintf("%s: %s", failure.Phase, failure.Error), colorize))
	}
}
