package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"curator/internal/catalog"
	"curator/internal/config"
	"curator/internal/logging"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Reconcile state flags against on-disk evidence",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := openValidatingCatalog(cfg)
			if err != nil {
				return err
			}
			repaired, err := store.Reconcile()
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, struct {
					Repaired []string `json:"repaired"`
				}{Repaired: repaired})
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if len(repaired) == 0 {
				fmt.Fprintln(out, renderStatusLine("Validation", statusOK, "all flags supported by evidence", colorize))
				return nil
			}
			fmt.Fprintln(out, renderStatusLine("Validation", statusWarn,
				fmt.Sprintf("%d items demoted for reprocessing", len(repaired)), colorize))
			for _, id := range repaired {
				fmt.Fprintln(out, renderStatusLine("Item "+id, statusWarn, "flags demoted", colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit repairs as JSON")
	return cmd
}

func openValidatingCatalog(cfg *config.Config) (*catalog.Store, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return catalog.Open(cfg, logger)
}
