package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var bookmarksFile string

	cmd := &cobra.Command{
		Use:   "import [id-or-url ...]",
		Short: "Register items for processing without running the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := resolveImportIDs(args, bookmarksFile, "")
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				return fmt.Errorf("nothing to import: pass IDs, URLs or --bookmarks")
			}
			store, _, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			added := 0
			for _, id := range ids {
				if _, ok := store.Get(id); ok {
					continue
				}
				if _, err := store.EnsureItem(id); err != nil {
					return err
				}
				added++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d new items (%d already tracked)\n", added, len(ids)-added)
			return nil
		},
	}

	cmd.Flags().StringVar(&bookmarksFile, "bookmarks", "", "Bookmarks export file to import")
	return cmd
}
