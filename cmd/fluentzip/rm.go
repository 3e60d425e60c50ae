package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	fluentzip "github.com/SUlTlUS/FluentZip"
)

var rmCmd = &cobra.Command{
	Use:   "rm <archive> <key>...",
	Short: "Remove entries from an archive",
	Long:  "Removes entries by key. A key ending in \"/\" removes that folder and everything under it.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := openArchive(cmd, args[0])
		if err != nil {
			return err
		}

		changes := fluentzip.NewChangeSet()
		for _, key := range args[1:] {
			normalized := fluentzip.NormalizeKey(key)
			if strings.HasSuffix(normalized, "/") || archive.Tree().FindByFullPath(normalized) != nil {
				changes.RemoveFolder(normalized)
				continue
			}
			changes.Remove(normalized)
		}

		before := archive.Catalog().Len()
		if err := archive.Apply(cmd.Context(), changes); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d files\n", before-archive.Catalog().Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
