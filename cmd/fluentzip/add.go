package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	fluentzip "github.com/SUlTlUS/FluentZip"
)

var addCmd = &cobra.Command{
	Use:   "add <archive> <path>...",
	Short: "Add files or folders to an archive",
	Long:  "Adds local files (and folders, recursively) under --to. Existing entries with the same key are replaced.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		folder, _ := cmd.Flags().GetString("to")

		changes := fluentzip.NewChangeSet()
		for _, path := range args[1:] {
			info, err := os.Stat(path)
			if err != nil {
				return fluentzip.NewArchiveError(fluentzip.ErrNotFound, "file to add does not exist", path, err)
			}
			if info.IsDir() {
				if err := changes.AddDirectory(folder, path); err != nil {
					return err
				}
				continue
			}
			changes.AddFile(folder, path)
		}

		archive, err := openArchive(cmd, args[0])
		if err != nil {
			return err
		}
		if err := archive.Apply(cmd.Context(), changes); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %d entries, archive now has %d files\n",
			len(changes.Additions()), archive.Catalog().Len())
		return nil
	},
}

func init() {
	addCmd.Flags().String("to", "", "Folder inside the archive to add into")
	rootCmd.AddCommand(addCmd)
}
