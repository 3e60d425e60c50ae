package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree <archive>",
	Short: "Print the folder tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := openArchive(cmd, args[0])
		if err != nil {
			return err
		}

		withFiles, _ := cmd.Flags().GetBool("files")
		tree := archive.Tree()
		catalog := archive.Catalog()
		out := cmd.OutOrStdout()

		for node := range tree.EnumerateSubtree(tree.Root()) {
			depth := 0
			if node.FullPath != "" {
				depth = strings.Count(node.FullPath, "/") + 1
				fmt.Fprintf(out, "%s%s/\n", strings.Repeat("  ", depth-1), node.Name)
			}
			if withFiles {
				for _, entry := range catalog.EntriesUnder(node.FullPath) {
					fmt.Fprintf(out, "%s%s\n", strings.Repeat("  ", depth), entry.Name)
				}
			}
		}
		return nil
	},
}

func init() {
	treeCmd.Flags().BoolP("files", "f", false, "Include files under each folder")
	rootCmd.AddCommand(treeCmd)
}
