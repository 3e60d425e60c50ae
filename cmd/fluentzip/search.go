package main

import (
	"fmt"

	"github.com/spf13/cobra"

	fluentzip "github.com/SUlTlUS/FluentZip"
)

var searchCmd = &cobra.Command{
	Use:   "search <archive> <query>",
	Short: "Find files and folders by name",
	Long:  "Case-insensitive substring search over names and full paths. Use --glob for doublestar patterns or --fuzzy for ranked fuzzy matching.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := openArchive(cmd, args[0])
		if err != nil {
			return err
		}

		glob, _ := cmd.Flags().GetBool("glob")
		fuzzy, _ := cmd.Flags().GetBool("fuzzy")

		var hits []fluentzip.SearchHit
		switch {
		case glob:
			hits, err = archive.Catalog().SearchGlob(args[1], archive.Tree())
			if err != nil {
				return err
			}
		case fuzzy:
			hits = archive.Catalog().SearchFuzzy(args[1])
		default:
			hits = archive.Catalog().Search(args[1], archive.Tree())
		}

		if len(hits) == 0 {
			return fluentzip.NewArchiveError(fluentzip.ErrNoMatch, "nothing matched", args[1], nil)
		}
		for _, hit := range hits {
			if hit.IsFolder {
				fmt.Fprintf(cmd.OutOrStdout(), "%s/\n", hit.FullPath)
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), hit.FullPath)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().Bool("glob", false, "Treat query as a doublestar glob over full paths")
	searchCmd.Flags().Bool("fuzzy", false, "Rank file names by fuzzy match")
	searchCmd.MarkFlagsMutuallyExclusive("glob", "fuzzy")
	rootCmd.AddCommand(searchCmd)
}
