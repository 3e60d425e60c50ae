package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	fluentzip "github.com/SUlTlUS/FluentZip"
)

var lsCmd = &cobra.Command{
	Use:   "ls <archive> [folder]",
	Short: "List one folder of an archive",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := openArchive(cmd, args[0])
		if err != nil {
			return err
		}

		folder := ""
		if len(args) == 2 {
			folder = fluentzip.NormalizeKey(args[1])
		}
		node := archive.Tree().FindByFullPath(trimSlash(folder))
		if node == nil {
			return fluentzip.NewArchiveError(fluentzip.ErrNoMatch, "no such folder", folder, nil)
		}

		long, _ := cmd.Flags().GetBool("long")
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, child := range node.Children() {
			fmt.Fprintf(w, "%s/\t-\t\n", child.Name)
		}
		for _, entry := range archive.Catalog().EntriesUnder(node.FullPath) {
			if long {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					entry.Name,
					humanize.IBytes(uint64(max(entry.Size, 0))),
					entry.Modified.Format("2006-01-02 15:04"),
					entry.CRCString(),
					entry.AttributeString(),
					entry.CompressionMethod)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t\n", entry.Name, humanize.IBytes(uint64(max(entry.Size, 0))))
		}
		return w.Flush()
	},
}

func init() {
	lsCmd.Flags().BoolP("long", "l", false, "Show time, CRC, attributes and method")
	rootCmd.AddCommand(lsCmd)
}

func trimSlash(key string) string {
	for len(key) > 0 && key[len(key)-1] == '/' {
		key = key[:len(key)-1]
	}
	return key
}
