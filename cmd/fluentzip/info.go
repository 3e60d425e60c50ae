package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	fluentzip "github.com/SUlTlUS/FluentZip"
)

var infoCmd = &cobra.Command{
	Use:   "info <archive> [key]",
	Short: "Show archive summary or one entry's metadata",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := openArchive(cmd, args[0])
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

		if len(args) == 2 {
			key := fluentzip.NormalizeKey(args[1])
			entry, ok := archive.Catalog().Lookup(key)
			if !ok {
				return fluentzip.NewArchiveError(fluentzip.ErrNoMatch, "no such entry", key, nil)
			}
			fmt.Fprintf(w, "Name\t%s\n", entry.Name)
			fmt.Fprintf(w, "Folder\t%s\n", entry.ParentPath)
			fmt.Fprintf(w, "Size\t%s (%d bytes)\n", humanize.IBytes(uint64(max(entry.Size, 0))), entry.Size)
			if entry.CompressedSize >= 0 {
				fmt.Fprintf(w, "Packed\t%s\n", humanize.IBytes(uint64(entry.CompressedSize)))
			}
			fmt.Fprintf(w, "Modified\t%s (%s)\n", entry.Modified.Format("2006-01-02 15:04:05"), humanize.Time(entry.Modified))
			fmt.Fprintf(w, "CRC\t%s\n", entry.CRCString())
			fmt.Fprintf(w, "Attributes\t%s\n", entry.AttributeString())
			fmt.Fprintf(w, "Method\t%s\n", entry.CompressionMethod)
			if entry.Encrypted {
				fmt.Fprintf(w, "Encryption\t%s\n", entry.EncryptionMethod)
			}
			if entry.ExtraInfo != "" {
				fmt.Fprintf(w, "Extra\t%s\n", entry.ExtraInfo)
			}
			return w.Flush()
		}

		session := archive.Session()
		var total int64
		for _, entry := range archive.Catalog().Entries() {
			total += max(entry.Size, 0)
		}
		fmt.Fprintf(w, "Path\t%s\n", session.Path)
		fmt.Fprintf(w, "Format\t%s\n", session.Format)
		fmt.Fprintf(w, "Files\t%s\n", humanize.Comma(int64(session.EntryCount)))
		fmt.Fprintf(w, "Folders\t%s\n", humanize.Comma(int64(archive.Tree().Len())))
		fmt.Fprintf(w, "Unpacked\t%s\n", humanize.IBytes(uint64(total)))
		fmt.Fprintf(w, "Writable\t%t\n", session.Writable)
		fmt.Fprintf(w, "Deletable\t%t\n", session.Deletable)
		if root, ok := archive.SingleRoot(); ok {
			fmt.Fprintf(w, "Single root\t%s\n", root)
		}
		if session.Comment != "" {
			fmt.Fprintf(w, "Comment\t%s\n", session.Comment)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
