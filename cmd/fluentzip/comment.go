package main

import (
	"fmt"

	"github.com/spf13/cobra"

	fluentzip "github.com/SUlTlUS/FluentZip"
)

var commentCmd = &cobra.Command{
	Use:   "comment <archive>",
	Short: "Print the ZIP archive comment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		comment, err := fluentzip.ReadComment(args[0])
		if err != nil {
			return err
		}
		if comment != "" {
			fmt.Fprintln(cmd.OutOrStdout(), comment)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commentCmd)
}
