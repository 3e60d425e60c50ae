package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show recently opened archives",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store := recentStore()
		if clear, _ := cmd.Flags().GetBool("clear"); clear {
			return store.Clear()
		}
		if forget, _ := cmd.Flags().GetStringSlice("forget"); len(forget) > 0 {
			for _, path := range forget {
				if err := store.Remove(path); err != nil {
					return err
				}
			}
		}

		files, err := store.List()
		if err != nil {
			return err
		}
		for i, f := range files {
			fmt.Fprintf(cmd.OutOrStdout(), "%2d  %s\n", i+1, f)
		}
		return nil
	},
}

func init() {
	recentCmd.Flags().Bool("clear", false, "Forget all recent archives")
	recentCmd.Flags().StringSlice("forget", nil, "Drop one archive from the list (repeatable)")
	rootCmd.AddCommand(recentCmd)
}
