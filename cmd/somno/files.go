package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:     "files",
	Short:   "List recordings available on the server",
	GroupID: "recordings",
	RunE: func(cmd *cobra.Command, args []string) error {
		long, _ := cmd.Flags().GetBool("long")
		out := cmd.OutOrStdout()

		if !long {
			names, err := somnoClient.ListFiles(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing files: %w", err)
			}
			if jsonOutput {
				return printJSON(out, names)
			}
			for _, n := range names {
				fmt.Fprintln(out, n)
			}
			return nil
		}

		recs, err := somnoClient.ListRecordings(cmd.Context(), true)
		if err != nil {
			return fmt.Errorf("listing recordings: %w", err)
		}
		if jsonOutput {
			return printJSON(out, recs)
		}
		printRecordings(out, recs)
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:     "info <name>",
	Short:   "Show the EDF header summary of a recording",
	GroupID: "recordings",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := somnoClient.FileInfo(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), info)
		}
		printRecordingInfo(cmd.OutOrStdout(), info)
		return nil
	},
}

func init() {
	filesCmd.Flags().BoolP("long", "l", false, "show source, size, epochs and duration")
}
