package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/somno/internal/client"
	"github.com/alfredjeanlab/somno/internal/model"
	"github.com/alfredjeanlab/somno/internal/synth"
)

var synthCmd = &cobra.Command{
	Use:     "synth",
	Short:   "Generate a synthetic hypnogram",
	GroupID: "predict",
	RunE: func(cmd *cobra.Command, args []string) error {
		windows, _ := cmd.Flags().GetInt("windows")
		start, _ := cmd.Flags().GetInt("start")
		local, _ := cmd.Flags().GetBool("local")

		var seed *uint64
		if cmd.Flags().Changed("seed") {
			s, _ := cmd.Flags().GetUint64("seed")
			seed = &s
		}

		var resp *model.Response
		if local {
			s := uint64(time.Now().UnixNano())
			if seed != nil {
				s = *seed
			}
			resp = synth.New(s).Response(start, windows)
		} else {
			var err error
			resp, err = somnoClient.Synthetic(cmd.Context(), &client.SyntheticRequest{
				Windows: windows,
				Start:   start,
				Seed:    seed,
			})
			if err != nil {
				return fmt.Errorf("generating synthetic stages: %w", err)
			}
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		printResponse(cmd.OutOrStdout(), resp)
		return nil
	},
}

func init() {
	synthCmd.Flags().Int("windows", client.FallbackWindows, "number of 30-second windows")
	synthCmd.Flags().Int("start", 0, "first window (0-based)")
	synthCmd.Flags().Uint64("seed", 0, "random seed (default: time based)")
	synthCmd.Flags().Bool("local", false, "generate locally without contacting the server")
}
