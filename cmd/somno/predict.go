package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/somno/internal/client"
	"github.com/alfredjeanlab/somno/internal/model"
	"github.com/alfredjeanlab/somno/internal/ui"
)

var predictCmd = &cobra.Command{
	Use:   "predict [files...]",
	Short: "Classify sleep stages for uploaded EDF files or a server recording",
	Long: `Upload EDF files (non-.edf arguments are skipped) and print the predicted
sleep stage of each 30-second window. Use --file to classify a recording the
server already has instead.

When the server cannot be reached a synthetic result is generated locally,
unless --no-fallback is given.`,
	GroupID: "predict",
	RunE: func(cmd *cobra.Command, args []string) error {
		filename, _ := cmd.Flags().GetString("file")
		start, _ := cmd.Flags().GetInt("start")
		windows, _ := cmd.Flags().GetInt("windows")
		noFallback, _ := cmd.Flags().GetBool("no-fallback")

		req := &client.PredictRequest{
			Files:       args,
			Filename:    filename,
			StartWindow: start,
			NumWindows:  windows,
		}

		var (
			resp *model.Response
			err  error
		)
		if noFallback {
			resp, err = somnoClient.Predict(cmd.Context(), req)
		} else {
			resp, err = client.PredictWithFallback(cmd.Context(), somnoClient, req)
		}
		if err != nil {
			return fmt.Errorf("predicting: %w", err)
		}

		if resp.Tier == model.TierSynthetic {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.RenderWarn("server unreachable, showing synthetic stages"))
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		printResponse(cmd.OutOrStdout(), resp)
		return nil
	},
}

func init() {
	predictCmd.Flags().String("file", "", "recording name on the server (see 'somno files')")
	predictCmd.Flags().Int("start", 0, "first window (0-based)")
	predictCmd.Flags().Int("windows", 0, "number of windows (default: server default)")
	predictCmd.Flags().Bool("no-fallback", false, "fail instead of generating stages locally")
}
