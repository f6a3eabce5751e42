package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/somno/internal/client"
	"github.com/alfredjeanlab/somno/internal/ui"
)

var (
	httpURL    string
	jsonOutput bool

	somnoClient client.SomnoClient
)

func defaultHTTPURL() string {
	if s := os.Getenv("SOMNO_HTTP_URL"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

var rootCmd = &cobra.Command{
	Use:          "somno <command>",
	Short:        "Sleep-stage prediction service and client",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !ui.ShouldUseColor(os.Stdout) {
			ui.ForceNoColor()
		}
		somnoClient = client.NewHTTPClient(httpURL)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if somnoClient != nil {
			somnoClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "predict", Title: "Prediction:"},
		&cobra.Group{ID: "recordings", Title: "Recordings:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	cobra.EnableCommandSorting = false

	// Prediction
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(synthCmd)

	// Recordings
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(infoCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
