package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Txm04/author-retrieval/internal/engine"
)

var (
	configDevice     string
	configShowScores bool
	configScoreMode  string
)

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().StringVar(&configDevice, "device", "", "Switch the compute device (cpu, cuda, mps)")
	configCmd.Flags().BoolVar(&configShowScores, "show-scores", false, "Attach scores to search results")
	configCmd.Flags().StringVar(&configScoreMode, "score-mode", "", "Score mode (cosine or ann)")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Change runtime settings",
	Long: `Change the runtime settings: compute device, score visibility, and
score mode. A device switch waits for in-flight encodes and fails without
side effects when the device is invalid or unavailable.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	var update engine.ConfigUpdate
	if cmd.Flags().Changed("device") {
		update.Device = &configDevice
	}
	if cmd.Flags().Changed("show-scores") {
		update.ShowScores = &configShowScores
	}
	if cmd.Flags().Changed("score-mode") {
		update.ScoreMode = &configScoreMode
	}

	eng := mustOpenEngine()
	defer eng.Close()

	if update.Device != nil || update.ShowScores != nil || update.ScoreMode != nil {
		if err := eng.SetConfig(context.Background(), update); err != nil {
			exitWithEngineError(err)
		}
	}

	st, err := eng.Status()
	if err != nil {
		exitWithEngineError(err)
	}
	return outputJSON(st)
}
