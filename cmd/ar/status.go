package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine status",
	Long: `Show the embedding model and device, the entity counts, the vector
index sizes, and the runtime search settings.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	eng := mustOpenEngine()
	defer eng.Close()

	st, err := eng.Status()
	if err != nil {
		exitWithEngineError(err)
	}

	if humanOutput {
		outputHuman("Model:     %s (%d dims) on %s\n", st.Encoder.Model, st.Encoder.Dimensions, st.Encoder.Device)
		outputHuman("Devices:   %v\n", st.Encoder.Available)
		outputHuman("Abstracts: %d stored, %d indexed\n", st.Abstracts, st.AbstractsIndex.Size)
		outputHuman("Authors:   %d stored, %d indexed\n", st.Authors, st.AuthorsIndex.Size)
		outputHuman("Topics:    %d\n", st.Topics)
		outputHuman("Scores:    show=%v mode=%s\n", st.ShowScores, st.ScoreMode)
		return nil
	}
	return outputJSON(st)
}
