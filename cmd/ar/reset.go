package main

import (
	"github.com/spf13/cobra"

	"github.com/Txm04/author-retrieval/internal/engine"
)

var resetConfirm string

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().StringVar(&resetConfirm, "confirm", "", `Confirmation token (must be "RESET")`)
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all data",
	Long: `Delete every abstract, author, topic, and link, clear both vector
indices, and remove their persisted snapshots. Requires --confirm RESET.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	if resetConfirm != engine.ResetConfirmToken {
		exitWithError(ExitValidation, "refusing to reset: pass --confirm %s", engine.ResetConfirmToken)
	}

	eng := mustOpenEngine()
	defer eng.Close()

	if err := eng.Reset(resetConfirm); err != nil {
		exitWithEngineError(err)
	}
	return outputJSON(StatusResponse{Status: "reset"})
}
