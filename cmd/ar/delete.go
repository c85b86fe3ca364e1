package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(deleteCmd)
}

var deleteCmd = &cobra.Command{
	Use:   "delete <abstract-id>",
	Short: "Delete an abstract",
	Long: `Delete an abstract, its links, and its index entry. The vectors of
the authors it contributed to are recomputed; authors left without any
embedded abstract drop out of the author index.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	id := parseID(args[0])

	eng := mustOpenEngine()
	defer eng.Close()

	if err := eng.DeleteAbstract(id); err != nil {
		exitWithEngineError(err)
	}
	return outputJSON(StatusResponse{Status: "deleted"})
}
