package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(topicsCmd)
}

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List all topics",
	Args:  cobra.NoArgs,
	RunE:  runTopics,
}

func runTopics(cmd *cobra.Command, args []string) error {
	eng := mustOpenEngine()
	defer eng.Close()

	topics, err := eng.ListTopics()
	if err != nil {
		exitWithEngineError(err)
	}

	if humanOutput {
		for _, t := range topics {
			outputHuman("#%d %s\n", t.ID, t.Title)
		}
		return nil
	}
	return outputJSON(topics)
}
