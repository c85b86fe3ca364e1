package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <abstract-id>",
	Short: "Show an abstract with its authors and topics",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	id := parseID(args[0])

	eng := mustOpenEngine()
	defer eng.Close()

	detail, err := eng.GetAbstract(id)
	if err != nil {
		exitWithEngineError(err)
	}

	if humanOutput {
		outputHuman("#%d %s (%s)\n\n%s\n\n", detail.ID, detail.Title, formatDate(detail.Abstract), detail.ContentRaw)
		outputHuman("Authors:")
		for _, a := range detail.Authors {
			outputHuman(" #%d %s", a.ID, a.Name)
		}
		outputHuman("\nTopics:")
		for _, t := range detail.Topics {
			outputHuman(" #%d %s", t.ID, t.Title)
		}
		outputHuman("\n")
		return nil
	}
	return outputJSON(detail)
}
