package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Txm04/author-retrieval/internal/engine"
	"github.com/Txm04/author-retrieval/internal/model"
)

var (
	updateTitle     string
	updateContent   string
	updateDate      string
	updateClearDate bool
	updateTopics    []int64
)

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().StringVar(&updateTitle, "title", "", "New title")
	updateCmd.Flags().StringVar(&updateContent, "content", "", "New content")
	updateCmd.Flags().StringVar(&updateDate, "date", "", "New publication date (YYYY-MM-DD)")
	updateCmd.Flags().BoolVar(&updateClearDate, "clear-date", false, "Remove the publication date")
	updateCmd.Flags().Int64SliceVar(&updateTopics, "topics", nil, "Replace the topic set with these ids")
}

var updateCmd = &cobra.Command{
	Use:   "update <abstract-id>",
	Short: "Update an abstract",
	Long: `Update abstract fields. A change to title or content re-embeds the
abstract and refreshes the affected authors' vectors.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	id := parseID(args[0])

	var patch engine.AbstractPatch
	if cmd.Flags().Changed("title") {
		patch.Title = &updateTitle
	}
	if cmd.Flags().Changed("content") {
		patch.ContentRaw = &updateContent
	}
	if cmd.Flags().Changed("date") {
		t, err := time.Parse(model.DateFormat, updateDate)
		if err != nil {
			exitWithError(ExitValidation, "invalid date %q, want YYYY-MM-DD", updateDate)
		}
		patch.PublicationDate = &t
	}
	patch.ClearPublicationDate = updateClearDate
	if cmd.Flags().Changed("topics") {
		patch.TopicIDs = &updateTopics
	}

	eng := mustOpenEngine()
	defer eng.Close()

	detail, err := eng.UpdateAbstract(context.Background(), id, patch)
	if err != nil {
		exitWithEngineError(err)
	}
	return outputJSON(detail)
}
