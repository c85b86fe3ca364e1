package main

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	searchTopics   []int64
	searchPage     int
	searchPageSize int
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Int64SliceVarP(&searchTopics, "topics", "t", nil, "Topic ids to filter by")
	searchCmd.Flags().IntVarP(&searchPage, "page", "p", 1, "Result page (1-based)")
	searchCmd.Flags().IntVarP(&searchPageSize, "page-size", "s", 20, "Results per page")
}

var searchCmd = &cobra.Command{
	Use:   "search [keyword]",
	Short: "Search abstracts semantically",
	Long: `Search abstracts by semantic similarity to the keyword, optionally
filtered by topic ids. With topics and no keyword, results come straight
from the store ordered newest first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	var keyword string
	if len(args) == 1 {
		keyword = args[0]
	}

	eng := mustOpenEngine()
	defer eng.Close()

	res, err := eng.SearchAbstracts(context.Background(), keyword, searchTopics, searchPage, searchPageSize)
	if err != nil {
		exitWithEngineError(err)
	}

	if humanOutput {
		outputHuman("Page %d of %d candidates\n\n", res.Page, res.Total)
		printAbstractHitsHuman(res.Items)
		return nil
	}
	return outputJSON(res)
}
