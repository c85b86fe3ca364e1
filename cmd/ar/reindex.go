package main

import (
	"context"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reindexCmd)
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-encode missing embeddings and rebuild both indices",
	Long: `Encode every abstract still missing an embedding, recompute all
author mean vectors, and rebuild and persist both vector indices from the
store. Per-record failures are collected and reported, not fatal.`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func runReindex(cmd *cobra.Command, args []string) error {
	eng := mustOpenEngine()
	defer eng.Close()

	res, err := eng.Reindex(context.Background())
	if err != nil {
		exitWithEngineError(err)
	}

	if humanOutput {
		outputHuman("Encoded %d abstracts; indexed %d abstracts, %d authors\n",
			res.AbstractsEncoded, res.AbstractsIndexed, res.AuthorsIndexed)
		for _, e := range res.Errors {
			outputHuman("  ! %s\n", e)
		}
		return nil
	}
	return outputJSON(res)
}
