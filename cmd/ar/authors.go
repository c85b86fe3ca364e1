package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Txm04/author-retrieval/internal/engine"
)

var (
	authorsPage      int
	authorsPageSize  int
	authorsTopK      int
	authorsName      string
	authorsRecompute bool
)

func init() {
	rootCmd.AddCommand(authorsCmd)
	authorsCmd.AddCommand(authorsSearchCmd)
	authorsCmd.AddCommand(authorsSimilarCmd)
	authorsCmd.AddCommand(authorsGetCmd)
	authorsCmd.AddCommand(authorsUpdateCmd)
	authorsCmd.AddCommand(authorsDeleteCmd)

	authorsSearchCmd.Flags().IntVarP(&authorsPage, "page", "p", 1, "Result page (1-based)")
	authorsSearchCmd.Flags().IntVarP(&authorsPageSize, "page-size", "s", 20, "Results per page")
	authorsSimilarCmd.Flags().IntVarP(&authorsTopK, "top-k", "k", 10, "Number of similar authors")
	authorsUpdateCmd.Flags().StringVar(&authorsName, "name", "", "New author name")
	authorsUpdateCmd.Flags().BoolVar(&authorsRecompute, "recompute", false, "Recompute the author's mean vector")
}

var authorsCmd = &cobra.Command{
	Use:   "authors",
	Short: "Search, inspect, and manage authors",
}

var authorsSearchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search authors semantically",
	Long: `Search authors whose body of work matches the keyword. An author's
vector is the mean of their abstracts' embeddings.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthorsSearch,
}

func runAuthorsSearch(cmd *cobra.Command, args []string) error {
	eng := mustOpenEngine()
	defer eng.Close()

	res, err := eng.SearchAuthors(context.Background(), args[0], authorsPage, authorsPageSize)
	if err != nil {
		exitWithEngineError(err)
	}

	if humanOutput {
		outputHuman("Page %d of %d candidates\n\n", res.Page, res.Total)
		printAuthorHitsHuman(res.Items)
		return nil
	}
	return outputJSON(res)
}

var authorsSimilarCmd = &cobra.Command{
	Use:   "similar <author-id>",
	Short: "Find authors similar to the given one",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthorsSimilar,
}

func runAuthorsSimilar(cmd *cobra.Command, args []string) error {
	id := parseID(args[0])

	eng := mustOpenEngine()
	defer eng.Close()

	hits, err := eng.SimilarAuthors(id, authorsTopK)
	if err != nil {
		exitWithEngineError(err)
	}

	if humanOutput {
		printAuthorHitsHuman(hits)
		return nil
	}
	return outputJSON(hits)
}

var authorsGetCmd = &cobra.Command{
	Use:   "get <author-id>",
	Short: "Show an author with their abstracts",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthorsGet,
}

func runAuthorsGet(cmd *cobra.Command, args []string) error {
	id := parseID(args[0])

	eng := mustOpenEngine()
	defer eng.Close()

	detail, err := eng.GetAuthor(id)
	if err != nil {
		exitWithEngineError(err)
	}

	if humanOutput {
		outputHuman("#%d %s (embedded: %v)\n", detail.ID, detail.Name, detail.HasEmbedding)
		for _, a := range detail.Abstracts {
			outputHuman("  #%d %s (%s)\n", a.ID, truncateString(a.Title, searchTitleMaxLen), formatDate(a))
		}
		return nil
	}
	return outputJSON(detail)
}

var authorsUpdateCmd = &cobra.Command{
	Use:   "update <author-id>",
	Short: "Rename an author or recompute their vector",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthorsUpdate,
}

func runAuthorsUpdate(cmd *cobra.Command, args []string) error {
	id := parseID(args[0])

	patch := engine.AuthorPatch{Recompute: authorsRecompute}
	if cmd.Flags().Changed("name") {
		patch.Name = &authorsName
	}

	eng := mustOpenEngine()
	defer eng.Close()

	detail, err := eng.UpdateAuthor(id, patch)
	if err != nil {
		exitWithEngineError(err)
	}
	return outputJSON(detail)
}

var authorsDeleteCmd = &cobra.Command{
	Use:   "delete <author-id>",
	Short: "Delete an author (their abstracts survive)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthorsDelete,
}

func runAuthorsDelete(cmd *cobra.Command, args []string) error {
	id := parseID(args[0])

	eng := mustOpenEngine()
	defer eng.Close()

	if err := eng.DeleteAuthor(id); err != nil {
		exitWithEngineError(err)
	}
	return outputJSON(StatusResponse{Status: "deleted"})
}

// parseID parses a numeric id argument, exiting on bad input.
func parseID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		exitWithError(ExitValidation, "invalid id %q", s)
	}
	return id
}
