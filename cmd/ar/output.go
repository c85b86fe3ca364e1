package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Txm04/author-retrieval/internal/engine"
	"github.com/Txm04/author-retrieval/internal/model"
)

// Title truncation length for human-readable result lists.
const searchTitleMaxLen = 70

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// exitWithEngineError maps the error onto an exit code and reports it.
func exitWithEngineError(err error) {
	exitWithError(exitCodeFor(err), "%v", err)
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic response for commands that change state.
type StatusResponse struct {
	Status string `json:"status"`
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// formatDate renders a nullable publication date for human output.
func formatDate(a model.Abstract) string {
	if a.PublicationDate == nil {
		return "undated"
	}
	return a.PublicationDate.Format(model.DateFormat)
}

// printAbstractHitsHuman prints abstract search results in human-readable form.
func printAbstractHitsHuman(items []engine.AbstractHit) {
	for i, it := range items {
		if it.Score != nil {
			fmt.Printf("%d. [%.3f] #%d %s\n", i+1, *it.Score, it.Abstract.ID, truncateString(it.Abstract.Title, searchTitleMaxLen))
		} else {
			fmt.Printf("%d. #%d %s\n", i+1, it.Abstract.ID, truncateString(it.Abstract.Title, searchTitleMaxLen))
		}
		fmt.Printf("   %s\n", formatDate(it.Abstract))
	}
}

// printAuthorHitsHuman prints author search results in human-readable form.
func printAuthorHitsHuman(items []engine.AuthorHit) {
	for i, it := range items {
		if it.Score != nil {
			fmt.Printf("%d. [%.3f] #%d %s\n", i+1, *it.Score, it.Author.ID, it.Author.Name)
		} else {
			fmt.Printf("%d. #%d %s\n", i+1, it.Author.ID, it.Author.Name)
		}
	}
}
