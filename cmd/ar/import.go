package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Txm04/author-retrieval/internal/engine"
)

func init() {
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import abstracts from a JSON file",
	Long: `Import abstracts from a JSON array of records. Use "-" to read
from stdin.

Each record carries a title, content, an optional id and publication date,
and author/topic references (by id, by name, or both). Bad records are
skipped and reported; the import never aborts because of one record.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	records, err := readRecords(args[0])
	if err != nil {
		exitWithError(ExitValidation, "reading records: %v", err)
	}

	eng := mustOpenEngine()
	defer eng.Close()

	res, err := eng.Import(context.Background(), records)
	if err != nil {
		exitWithEngineError(err)
	}

	if humanOutput {
		outputHuman("Imported %d, skipped %d\n", res.Imported, res.Skipped)
		for _, e := range res.Errors {
			outputHuman("  ! %s\n", e)
		}
		return nil
	}
	return outputJSON(res)
}

func readRecords(path string) ([]engine.ImportRecord, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var records []engine.ImportRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("parsing JSON array: %w", err)
	}
	return records, nil
}
