// Package main provides the ar CLI entry point.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Txm04/author-retrieval/internal/config"
	"github.com/Txm04/author-retrieval/internal/engine"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// dbPathFlag overrides the configured database path when set
var dbPathFlag string

func main() {
	// A missing .env is fine; explicit environment always wins.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ar",
	Short: "Semantic search over scientific abstracts and authors",
	Long: `ar imports scientific abstracts, embeds them with a local model,
and serves semantic search over abstracts and authors.

Abstracts and their author/topic links live in SQLite; vector indices are
kept in-process and persisted next to the database. All commands output
JSON by default for easy integration with other tools.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "Database path (overrides AR_DB_PATH)")
	rootCmd.Version = Version
}

// mustOpenEngine loads config, builds the logger, and starts the engine,
// exiting with the right code on failure.
func mustOpenEngine() *engine.Engine {
	cfg, err := config.Load()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if dbPathFlag != "" {
		cfg.DBPath = config.ExpandPath(dbPathFlag)
	}

	eng, err := engine.New(cfg, engine.WithLogger(buildLogger(cfg.LogLevel)))
	if err != nil {
		exitWithError(exitCodeFor(err), "starting engine: %v", err)
	}
	return eng
}

// buildLogger creates a structured logger at the configured level.
// Warn by default so JSON command output stays clean on stdout.
func buildLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.WarnLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}
