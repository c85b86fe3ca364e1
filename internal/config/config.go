// Package config handles engine configuration from environment and file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Score modes supported by the search layer.
const (
	// ScoreModeCosine recomputes true cosine similarity against the stored
	// embedding of each candidate. Comparable across queries, slower.
	ScoreModeCosine = "cosine"

	// ScoreModeANN returns the index's native distance transformed by the
	// 1/(1+d) heuristic. Fast, but on an index-specific scale.
	ScoreModeANN = "ann"
)

// Default values applied when the corresponding variable is unset.
const (
	DefaultModel            = "all-minilm:l6-v2"
	DefaultVectorDim        = 384
	DefaultOversampleFactor = 5
	DefaultDBFile           = "abstracts.db"
	DefaultIndexDirName     = ".indices"

	// AbstractsIndexFile and AuthorsIndexFile are the per-kind index
	// snapshot names inside IndexDir.
	AbstractsIndexFile = "abstracts.gob"
	AuthorsIndexFile   = "authors.gob"
)

// Config is the process-wide engine configuration.
//
// Values are read once at startup; the runtime-mutable subset (device,
// show_scores, score_mode) is copied into the engine and mutated there,
// never here.
type Config struct {
	// Embedding model and backend.
	Model     string // EMBED_MODEL
	Device    string // EMBED_DEVICE ("" = auto-select)
	VectorDim int    // VECTOR_DIM
	OllamaURL string // OLLAMA_URL ("" = provider default)

	// Storage.
	DBPath   string // AR_DB_PATH
	IndexDir string // INDEX_DIR

	// Search behavior.
	OversampleFactor int    // INDEX_OVERSAMPLE_FACTOR
	ShowScores       bool   // SHOW_SCORES
	ScoreMode        string // SCORE_MODE ("cosine" | "ann")

	// Logging.
	LogLevel string // LOG_LEVEL
}

// Load builds a Config from environment variables over defaults, applying
// the optional global config file first (env always wins).
func Load() (*Config, error) {
	cfg := defaults()

	file, err := loadGlobalFile()
	if err != nil {
		return nil, err
	}
	if file != nil {
		file.applyTo(cfg)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return &Config{
		Model:            DefaultModel,
		VectorDim:        DefaultVectorDim,
		DBPath:           filepath.Join(cwd, DefaultDBFile),
		IndexDir:         filepath.Join(cwd, DefaultIndexDirName),
		OversampleFactor: DefaultOversampleFactor,
		ScoreMode:        ScoreModeCosine,
		LogLevel:         "warn",
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("EMBED_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("EMBED_DEVICE"); v != "" {
		cfg.Device = v
	}
	if v := os.Getenv("VECTOR_DIM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.VectorDim = n
		}
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		cfg.OllamaURL = v
	}
	if v := os.Getenv("AR_DB_PATH"); v != "" {
		cfg.DBPath = ExpandPath(v)
	}
	if v := os.Getenv("INDEX_DIR"); v != "" {
		cfg.IndexDir = ExpandPath(v)
	}
	if v := os.Getenv("INDEX_OVERSAMPLE_FACTOR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.OversampleFactor = n
		}
	}
	if v := os.Getenv("SHOW_SCORES"); v != "" {
		cfg.ShowScores = parseBool(v)
	}
	if v := os.Getenv("SCORE_MODE"); v != "" {
		cfg.ScoreMode = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// Validate checks the invariants the engine relies on.
func (c *Config) Validate() error {
	if c.VectorDim <= 0 {
		return fmt.Errorf("VECTOR_DIM must be positive, got %d", c.VectorDim)
	}
	if c.OversampleFactor < 1 {
		return fmt.Errorf("INDEX_OVERSAMPLE_FACTOR must be >= 1, got %d", c.OversampleFactor)
	}
	if !ValidScoreMode(c.ScoreMode) {
		return fmt.Errorf("invalid SCORE_MODE: %s (valid: %s, %s)", c.ScoreMode, ScoreModeCosine, ScoreModeANN)
	}
	return nil
}

// ValidScoreMode reports whether mode is a recognized score mode.
func ValidScoreMode(mode string) bool {
	return mode == ScoreModeCosine || mode == ScoreModeANN
}

// AbstractsIndexPath returns the abstracts index snapshot path.
func (c *Config) AbstractsIndexPath() string {
	return filepath.Join(c.IndexDir, AbstractsIndexFile)
}

// AuthorsIndexPath returns the authors index snapshot path.
func (c *Config) AuthorsIndexPath() string {
	return filepath.Join(c.IndexDir, AuthorsIndexFile)
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
