package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir()) // no global file
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Model != DefaultModel {
		t.Errorf("Model = %s, want %s", cfg.Model, DefaultModel)
	}
	if cfg.VectorDim != DefaultVectorDim {
		t.Errorf("VectorDim = %d, want %d", cfg.VectorDim, DefaultVectorDim)
	}
	if cfg.OversampleFactor != DefaultOversampleFactor {
		t.Errorf("OversampleFactor = %d, want %d", cfg.OversampleFactor, DefaultOversampleFactor)
	}
	if cfg.ScoreMode != ScoreModeCosine {
		t.Errorf("ScoreMode = %s, want %s", cfg.ScoreMode, ScoreModeCosine)
	}
	if cfg.ShowScores {
		t.Error("ShowScores should default to false")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	clearEnv(t)
	t.Setenv("EMBED_MODEL", "nomic-embed-text")
	t.Setenv("EMBED_DEVICE", "cuda")
	t.Setenv("VECTOR_DIM", "768")
	t.Setenv("INDEX_OVERSAMPLE_FACTOR", "3")
	t.Setenv("SHOW_SCORES", "true")
	t.Setenv("SCORE_MODE", "ann")
	t.Setenv("AR_DB_PATH", "/tmp/custom.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Model != "nomic-embed-text" {
		t.Errorf("Model = %s", cfg.Model)
	}
	if cfg.Device != "cuda" {
		t.Errorf("Device = %s", cfg.Device)
	}
	if cfg.VectorDim != 768 {
		t.Errorf("VectorDim = %d", cfg.VectorDim)
	}
	if cfg.OversampleFactor != 3 {
		t.Errorf("OversampleFactor = %d", cfg.OversampleFactor)
	}
	if !cfg.ShowScores {
		t.Error("ShowScores = false, want true")
	}
	if cfg.ScoreMode != ScoreModeANN {
		t.Errorf("ScoreMode = %s", cfg.ScoreMode)
	}
	if cfg.DBPath != "/tmp/custom.db" {
		t.Errorf("DBPath = %s", cfg.DBPath)
	}
}

func TestLoad_GlobalFileAndEnvPrecedence(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)
	clearEnv(t)

	dir := filepath.Join(configHome, GlobalConfigDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	content := "model: file-model\nvector_dim: 512\nscore_mode: ann\n"
	if err := os.WriteFile(filepath.Join(dir, GlobalConfigFile), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	// Env beats file; file beats default.
	t.Setenv("EMBED_MODEL", "env-model")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Model != "env-model" {
		t.Errorf("Model = %s, env should win over the file", cfg.Model)
	}
	if cfg.VectorDim != 512 {
		t.Errorf("VectorDim = %d, want 512 from the file", cfg.VectorDim)
	}
	if cfg.ScoreMode != ScoreModeANN {
		t.Errorf("ScoreMode = %s, want ann from the file", cfg.ScoreMode)
	}
}

func TestLoad_MalformedGlobalFile(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)
	clearEnv(t)

	dir := filepath.Join(configHome, GlobalConfigDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, GlobalConfigFile), []byte("{not yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil {
		t.Error("expected error for malformed global config")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "zero vector dim", mutate: func(c *Config) { c.VectorDim = 0 }, wantErr: "VECTOR_DIM"},
		{name: "zero oversample", mutate: func(c *Config) { c.OversampleFactor = 0 }, wantErr: "OVERSAMPLE"},
		{name: "bad score mode", mutate: func(c *Config) { c.ScoreMode = "l2" }, wantErr: "SCORE_MODE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %s", err, tt.wantErr)
			}
		})
	}
}

func TestIndexPaths(t *testing.T) {
	cfg := &Config{IndexDir: "/data/idx"}
	if got := cfg.AbstractsIndexPath(); got != filepath.Join("/data/idx", AbstractsIndexFile) {
		t.Errorf("AbstractsIndexPath() = %s", got)
	}
	if got := cfg.AuthorsIndexPath(); got != filepath.Join("/data/idx", AuthorsIndexFile) {
		t.Errorf("AuthorsIndexPath() = %s", got)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "tilde", input: "~/data/ar.db", want: filepath.Join(home, "data/ar.db")},
		{name: "absolute untouched", input: "/var/ar.db", want: "/var/ar.db"},
		{name: "relative untouched", input: "data/ar.db", want: "data/ar.db"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandPath(tt.input); got != tt.want {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// clearEnv blanks every config variable for the test's duration.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"EMBED_MODEL", "EMBED_DEVICE", "VECTOR_DIM", "OLLAMA_URL",
		"AR_DB_PATH", "INDEX_DIR", "INDEX_OVERSAMPLE_FACTOR",
		"SHOW_SCORES", "SCORE_MODE", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}
