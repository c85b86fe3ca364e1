package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileConfig is the subset of settings accepted from the global config file
// at ~/.config/ar/config.yml. Environment variables override every field.
type FileConfig struct {
	Model            string `yaml:"model,omitempty"`
	Device           string `yaml:"device,omitempty"`
	VectorDim        int    `yaml:"vector_dim,omitempty"`
	OllamaURL        string `yaml:"ollama_url,omitempty"`
	DBPath           string `yaml:"db_path,omitempty"`
	IndexDir         string `yaml:"index_dir,omitempty"`
	OversampleFactor int    `yaml:"oversample_factor,omitempty"`
	ShowScores       *bool  `yaml:"show_scores,omitempty"`
	ScoreMode        string `yaml:"score_mode,omitempty"`
	LogLevel         string `yaml:"log_level,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "ar"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/ar/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// loadGlobalFile reads the global config file if present.
// A missing file is not an error; a malformed one is.
func loadGlobalFile() (*FileConfig, error) {
	path := GlobalConfigPath()
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	return &fc, nil
}

// applyTo copies set fields onto cfg.
func (f *FileConfig) applyTo(cfg *Config) {
	if f.Model != "" {
		cfg.Model = f.Model
	}
	if f.Device != "" {
		cfg.Device = f.Device
	}
	if f.VectorDim > 0 {
		cfg.VectorDim = f.VectorDim
	}
	if f.OllamaURL != "" {
		cfg.OllamaURL = f.OllamaURL
	}
	if f.DBPath != "" {
		cfg.DBPath = ExpandPath(f.DBPath)
	}
	if f.IndexDir != "" {
		cfg.IndexDir = ExpandPath(f.IndexDir)
	}
	if f.OversampleFactor > 0 {
		cfg.OversampleFactor = f.OversampleFactor
	}
	if f.ShowScores != nil {
		cfg.ShowScores = *f.ShowScores
	}
	if f.ScoreMode != "" {
		cfg.ScoreMode = f.ScoreMode
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
}
