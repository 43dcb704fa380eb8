// Package config loads and validates DocLens configuration.
//
// Configuration is applied in order of increasing precedence: hardcoded
// defaults, the user config file, a project config file, then DOCLENS_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete DocLens configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Generation GenerationConfig `yaml:"generation" json:"generation"`
	Indexing   IndexingConfig   `yaml:"indexing" json:"indexing"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// PathsConfig configures where documents and their index stores live.
type PathsConfig struct {
	// UploadRoot is the directory scanned for documents and stores.
	// Defaults to ~/.doclens/uploads.
	UploadRoot string `yaml:"upload_root" json:"upload_root"`
}

// SearchConfig configures retrieval parameters.
type SearchConfig struct {
	// TopK is the number of semantic results returned per query.
	TopK int `yaml:"top_k" json:"top_k"`
	// LexicalLimit caps phrase-match results per query.
	LexicalLimit int `yaml:"lexical_limit" json:"lexical_limit"`
	// AnswerThreshold is the minimum similarity score before answer
	// generation is attempted (0.0-1.0).
	AnswerThreshold float64 `yaml:"answer_threshold" json:"answer_threshold"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the embedder: "ollama", "static", or empty for
	// ollama with static fallback.
	Provider   string        `yaml:"provider" json:"provider"`
	Model      string        `yaml:"model" json:"model"`
	Dimensions int           `yaml:"dimensions" json:"dimensions"` // 0 = auto-detect
	BatchSize  int           `yaml:"batch_size" json:"batch_size"`
	OllamaHost string        `yaml:"ollama_host" json:"ollama_host"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	CacheSize  int           `yaml:"cache_size" json:"cache_size"`
}

// GenerationConfig configures the answer generator.
type GenerationConfig struct {
	Model      string        `yaml:"model" json:"model"`
	OllamaHost string        `yaml:"ollama_host" json:"ollama_host"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
}

// IndexingConfig configures the indexing pipeline.
type IndexingConfig struct {
	// Workers bounds concurrent document indexing.
	Workers int `yaml:"workers" json:"workers"`
	// OCRTrigger is the extracted-text length below which a page falls
	// back to OCR.
	OCRTrigger int `yaml:"ocr_trigger" json:"ocr_trigger"`
	// RasterDPI is the resolution used when rasterizing pages for OCR.
	RasterDPI int `yaml:"raster_dpi" json:"raster_dpi"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	// FilePath is the log destination. Empty selects the default under
	// the user's home directory.
	FilePath string `yaml:"file_path" json:"file_path"`
}

// NewConfig creates a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			UploadRoot: defaultUploadRoot(),
		},
		Search: SearchConfig{
			TopK:            6,
			LexicalLimit:    20,
			AnswerThreshold: 0.35,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "", // ollama with static fallback
			Model:      "all-minilm",
			Dimensions: 0, // auto-detect from the first response
			BatchSize:  256,
			OllamaHost: "", // empty uses http://localhost:11434
			Timeout:    60 * time.Second,
			CacheSize:  1000,
		},
		Generation: GenerationConfig{
			Model:      "tinyllama",
			OllamaHost: "",
			Timeout:    60 * time.Second,
		},
		Indexing: IndexingConfig{
			Workers:    runtime.NumCPU(),
			OCRTrigger: 50,
			RasterDPI:  300,
		},
		Logging: LoggingConfig{
			Level:    "info",
			FilePath: "",
		},
	}
}

func defaultUploadRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".doclens", "uploads")
	}
	return filepath.Join(home, ".doclens", "uploads")
}

// UserConfigPath returns the path to the user configuration file,
// following the XDG Base Directory layout.
func UserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "doclens", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "doclens", "config.yaml")
	}
	return filepath.Join(home, ".config", "doclens", "config.yaml")
}

// Load loads configuration for a project directory. Precedence, lowest
// to highest: defaults, user config, project config (.doclens.yaml or
// .doclens.yml in dir), DOCLENS_* environment variables.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := UserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("load user config: %w", err)
		}
	}

	if err := cfg.loadFromDir(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFromDir loads the project config file if one exists. No file is
// fine; defaults apply.
func (c *Config) loadFromDir(dir string) error {
	for _, name := range []string{".doclens.yaml", ".doclens.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML merges a YAML file's non-zero values over the current config.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c. Zero values mean
// "not set" and leave the current value intact.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Paths.UploadRoot != "" {
		c.Paths.UploadRoot = other.Paths.UploadRoot
	}

	if other.Search.TopK != 0 {
		c.Search.TopK = other.Search.TopK
	}
	if other.Search.LexicalLimit != 0 {
		c.Search.LexicalLimit = other.Search.LexicalLimit
	}
	if other.Search.AnswerThreshold != 0 {
		c.Search.AnswerThreshold = other.Search.AnswerThreshold
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.Timeout != 0 {
		c.Embeddings.Timeout = other.Embeddings.Timeout
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}

	if other.Generation.Model != "" {
		c.Generation.Model = other.Generation.Model
	}
	if other.Generation.OllamaHost != "" {
		c.Generation.OllamaHost = other.Generation.OllamaHost
	}
	if other.Generation.Timeout != 0 {
		c.Generation.Timeout = other.Generation.Timeout
	}

	if other.Indexing.Workers != 0 {
		c.Indexing.Workers = other.Indexing.Workers
	}
	if other.Indexing.OCRTrigger != 0 {
		c.Indexing.OCRTrigger = other.Indexing.OCRTrigger
	}
	if other.Indexing.RasterDPI != 0 {
		c.Indexing.RasterDPI = other.Indexing.RasterDPI
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.FilePath != "" {
		c.Logging.FilePath = other.Logging.FilePath
	}
}

// applyEnvOverrides applies DOCLENS_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCLENS_UPLOAD_ROOT"); v != "" {
		c.Paths.UploadRoot = v
	}
	if v := os.Getenv("DOCLENS_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.TopK = k
		}
	}
	if v := os.Getenv("DOCLENS_ANSWER_THRESHOLD"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil && t >= 0 && t <= 1 {
			c.Search.AnswerThreshold = t
		}
	}
	if v := os.Getenv("DOCLENS_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("DOCLENS_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("DOCLENS_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
		c.Generation.OllamaHost = v
	}
	if v := os.Getenv("DOCLENS_GENERATION_MODEL"); v != "" {
		c.Generation.Model = v
	}
	if v := os.Getenv("DOCLENS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DOCLENS_INDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Indexing.Workers = n
		}
	}
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.Search.TopK <= 0 {
		return fmt.Errorf("search.top_k must be positive, got %d", c.Search.TopK)
	}
	if c.Search.LexicalLimit <= 0 {
		return fmt.Errorf("search.lexical_limit must be positive, got %d", c.Search.LexicalLimit)
	}
	if c.Search.AnswerThreshold < 0 || c.Search.AnswerThreshold > 1 {
		return fmt.Errorf("search.answer_threshold must be between 0 and 1, got %f", c.Search.AnswerThreshold)
	}

	if c.Embeddings.Provider != "" {
		validProviders := map[string]bool{"ollama": true, "static": true}
		if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
			return fmt.Errorf("embeddings.provider must be 'ollama', 'static', or empty (auto), got %s", c.Embeddings.Provider)
		}
	}
	if c.Embeddings.BatchSize <= 0 {
		return fmt.Errorf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}

	if c.Indexing.Workers <= 0 {
		return fmt.Errorf("indexing.workers must be positive, got %d", c.Indexing.Workers)
	}
	if c.Indexing.OCRTrigger < 0 {
		return fmt.Errorf("indexing.ocr_trigger must be non-negative, got %d", c.Indexing.OCRTrigger)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
