package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config lookup at an empty directory so tests
// never pick up a real ~/.config/doclens/config.yaml.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 6, cfg.Search.TopK)
	assert.Equal(t, 20, cfg.Search.LexicalLimit)
	assert.InDelta(t, 0.35, cfg.Search.AnswerThreshold, 1e-9)
	assert.Equal(t, "all-minilm", cfg.Embeddings.Model)
	assert.Equal(t, 60*time.Second, cfg.Embeddings.Timeout)
	assert.Equal(t, "tinyllama", cfg.Generation.Model)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Positive(t, cfg.Indexing.Workers)
	assert.Equal(t, 50, cfg.Indexing.OCRTrigger)

	require.NoError(t, cfg.Validate())
}

func TestLoad_NoConfigFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Search.TopK)
}

func TestLoad_ProjectConfigOverridesDefaults(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	yaml := `
search:
  top_k: 10
  answer_threshold: 0.5
embeddings:
  model: nomic-embed-text
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".doclens.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Search.TopK)
	assert.InDelta(t, 0.5, cfg.Search.AnswerThreshold, 1e-9)
	assert.Equal(t, "nomic-embed-text", cfg.Embeddings.Model)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unset fields keep their defaults.
	assert.Equal(t, 20, cfg.Search.LexicalLimit)
	assert.Equal(t, "tinyllama", cfg.Generation.Model)
}

func TestLoad_UserConfigThenProjectConfig(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	userDir := filepath.Join(configHome, "doclens")
	require.NoError(t, os.MkdirAll(userDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(userDir, "config.yaml"),
		[]byte("search:\n  top_k: 8\nlogging:\n  level: warn\n"), 0o644))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".doclens.yaml"),
		[]byte("search:\n  top_k: 12\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	// Project config wins where both set a value.
	assert.Equal(t, 12, cfg.Search.TopK)
	// User config survives where the project is silent.
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_EnvOverridesEverything(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".doclens.yaml"),
		[]byte("search:\n  top_k: 12\n"), 0o644))

	t.Setenv("DOCLENS_TOP_K", "3")
	t.Setenv("DOCLENS_OLLAMA_HOST", "http://ollama.internal:11434")
	t.Setenv("DOCLENS_ANSWER_THRESHOLD", "0.7")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Search.TopK)
	assert.InDelta(t, 0.7, cfg.Search.AnswerThreshold, 1e-9)
	assert.Equal(t, "http://ollama.internal:11434", cfg.Embeddings.OllamaHost)
	assert.Equal(t, "http://ollama.internal:11434", cfg.Generation.OllamaHost)
}

func TestLoad_InvalidEnvValueIgnored(t *testing.T) {
	isolate(t)
	t.Setenv("DOCLENS_TOP_K", "not-a-number")
	t.Setenv("DOCLENS_ANSWER_THRESHOLD", "2.5")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Search.TopK)
	assert.InDelta(t, 0.35, cfg.Search.AnswerThreshold, 1e-9)
}

func TestLoad_MalformedYAML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".doclens.yaml"),
		[]byte("search: [not a mapping"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"zero top_k", func(c *Config) { c.Search.TopK = 0 }, "top_k"},
		{"threshold above one", func(c *Config) { c.Search.AnswerThreshold = 1.5 }, "answer_threshold"},
		{"negative threshold", func(c *Config) { c.Search.AnswerThreshold = -0.1 }, "answer_threshold"},
		{"unknown provider", func(c *Config) { c.Embeddings.Provider = "openai" }, "provider"},
		{"static provider ok", func(c *Config) { c.Embeddings.Provider = "static" }, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"zero workers", func(c *Config) { c.Indexing.Workers = 0 }, "workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	cfg := NewConfig()
	cfg.Search.TopK = 9
	cfg.Embeddings.Model = "mxbai-embed-large"

	path := filepath.Join(dir, ".doclens.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 9, loaded.Search.TopK)
	assert.Equal(t, "mxbai-embed-large", loaded.Embeddings.Model)
}
