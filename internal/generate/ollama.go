package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	doclenserr "github.com/doclens/doclens/internal/errors"
)

// Ollama defaults.
const (
	DefaultHost  = "http://localhost:11434"
	DefaultModel = "tinyllama"

	// DefaultTimeout is the hard budget for one generation call. A stuck
	// model is treated as a failure, not waited on forever.
	DefaultTimeout = 60 * time.Second
)

// Config configures the Ollama generation client.
type Config struct {
	Host    string
	Model   string
	Timeout time.Duration
}

// generateRequest is the /api/generate request payload.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is the non-streaming /api/generate response payload.
type generateResponse struct {
	Response string `json:"response"`
}

// OllamaGenerator generates text through Ollama's HTTP API.
type OllamaGenerator struct {
	client *http.Client
	config Config
}

var _ Generator = (*OllamaGenerator)(nil)

// NewOllamaGenerator creates an Ollama generation client.
func NewOllamaGenerator(cfg Config) *OllamaGenerator {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &OllamaGenerator{
		client: &http.Client{},
		config: cfg,
	}
}

// Generate runs one bounded generation call and returns the model output.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Model:  g.config.Model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", doclenserr.New(doclenserr.ErrCodeGenerationFailed, "marshal generate request", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
		g.config.Host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", doclenserr.New(doclenserr.ErrCodeGenerationFailed, "build generate request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", doclenserr.New(doclenserr.ErrCodeGenerationTimedOut,
				fmt.Sprintf("generation exceeded %s", g.config.Timeout), err)
		}
		return "", doclenserr.New(doclenserr.ErrCodeGenerationFailed, "call generation model", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", doclenserr.New(doclenserr.ErrCodeGenerationFailed,
			fmt.Sprintf("generation model returned status %d: %s",
				resp.StatusCode, strings.TrimSpace(string(msg))), nil)
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if isTimeout(err) {
			return "", doclenserr.New(doclenserr.ErrCodeGenerationTimedOut,
				fmt.Sprintf("generation exceeded %s", g.config.Timeout), err)
		}
		return "", doclenserr.New(doclenserr.ErrCodeGenerationFailed, "decode generate response", err)
	}
	return result.Response, nil
}
