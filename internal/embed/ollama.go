package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	doclenserr "github.com/doclens/doclens/internal/errors"
)

// Ollama defaults.
const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "all-minilm"

	// ollamaPoolSize bounds idle connections to the local daemon.
	ollamaPoolSize = 4
)

// OllamaConfig configures the Ollama embedding client.
type OllamaConfig struct {
	Host       string
	Model      string
	Dimensions int // 0 = auto-detect from the first embedding
	Timeout    time.Duration
}

// ollamaEmbedRequest is the /api/embed request payload.
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbedResponse is the /api/embed response payload.
type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// OllamaEmbedder generates embeddings using Ollama's HTTP API.
type OllamaEmbedder struct {
	client    *http.Client
	transport *http.Transport
	config    OllamaConfig

	mu     sync.RWMutex
	dims   int
	closed bool
}

var _ Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder creates an Ollama embedder. Dimensions are detected
// from the first embedding when not configured.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	transport := &http.Transport{
		MaxIdleConns:        ollamaPoolSize,
		MaxIdleConnsPerHost: ollamaPoolSize,
		IdleConnTimeout:     10 * time.Second,
	}

	// No client-level timeout: the per-request context carries it, so a
	// single slow batch cannot silently extend the deadline.
	return &OllamaEmbedder{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
		dims:      cfg.Dimensions,
	}
}

// Embed generates the embedding for a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates one embedding per input text, in input order.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, doclenserr.EmbeddingError("embedder is closed", nil)
	}
	e.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	// The daemon handles at most DefaultBatchSize inputs per call;
	// larger batches are split and results reassembled in input order.
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += DefaultBatchSize {
		end := start + DefaultBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.embedChunk(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}

	e.mu.Lock()
	if e.dims == 0 && len(out) > 0 {
		e.dims = len(out[0])
	}
	e.mu.Unlock()

	return out, nil
}

// embedChunk performs one /api/embed call for up to DefaultBatchSize
// texts with its own timeout.
func (e *OllamaEmbedder) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	body, err := json.Marshal(ollamaEmbedRequest{Model: e.config.Model, Input: texts})
	if err != nil {
		return nil, doclenserr.EmbeddingError("marshal embed request", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
		e.config.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, doclenserr.EmbeddingError("build embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, doclenserr.EmbeddingError("call embedding model", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, doclenserr.EmbeddingError(
			fmt.Sprintf("embedding model returned status %d: %s",
				resp.StatusCode, strings.TrimSpace(string(msg))), nil)
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, doclenserr.EmbeddingError("decode embed response", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, doclenserr.EmbeddingError(
			fmt.Sprintf("model returned %d embeddings for %d inputs",
				len(result.Embeddings), len(texts)), nil)
	}

	vecs := make([][]float32, len(result.Embeddings))
	for i, v := range result.Embeddings {
		vecs[i] = normalizeVector(v)
	}
	return vecs, nil
}

// Dimensions returns the embedding dimension (0 until first use when
// auto-detecting).
func (e *OllamaEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

// ModelName returns the model identifier.
func (e *OllamaEmbedder) ModelName() string {
	return e.config.Model
}

// Close releases idle connections. The embedder cannot be used after.
func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.transport.CloseIdleConnections()
	return nil
}
