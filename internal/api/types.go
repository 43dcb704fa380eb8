// Package api defines the request and response types for DocLens
// operations, plus a service facade that validates requests and routes
// them to the indexing, search, answer, and repair layers. The CLI is
// one consumer; any future transport reuses the same surface.
package api

import (
	"github.com/doclens/doclens/internal/answer"
	"github.com/doclens/doclens/internal/repair"
	"github.com/doclens/doclens/internal/search"
)

// IndexRequest asks for one document to be (re-)indexed.
type IndexRequest struct {
	DocPath string `json:"doc_path"`
}

// IndexResponse reports a completed indexing run.
type IndexResponse struct {
	DocPath   string `json:"doc_path"`
	StorePath string `json:"store_path"`
	Segments  int    `json:"segments"`
}

// SearchRequest is an exact-phrase lookup against one document.
type SearchRequest struct {
	DocPath string `json:"doc_path"`
	Query   string `json:"query"`
}

// SearchResponse carries phrase matches with bracketed snippets.
type SearchResponse struct {
	Query   string                 `json:"query"`
	Results []search.LexicalResult `json:"results"`
}

// SemanticSearchRequest is a similarity query against one document.
type SemanticSearchRequest struct {
	DocPath string `json:"doc_path"`
	Query   string `json:"query"`
	TopK    int    `json:"top_k,omitempty"` // 0 = default
}

// SemanticResult is one similarity hit with its score rounded for
// presentation.
type SemanticResult struct {
	Score float64 `json:"score"`
	Page  int     `json:"page"`
	Line  int     `json:"line"`
	Text  string  `json:"text"`
}

// SemanticSearchResponse carries similarity hits in descending score
// order.
type SemanticSearchResponse struct {
	Query   string           `json:"query"`
	Results []SemanticResult `json:"results"`
}

// AskRequest is a question about one document.
type AskRequest struct {
	DocPath   string  `json:"doc_path"`
	Question  string  `json:"question"`
	Threshold float64 `json:"threshold,omitempty"` // 0 = default
}

// AskResponse is the synthesized answer with its supporting sources.
type AskResponse struct {
	Answer  string          `json:"answer"`
	Sources []answer.Source `json:"sources"`
}

// RepairRequest asks for a scan of every store under a root.
type RepairRequest struct {
	ScanRoot string `json:"scan_root"`
}

// RepairResponse summarizes a repair run.
type RepairResponse struct {
	Records  []repair.Record `json:"records"`
	Repaired int             `json:"repaired"`
	Reset    int             `json:"reset"`
	Skipped  int             `json:"skipped"`
	Failed   int             `json:"failed"`
}
