package api

import (
	"context"
	"math"
	"strings"

	"github.com/doclens/doclens/internal/answer"
	doclenserr "github.com/doclens/doclens/internal/errors"
	"github.com/doclens/doclens/internal/index"
	"github.com/doclens/doclens/internal/repair"
	"github.com/doclens/doclens/internal/search"
	"github.com/doclens/doclens/internal/store"
)

// scorePlaces is the precision of scores in semantic search responses.
const scorePlaces = 4

// Service routes validated requests to the underlying components.
type Service struct {
	pipeline    *index.Pipeline
	retriever   *search.Retriever
	synthesizer *answer.Synthesizer
	guardian    *repair.Guardian
}

// NewService wires a service from its components. Any component may be
// nil if the corresponding operations are never invoked.
func NewService(pipeline *index.Pipeline, retriever *search.Retriever, synthesizer *answer.Synthesizer, guardian *repair.Guardian) *Service {
	return &Service{
		pipeline:    pipeline,
		retriever:   retriever,
		synthesizer: synthesizer,
		guardian:    guardian,
	}
}

// Index runs the indexing pipeline for one document.
func (s *Service) Index(ctx context.Context, req IndexRequest) (IndexResponse, error) {
	if strings.TrimSpace(req.DocPath) == "" {
		return IndexResponse{}, doclenserr.ValidationError("doc_path is required", nil)
	}

	segments, err := s.pipeline.Index(ctx, req.DocPath)
	if err != nil {
		return IndexResponse{}, err
	}
	return IndexResponse{
		DocPath:   req.DocPath,
		StorePath: store.PathFor(req.DocPath),
		Segments:  segments,
	}, nil
}

// IndexAll indexes documents concurrently, with workers bounding
// parallelism. Per-document failures are reported in the results and do
// not abort the batch.
func (s *Service) IndexAll(ctx context.Context, docPaths []string, workers int) []index.Result {
	return s.pipeline.IndexAll(ctx, docPaths, workers)
}

// Search runs an exact-phrase lookup against one document's store.
func (s *Service) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	if strings.TrimSpace(req.DocPath) == "" {
		return SearchResponse{}, doclenserr.ValidationError("doc_path is required", nil)
	}

	results, err := s.retriever.Lexical(ctx, store.PathFor(req.DocPath), req.Query)
	if err != nil {
		return SearchResponse{}, err
	}
	if results == nil {
		results = []search.LexicalResult{}
	}
	return SearchResponse{Query: req.Query, Results: results}, nil
}

// SemanticSearch runs a similarity query against one document's store.
func (s *Service) SemanticSearch(ctx context.Context, req SemanticSearchRequest) (SemanticSearchResponse, error) {
	if strings.TrimSpace(req.DocPath) == "" {
		return SemanticSearchResponse{}, doclenserr.ValidationError("doc_path is required", nil)
	}

	hits, err := s.retriever.Semantic(ctx, store.PathFor(req.DocPath), req.Query, req.TopK)
	if err != nil {
		return SemanticSearchResponse{}, err
	}

	results := make([]SemanticResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, SemanticResult{
			Score: roundScore(h.Score, scorePlaces),
			Page:  h.Page,
			Line:  h.Line,
			Text:  h.Text,
		})
	}
	return SemanticSearchResponse{Query: req.Query, Results: results}, nil
}

// Ask synthesizes an answer for a question about one document.
func (s *Service) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	if strings.TrimSpace(req.DocPath) == "" {
		return AskResponse{}, doclenserr.ValidationError("doc_path is required", nil)
	}
	if strings.TrimSpace(req.Question) == "" {
		return AskResponse{}, doclenserr.ValidationError("question is required", nil)
	}

	resp, err := s.synthesizer.Answer(ctx, store.PathFor(req.DocPath), req.Question, req.Threshold)
	if err != nil {
		return AskResponse{}, err
	}
	return AskResponse{Answer: resp.Answer, Sources: resp.Sources}, nil
}

// Repair scans every store under the requested root.
func (s *Service) Repair(ctx context.Context, req RepairRequest) (RepairResponse, error) {
	if strings.TrimSpace(req.ScanRoot) == "" {
		return RepairResponse{}, doclenserr.ValidationError("scan_root is required", nil)
	}

	records, err := s.guardian.Run(ctx, req.ScanRoot)
	if err != nil {
		return RepairResponse{}, err
	}

	resp := RepairResponse{Records: records}
	for _, rec := range records {
		switch rec.Outcome {
		case repair.OutcomeRepaired:
			resp.Repaired++
		case repair.OutcomeReset:
			resp.Reset++
		case repair.OutcomeSkipped:
			resp.Skipped++
		case repair.OutcomeUnrecoverable:
			resp.Failed++
		}
	}
	return resp, nil
}

func roundScore(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
