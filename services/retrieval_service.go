package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/JLAD75/fileManagerRAG/models"
)

const (
	// retrievalCandidates is the size of the initial vector candidate set.
	retrievalCandidates = 10

	// minKeywordLen: query tokens must be longer than this to count in the
	// lexical rerank.
	minKeywordLen = 3

	// minFragmentChars is the smallest truncated chunk fragment still worth
	// including in the prompt context.
	minFragmentChars = 500

	// sourcePreviewChars is the citation excerpt length.
	sourcePreviewChars = 200
)

// NoDocumentsMessage is returned when a user queries with nothing indexed.
// A normal outcome, not an error.
const NoDocumentsMessage = "Je n'ai trouvé aucun document pertinent pour répondre à votre question. Veuillez d'abord télécharger des documents."

// VectorSearcher is the slice of the index service the orchestrator needs.
type VectorSearcher interface {
	SimilaritySearch(ctx context.Context, query, userID string, k int) []models.VectorRecord
}

// RetrievalService turns a query into a ranked, deduplicated, budget-bounded
// chunk list ready for prompting.
type RetrievalService struct {
	searcher VectorSearcher
	logger   *slog.Logger
}

// NewRetrievalService creates the retrieval orchestrator.
func NewRetrievalService(searcher VectorSearcher, logger *slog.Logger) *RetrievalService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrievalService{searcher: searcher, logger: logger}
}

// Retrieve fetches candidates by vector similarity, boosts them by keyword
// overlap, deduplicates citations per source file, and bounds the total
// context to the target model's character budget.
func (s *RetrievalService) Retrieve(ctx context.Context, query, userID, modelID string) *models.RetrievalResult {
	candidates := s.searcher.SimilaritySearch(ctx, query, userID, retrievalCandidates)
	if len(candidates) == 0 {
		return &models.RetrievalResult{Message: NoDocumentsMessage}
	}

	ranked := rerankByKeywords(query, candidates)
	sources := dedupeSources(ranked)
	bounded := applyBudget(ranked, MaxContextChars(modelID))

	s.logger.Info("retrieved context",
		"user_id", userID,
		"candidates", len(candidates),
		"bounded", len(bounded),
		"sources", len(sources),
	)
	return &models.RetrievalResult{Chunks: bounded, Sources: sources}
}

// rerankByKeywords counts occurrences of the query's keywords (tokens longer
// than minKeywordLen, case-insensitive) in each candidate and sorts by that
// score, descending. The sort is stable: ties keep vector-similarity order.
// Scores are raw occurrence counts, deliberately not normalized for chunk
// length.
func rerankByKeywords(query string, candidates []models.VectorRecord) []models.VectorRecord {
	var keywords []string
	for _, token := range strings.Fields(strings.ToLower(query)) {
		if len(token) > minKeywordLen {
			keywords = append(keywords, token)
		}
	}

	ranked := append([]models.VectorRecord(nil), candidates...)
	if len(keywords) == 0 {
		return ranked
	}

	scores := make([]int, len(ranked))
	for i, rec := range ranked {
		content := strings.ToLower(rec.Content)
		for _, keyword := range keywords {
			scores[i] += strings.Count(content, keyword)
		}
	}

	order := make([]int, len(ranked))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	out := make([]models.VectorRecord, len(ranked))
	for i, idx := range order {
		out[i] = ranked[idx]
	}
	return out
}

// dedupeSources keeps the first (highest-ranked) chunk per source file as
// that file's citation entry.
func dedupeSources(ranked []models.VectorRecord) []models.SourceRef {
	seen := make(map[string]bool, len(ranked))
	sources := make([]models.SourceRef, 0, len(ranked))
	for _, rec := range ranked {
		if seen[rec.Metadata.SourceID] {
			continue
		}
		seen[rec.Metadata.SourceID] = true

		preview := rec.Content
		if len(preview) > sourcePreviewChars {
			preview = preview[:sourcePreviewChars] + "..."
		}
		sources = append(sources, models.SourceRef{
			FileID:   rec.Metadata.SourceID,
			FileName: rec.Metadata.SourceName,
			Content:  preview,
		})
	}
	return sources
}

// applyBudget accumulates ranked chunks into the character budget. The first
// chunk that would overflow is truncated when at least minFragmentChars of
// budget remain, and dropped otherwise; nothing after it is included.
func applyBudget(ranked []models.VectorRecord, maxChars int) []models.VectorRecord {
	bounded := make([]models.VectorRecord, 0, len(ranked))
	used := 0
	for _, rec := range ranked {
		length := len(rec.Content)
		if used+length <= maxChars {
			bounded = append(bounded, rec)
			used += length
			continue
		}
		if remaining := maxChars - used; remaining > minFragmentChars {
			truncated := rec
			truncated.Content = rec.Content[:remaining]
			bounded = append(bounded, truncated)
		}
		break
	}
	return bounded
}
