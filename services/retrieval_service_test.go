package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JLAD75/fileManagerRAG/models"
)

type stubSearcher struct {
	results []models.VectorRecord
}

func (s *stubSearcher) SimilaritySearch(ctx context.Context, query, userID string, k int) []models.VectorRecord {
	return s.results
}

func record(sourceID, sourceName, content string) models.VectorRecord {
	return models.VectorRecord{
		Content:  content,
		Metadata: models.ChunkMetadata{SourceID: sourceID, SourceName: sourceName},
	}
}

func TestRetrieveEmptyLibrary(t *testing.T) {
	svc := NewRetrievalService(&stubSearcher{}, nil)

	result := svc.Retrieve(context.Background(), "quelle est la facture", "u1", "gpt-4o")

	assert.Empty(t, result.Chunks)
	assert.Empty(t, result.Sources)
	assert.Equal(t, NoDocumentsMessage, result.Message)
}

func TestRerankByKeywordOccurrences(t *testing.T) {
	candidates := []models.VectorRecord{
		record("f1", "a.txt", "nothing relevant here"),
		record("f2", "b.txt", "facture facture facture"),
		record("f3", "c.txt", "one facture mention"),
	}

	ranked := rerankByKeywords("montant facture", candidates)

	require.Len(t, ranked, 3)
	assert.Equal(t, "f2", ranked[0].Metadata.SourceID)
	assert.Equal(t, "f3", ranked[1].Metadata.SourceID)
	assert.Equal(t, "f1", ranked[2].Metadata.SourceID)
}

func TestRerankTiesKeepSimilarityOrder(t *testing.T) {
	candidates := []models.VectorRecord{
		record("f1", "a.txt", "facture un"),
		record("f2", "b.txt", "facture deux"),
		record("f3", "c.txt", "facture trois"),
	}

	ranked := rerankByKeywords("facture", candidates)

	require.Len(t, ranked, 3)
	assert.Equal(t, "f1", ranked[0].Metadata.SourceID)
	assert.Equal(t, "f2", ranked[1].Metadata.SourceID)
	assert.Equal(t, "f3", ranked[2].Metadata.SourceID)
}

func TestRerankIgnoresShortTokens(t *testing.T) {
	candidates := []models.VectorRecord{
		record("f1", "a.txt", "le la un de et"),
		record("f2", "b.txt", "contrat signé"),
	}

	// Every query token has length <= 3, so the order is untouched.
	ranked := rerankByKeywords("le la un de", candidates)

	require.Len(t, ranked, 2)
	assert.Equal(t, "f1", ranked[0].Metadata.SourceID)
	assert.Equal(t, "f2", ranked[1].Metadata.SourceID)
}

func TestDedupeSourcesFirstPerFile(t *testing.T) {
	ranked := []models.VectorRecord{
		record("f1", "a.txt", "best chunk of a"),
		record("f2", "b.txt", "best chunk of b"),
		record("f1", "a.txt", "second chunk of a"),
	}

	sources := dedupeSources(ranked)

	require.Len(t, sources, 2)
	assert.Equal(t, "f1", sources[0].FileID)
	assert.Equal(t, "best chunk of a", sources[0].Content)
	assert.Equal(t, "f2", sources[1].FileID)
}

func TestDedupeSourcesPreviewTruncated(t *testing.T) {
	long := strings.Repeat("x", sourcePreviewChars+50)
	sources := dedupeSources([]models.VectorRecord{record("f1", "a.txt", long)})

	require.Len(t, sources, 1)
	assert.Len(t, sources[0].Content, sourcePreviewChars+len("..."))
	assert.True(t, strings.HasSuffix(sources[0].Content, "..."))
}

func TestApplyBudgetFullFit(t *testing.T) {
	ranked := []models.VectorRecord{
		record("f1", "a.txt", strings.Repeat("a", 100)),
		record("f2", "b.txt", strings.Repeat("b", 100)),
	}

	bounded := applyBudget(ranked, 1000)
	assert.Len(t, bounded, 2)
}

func TestApplyBudgetTruncatesWhenFragmentWorthIt(t *testing.T) {
	ranked := []models.VectorRecord{
		record("f1", "a.txt", strings.Repeat("a", 1000)),
		record("f2", "b.txt", strings.Repeat("b", 1000)),
		record("f3", "c.txt", strings.Repeat("c", 1000)),
	}

	// 1600 chars of budget: the second chunk is cut to the remaining 600,
	// which is above the fragment floor; the third never appears.
	bounded := applyBudget(ranked, 1600)

	require.Len(t, bounded, 2)
	assert.Len(t, bounded[0].Content, 1000)
	assert.Len(t, bounded[1].Content, 600)
}

func TestApplyBudgetDropsTinyFragment(t *testing.T) {
	ranked := []models.VectorRecord{
		record("f1", "a.txt", strings.Repeat("a", 1000)),
		record("f2", "b.txt", strings.Repeat("b", 1000)),
	}

	// Only 200 chars remain for the second chunk, under the fragment floor.
	bounded := applyBudget(ranked, 1200)

	require.Len(t, bounded, 1)
	assert.Len(t, bounded[0].Content, 1000)
}

func TestRetrieveBoundsToModelBudget(t *testing.T) {
	big := strings.Repeat("facture ", 3000) // ~24000 chars each
	searcher := &stubSearcher{results: []models.VectorRecord{
		record("f1", "a.txt", big),
		record("f2", "b.txt", big),
		record("f3", "c.txt", big),
	}}
	svc := NewRetrievalService(searcher, nil)

	result := svc.Retrieve(context.Background(), "facture", "u1", "gpt-4")

	// gpt-4: 8192 tokens / 2 * 4 = 16384 chars of budget.
	total := 0
	for _, chunk := range result.Chunks {
		total += len(chunk.Content)
	}
	assert.LessOrEqual(t, total, MaxContextChars("gpt-4"))
	assert.NotEmpty(t, result.Chunks)
	assert.Len(t, result.Sources, 3, "sources are deduped from the full ranked list, not the bounded one")
}

func TestMaxContextChars(t *testing.T) {
	assert.Equal(t, 16384, MaxContextChars("gpt-4"))
	assert.Equal(t, 256000, MaxContextChars("gpt-4o-mini"))
	assert.Equal(t, 800000, MaxContextChars("gpt-5-chat-latest"))
	assert.Equal(t, 2097152, MaxContextChars("gemini-2.5-flash"))
	assert.Equal(t, 16384, MaxContextChars("unknown-model"))
}
