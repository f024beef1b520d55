package services

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JLAD75/fileManagerRAG/models"
)

// wordRun builds a paragraph of n numbered words with a distinguishing prefix.
func wordRun(prefix string, n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return strings.Join(words, " ")
}

func TestChunkEmptyInput(t *testing.T) {
	c := NewChunkerService()
	assert.Nil(t, c.Chunk("", "f1", "doc.txt", models.FormatPlainText))
	assert.Nil(t, c.Chunk("   \n\t \n", "f1", "doc.txt", models.FormatPlainText))
}

func TestChunkSingleParagraph(t *testing.T) {
	c := NewChunkerService()
	chunks := c.Chunk("hello world, this is a short document", "f1", "doc.txt", models.FormatPlainText)

	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world, this is a short document", chunks[0].Content)
	assert.Equal(t, "f1", chunks[0].Metadata.SourceID)
	assert.Equal(t, "doc.txt", chunks[0].Metadata.SourceName)
	assert.Equal(t, 0, chunks[0].Metadata.ChunkIndex)
	assert.Equal(t, 1, chunks[0].Metadata.TotalChunks)
}

func TestChunkMetadataContiguous(t *testing.T) {
	c := NewChunkerService(WithChunkWords(20), WithOverlapWords(5))

	paragraphs := make([]string, 12)
	for i := range paragraphs {
		paragraphs[i] = wordRun(fmt.Sprintf("p%d_", i), 15)
	}
	chunks := c.Chunk(strings.Join(paragraphs, "\n\n"), "f1", "doc.txt", models.FormatPlainText)

	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Metadata.ChunkIndex)
		assert.Equal(t, len(chunks), chunk.Metadata.TotalChunks)
		assert.NotEmpty(t, chunk.Content)
	}
}

func TestChunkOverlapCarriedBetweenChunks(t *testing.T) {
	c := NewChunkerService(WithChunkWords(10), WithOverlapWords(4))

	text := wordRun("a", 10) + "\n\n" + wordRun("b", 8)
	chunks := c.Chunk(text, "f1", "doc.txt", models.FormatPlainText)

	require.Len(t, chunks, 2)
	firstWords := strings.Fields(chunks[0].Content)
	secondWords := strings.Fields(chunks[1].Content)

	// The second chunk opens with the last four words of the first.
	require.GreaterOrEqual(t, len(secondWords), 4)
	assert.Equal(t, firstWords[len(firstWords)-4:], secondWords[:4])
}

// wordOffset locates the start of sub inside words, or -1.
func wordOffset(words, sub []string) int {
	for i := 0; i+len(sub) <= len(words); i++ {
		if reflect.DeepEqual(words[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

func TestChunkStartAdvancesAtLeastCeilingMinusOverlap(t *testing.T) {
	c := NewChunkerService(WithChunkWords(10), WithOverlapWords(4))

	// Paragraphs of 7, 6 and 6 words close each chunk barely past the
	// overlap, the worst case for the carried seed.
	text := wordRun("a", 7) + "\n\n" + wordRun("b", 6) + "\n\n" + wordRun("c", 6)
	chunks := c.Chunk(text, "f1", "doc.txt", models.FormatPlainText)

	require.Len(t, chunks, 3)

	all := strings.Fields(text)
	prevStart := -1
	for i, chunk := range chunks {
		start := wordOffset(all, strings.Fields(chunk.Content))
		require.NotEqual(t, -1, start, "chunk %d does not align with the source words", i)
		if prevStart >= 0 {
			// The seed is capped so no chunk starts less than
			// chunkWords-overlapWords past its predecessor.
			assert.GreaterOrEqual(t, start-prevStart, 6)
		}
		prevStart = start
	}

	// The capped seed carries exactly one word here.
	secondWords := strings.Fields(chunks[1].Content)
	assert.Equal(t, []string{"a6", "b0"}, secondWords[:2])
}

func TestChunkOversizedParagraphWindowed(t *testing.T) {
	c := NewChunkerService(WithChunkWords(10), WithOverlapWords(4))

	chunks := c.Chunk(wordRun("w", 25), "f1", "doc.txt", models.FormatPlainText)

	// Window of 10, step 6: [0:10] [6:16] [12:22] [18:25].
	require.Len(t, chunks, 4)
	for i := 0; i < len(chunks)-1; i++ {
		prev := strings.Fields(chunks[i].Content)
		next := strings.Fields(chunks[i+1].Content)
		assert.Equal(t, prev[len(prev)-4:], next[:4], "chunks %d and %d must share the overlap window", i, i+1)
	}
	last := strings.Fields(chunks[3].Content)
	assert.Equal(t, "w24", last[len(last)-1])
}

func TestChunkCapStopsEmission(t *testing.T) {
	c := NewChunkerService(WithChunkWords(10), WithOverlapWords(2), WithMaxChunks(3))

	paragraphs := make([]string, 20)
	for i := range paragraphs {
		paragraphs[i] = wordRun(fmt.Sprintf("p%d_", i), 9)
	}
	chunks := c.Chunk(strings.Join(paragraphs, "\n\n"), "f1", "doc.txt", models.FormatPlainText)

	require.Len(t, chunks, 3)
	for _, chunk := range chunks {
		assert.Equal(t, 3, chunk.Metadata.TotalChunks)
	}
}

func TestChunkDeterministic(t *testing.T) {
	c := NewChunkerService(WithChunkWords(15), WithOverlapWords(5))

	text := wordRun("a", 40) + "\n\n" + wordRun("b", 12) + "\n\n" + wordRun("c", 30)
	first := c.Chunk(text, "f1", "doc.txt", models.FormatPlainText)
	second := c.Chunk(text, "f1", "doc.txt", models.FormatPlainText)

	assert.True(t, reflect.DeepEqual(first, second))
}

func buildSheetText(sheets, rows int) string {
	var sb strings.Builder
	for s := 0; s < sheets; s++ {
		fmt.Fprintf(&sb, "=== Sheet: Sheet%d (%d rows, 2 columns) ===\n", s+1, rows)
		sb.WriteString("Headers: name, amount\n")
		for r := 0; r < rows; r++ {
			fmt.Fprintf(&sb, "name: item%d | amount: %d\n", r, r*10)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func TestChunkSpreadsheetBatchesRows(t *testing.T) {
	c := NewChunkerService()

	chunks := c.Chunk(buildSheetText(3, 40), "f1", "book.xlsx", models.FormatSpreadsheet)

	// ceil(40/15) = 3 chunks per sheet.
	require.Len(t, chunks, 9)
	for _, chunk := range chunks {
		lines := strings.Split(chunk.Content, "\n")
		require.GreaterOrEqual(t, len(lines), 3)
		assert.True(t, strings.HasPrefix(lines[0], "=== Sheet:"), "every chunk repeats the sheet header")
		assert.True(t, strings.HasPrefix(lines[1], "Headers:"), "every chunk repeats the column line")
	}

	// First chunk of a sheet carries a full batch, the last the remainder.
	assert.Len(t, strings.Split(chunks[0].Content, "\n"), 2+15)
	assert.Len(t, strings.Split(chunks[2].Content, "\n"), 2+10)
}

func TestChunkSpreadsheetWithoutMarkersFallsBack(t *testing.T) {
	c := NewChunkerService()

	chunks := c.Chunk("just some plain text without sheet markers", "f1", "book.xlsx", models.FormatSpreadsheet)

	require.Len(t, chunks, 1)
	assert.Equal(t, "just some plain text without sheet markers", chunks[0].Content)
}

func TestChunkWordDocumentMergesSmallSections(t *testing.T) {
	c := NewChunkerService(WithChunkWords(50), WithOverlapWords(10), WithMinSectionWords(20))

	text := strings.Join([]string{
		"# Intro",
		wordRun("intro", 10),
		"## Detail",
		wordRun("detail", 10),
		"## More",
		wordRun("more", 45),
	}, "\n")
	chunks := c.Chunk(text, "f1", "doc.docx", models.FormatWordDocument)

	// Intro and Detail merge (22 words < 50); More would overflow, and the
	// accumulated chunk is past the floor, so it closes first.
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0].Content, "# Intro")
	assert.Contains(t, chunks[0].Content, "## Detail")
	assert.NotContains(t, chunks[0].Content, "## More")
	assert.True(t, strings.HasPrefix(chunks[1].Content, "## More"))
}

func TestChunkWordDocumentBelowFloorKeepsFilling(t *testing.T) {
	c := NewChunkerService(WithChunkWords(50), WithOverlapWords(10), WithMinSectionWords(30))

	text := strings.Join([]string{
		"# A",
		wordRun("a", 10),
		"# B",
		wordRun("b", 45),
	}, "\n")
	chunks := c.Chunk(text, "f1", "doc.docx", models.FormatWordDocument)

	// 12 accumulated words are under the floor, so section B joins the open
	// chunk even though the ceiling is exceeded.
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "# A")
	assert.Contains(t, chunks[0].Content, "# B")
}

func TestChunkWordDocumentOversizedSectionSplit(t *testing.T) {
	c := NewChunkerService(WithChunkWords(20), WithOverlapWords(5), WithMinSectionWords(5))

	text := "## Big Section\n" + wordRun("body", 50)
	chunks := c.Chunk(text, "f1", "doc.docx", models.FormatWordDocument)

	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.True(t, strings.HasPrefix(chunk.Content, "## Big Section"),
			"every piece of a split section repeats the heading marker")
	}
}

func TestParseHeadingLine(t *testing.T) {
	cases := []struct {
		line  string
		level int
		ok    bool
	}{
		{"# Title", 1, true},
		{"## Sub", 2, true},
		{"#### Deep", 4, true},
		{"##### Deeper", 4, true}, // levels past the last tier share its marker
		{"#NoSpace", 0, false},
		{"plain text", 0, false},
		{"####### seven", 0, false},
	}
	for _, tc := range cases {
		level, ok := parseHeadingLine(tc.line)
		assert.Equal(t, tc.ok, ok, "line %q", tc.line)
		if tc.ok {
			assert.Equal(t, tc.level, level, "line %q", tc.line)
		}
	}
}
