package services

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/JLAD75/fileManagerRAG/models"
)

// Chunking defaults. The word ceiling and overlap drive the default
// paragraph strategy; spreadsheets batch rows instead; word documents merge
// heading sections between the floor and the ceiling.
const (
	DefaultChunkWords      = 600
	DefaultOverlapWords    = 300
	DefaultRowsPerChunk    = 15
	DefaultMinSectionWords = 300
	DefaultMaxChunks       = 1000
)

// maxChunkInputChars bounds the text accepted for chunking.
const maxChunkInputChars = 1_000_000

var paragraphSplit = regexp.MustCompile(`\n\s*\n`)

// ChunkerService splits extracted text into ordered, overlapping retrieval
// units using a format-aware strategy.
type ChunkerService struct {
	chunkWords      int
	overlapWords    int
	rowsPerChunk    int
	minSectionWords int
	maxChunks       int
	logger          *slog.Logger
}

// ChunkerOption configures the chunker.
type ChunkerOption func(*ChunkerService)

// WithChunkWords sets the word-count ceiling per chunk.
func WithChunkWords(n int) ChunkerOption {
	return func(c *ChunkerService) {
		if n > 0 {
			c.chunkWords = n
		}
	}
}

// WithOverlapWords sets the overlap window carried between chunks.
func WithOverlapWords(n int) ChunkerOption {
	return func(c *ChunkerService) {
		if n >= 0 {
			c.overlapWords = n
		}
	}
}

// WithRowsPerChunk sets the spreadsheet row batch size.
func WithRowsPerChunk(n int) ChunkerOption {
	return func(c *ChunkerService) {
		if n > 0 {
			c.rowsPerChunk = n
		}
	}
}

// WithMinSectionWords sets the floor a merged section chunk must reach
// before it may close.
func WithMinSectionWords(n int) ChunkerOption {
	return func(c *ChunkerService) {
		if n >= 0 {
			c.minSectionWords = n
		}
	}
}

// WithMaxChunks sets the hard cap on chunks per file.
func WithMaxChunks(n int) ChunkerOption {
	return func(c *ChunkerService) {
		if n > 0 {
			c.maxChunks = n
		}
	}
}

// WithChunkerLogger sets the logger.
func WithChunkerLogger(logger *slog.Logger) ChunkerOption {
	return func(c *ChunkerService) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChunkerService creates a chunker with the given options.
func NewChunkerService(opts ...ChunkerOption) *ChunkerService {
	c := &ChunkerService{
		chunkWords:      DefaultChunkWords,
		overlapWords:    DefaultOverlapWords,
		rowsPerChunk:    DefaultRowsPerChunk,
		minSectionWords: DefaultMinSectionWords,
		maxChunks:       DefaultMaxChunks,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	// Overlap must leave the window room to advance.
	if c.overlapWords >= c.chunkWords {
		c.overlapWords = c.chunkWords / 2
	}
	return c
}

// Chunk splits text into the ordered chunk sequence for one file. Empty or
// whitespace-only input yields an empty sequence.
func (c *ChunkerService) Chunk(text, sourceID, sourceName string, format models.SourceFormat) []models.DocumentChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) > maxChunkInputChars {
		c.logger.Warn("input text truncated before chunking",
			"source_id", sourceID, "length", len(text), "ceiling", maxChunkInputChars)
		text = truncateAtRune(text, maxChunkInputChars)
	}

	b := &chunkBuilder{
		sourceID:   sourceID,
		sourceName: sourceName,
		max:        c.maxChunks,
	}

	switch format {
	case models.FormatSpreadsheet:
		c.chunkSpreadsheet(text, b)
	case models.FormatWordDocument:
		c.chunkWordDocument(text, b)
	default:
		c.chunkDefault(text, b)
	}

	if b.capped {
		c.logger.Warn("chunk cap reached, remaining input dropped",
			"source_id", sourceID, "max_chunks", c.maxChunks)
	}

	// TotalChunks is only known once the whole file has been chunked.
	for i := range b.chunks {
		b.chunks[i].Metadata.TotalChunks = len(b.chunks)
	}
	return b.chunks
}

// chunkBuilder accumulates chunks and enforces the per-file cap.
type chunkBuilder struct {
	sourceID   string
	sourceName string
	max        int
	chunks     []models.DocumentChunk
	capped     bool
}

// add appends a chunk; it returns false once the cap is reached.
func (b *chunkBuilder) add(content string) bool {
	if len(b.chunks) >= b.max {
		b.capped = true
		return false
	}
	b.chunks = append(b.chunks, models.DocumentChunk{
		Content: content,
		Metadata: models.ChunkMetadata{
			SourceID:   b.sourceID,
			SourceName: b.sourceName,
			ChunkIndex: len(b.chunks),
		},
	})
	return true
}

// chunkDefault accumulates blank-line paragraphs up to the word ceiling and
// seeds each following chunk with the last overlapWords of its predecessor.
func (c *ChunkerService) chunkDefault(text string, b *chunkBuilder) {
	paragraphs := paragraphSplit.Split(text, -1)

	var cur []string
	seedLen := 0

	// closeChunk flushes the open chunk. A chunk consisting solely of the
	// overlap seed is discarded, not emitted.
	closeChunk := func(carryOverlap bool) bool {
		if len(cur) == seedLen {
			cur, seedLen = nil, 0
			return true
		}
		if !b.add(strings.Join(cur, " ")) {
			return false
		}
		if carryOverlap {
			// Cap the seed so the next chunk starts at least
			// chunkWords-overlapWords words past this one's start.
			carry := c.overlapWords
			if limit := len(cur) - (c.chunkWords - c.overlapWords); carry > limit {
				carry = limit
			}
			if carry > 0 {
				seed := lastWords(cur, carry)
				cur = append([]string(nil), seed...)
				seedLen = len(cur)
			} else {
				cur, seedLen = nil, 0
			}
		} else {
			cur, seedLen = nil, 0
		}
		return true
	}

	for _, para := range paragraphs {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}

		if len(words) > c.chunkWords {
			// An oversized paragraph is windowed on its own.
			if !closeChunk(false) {
				return
			}
			if !c.splitWindow(words, b) {
				return
			}
			continue
		}

		if len(cur) > 0 && len(cur)+len(words) > c.chunkWords {
			if !closeChunk(true) {
				return
			}
		}
		cur = append(cur, words...)
	}
	closeChunk(false)
}

// splitWindow slides a chunkWords window over words, advancing by
// chunkWords-overlapWords each step.
func (c *ChunkerService) splitWindow(words []string, b *chunkBuilder) bool {
	step := c.chunkWords - c.overlapWords
	for start := 0; start < len(words); start += step {
		end := start + c.chunkWords
		if end > len(words) {
			end = len(words)
		}
		if !b.add(strings.Join(words[start:end], " ")) {
			return false
		}
		if end == len(words) {
			break
		}
	}
	return true
}

// sheetBlock is one parsed sheet from the spreadsheet extractor's output.
type sheetBlock struct {
	header  string // "=== Sheet: ... ===" line
	columns string // "Headers: ..." line
	rows    []string
}

// chunkSpreadsheet re-parses the extractor's sheet markers and batches data
// rows. Every chunk repeats the sheet header block and column line so it is
// independently interpretable.
func (c *ChunkerService) chunkSpreadsheet(text string, b *chunkBuilder) {
	var sheets []*sheetBlock
	var cur *sheetBlock

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "=== Sheet:"):
			cur = &sheetBlock{header: trimmed}
			sheets = append(sheets, cur)
		case cur != nil && cur.columns == "" && strings.HasPrefix(trimmed, "Headers:"):
			cur.columns = trimmed
		case cur != nil && trimmed != "":
			cur.rows = append(cur.rows, trimmed)
		}
	}

	if len(sheets) == 0 {
		// Not our extractor's output; treat as ordinary text.
		c.chunkDefault(text, b)
		return
	}

	for _, sheet := range sheets {
		for start := 0; start < len(sheet.rows); start += c.rowsPerChunk {
			end := start + c.rowsPerChunk
			if end > len(sheet.rows) {
				end = len(sheet.rows)
			}
			var sb strings.Builder
			sb.WriteString(sheet.header)
			sb.WriteString("\n")
			if sheet.columns != "" {
				sb.WriteString(sheet.columns)
				sb.WriteString("\n")
			}
			sb.WriteString(strings.Join(sheet.rows[start:end], "\n"))
			if !b.add(sb.String()) {
				return
			}
		}
	}
}

// docSection is one heading-delimited section of a word document.
type docSection struct {
	marker  string // heading marker line, empty for the preamble
	body    []string
	wordCnt int
}

func (s *docSection) text() string {
	parts := make([]string, 0, len(s.body)+1)
	if s.marker != "" {
		parts = append(parts, s.marker)
	}
	parts = append(parts, s.body...)
	return strings.Join(parts, "\n")
}

// chunkWordDocument parses heading markers into sections and merges
// consecutive sections until the word ceiling, provided the accumulated
// chunk reached the floor. Oversized sections are windowed on their own,
// each piece re-prefixed with its heading marker.
func (c *ChunkerService) chunkWordDocument(text string, b *chunkBuilder) {
	sections := parseSections(text)

	var parts []string
	curWords := 0

	flush := func() bool {
		if len(parts) == 0 {
			return true
		}
		ok := b.add(strings.Join(parts, "\n\n"))
		parts = nil
		curWords = 0
		return ok
	}

	for _, sec := range sections {
		if sec.wordCnt == 0 {
			continue
		}

		if sec.wordCnt > c.chunkWords {
			if !flush() {
				return
			}
			if !c.splitSection(sec, b) {
				return
			}
			continue
		}

		if curWords > 0 && curWords+sec.wordCnt > c.chunkWords && curWords >= c.minSectionWords {
			if !flush() {
				return
			}
		}
		parts = append(parts, sec.text())
		curWords += sec.wordCnt
	}
	flush()
}

// splitSection windows an oversized section's body, re-prefixing every piece
// with the section's heading marker for context.
func (c *ChunkerService) splitSection(sec *docSection, b *chunkBuilder) bool {
	words := strings.Fields(strings.Join(sec.body, "\n"))
	for start := 0; start < len(words); start += c.chunkWords {
		end := start + c.chunkWords
		if end > len(words) {
			end = len(words)
		}
		piece := strings.Join(words[start:end], " ")
		if sec.marker != "" {
			piece = sec.marker + "\n" + piece
		}
		if !b.add(piece) {
			return false
		}
	}
	return true
}

// parseSections splits marked-up word-document text at heading lines.
// Content before the first heading becomes an unmarked preamble section.
func parseSections(text string) []*docSection {
	var sections []*docSection
	cur := &docSection{}

	for _, line := range strings.Split(text, "\n") {
		if level, ok := parseHeadingLine(line); ok {
			if cur.marker != "" || len(cur.body) > 0 {
				sections = append(sections, cur)
			}
			// Re-render the marker so levels beyond the lowest tier
			// share one glyph.
			heading := strings.TrimSpace(strings.TrimLeft(line, "# "))
			cur = &docSection{marker: HeadingMarker(level) + " " + heading}
			cur.wordCnt = len(strings.Fields(heading))
			continue
		}
		cur.body = append(cur.body, line)
		cur.wordCnt += len(strings.Fields(line))
	}
	if cur.marker != "" || len(cur.body) > 0 {
		sections = append(sections, cur)
	}
	return sections
}

// parseHeadingLine reports whether line is a heading marker line and at what
// level (number of leading '#' runes, bounded by the marker tiers).
func parseHeadingLine(line string) (int, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return 0, false
	}
	level := 0
	for _, r := range trimmed {
		if r != '#' {
			break
		}
		level++
	}
	if level == 0 || level > 6 {
		return 0, false
	}
	rest := trimmed[level:]
	if rest != "" && !strings.HasPrefix(rest, " ") {
		return 0, false
	}
	if level > len(headingMarkers) {
		level = len(headingMarkers)
	}
	return level, true
}

func lastWords(words []string, n int) []string {
	if n >= len(words) {
		return words
	}
	return words[len(words)-n:]
}
