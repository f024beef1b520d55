package models

// ChunkMetadata identifies where a chunk came from. The JSON field names are
// a stable contract consumed by the front end's citation rendering.
type ChunkMetadata struct {
	SourceID    string `json:"sourceId"`
	SourceName  string `json:"sourceName"`
	ChunkIndex  int    `json:"chunkIndex"`
	TotalChunks int    `json:"totalChunks"`
}

// DocumentChunk is a single retrieval unit produced by the chunker.
// Chunks are created in batch when a file finishes extraction and are never
// mutated afterwards.
type DocumentChunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// VectorRecord is a chunk plus its embedding, as stored in a user's index.
type VectorRecord struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
	Vector   []float32     `json:"vector"`
}

// SourceRef is one deduplicated citation entry: the highest-ranked chunk of
// each source file represents that file in the response.
type SourceRef struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
	Content  string `json:"content"`
}

// RetrievalResult is the ranked, deduplicated, budget-bounded output of the
// retrieval orchestrator. When no candidates were found, Chunks and Sources
// are empty and Message carries the user-facing explanation; this is a normal
// outcome, not an error.
type RetrievalResult struct {
	Chunks  []VectorRecord
	Sources []SourceRef
	Message string
}
