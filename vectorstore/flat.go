// Package vectorstore implements the per-user vector index: a flat,
// brute-force cosine-similarity store persisted as a JSON records file under
// one directory per user. The backing structure has no point deletion;
// callers that need to drop records rebuild a fresh index from the survivors.
package vectorstore

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/JLAD75/fileManagerRAG/models"
)

// indexFileName is the on-disk records file inside a user's index directory.
// The directory itself is the unit of deletion.
const indexFileName = "index.json"

// Index is the contract the embedding/index service programs against. The
// flat implementation below rebuilds on delete; a tombstone-compacting
// implementation could replace it without changing callers.
type Index interface {
	Add(records ...models.VectorRecord)
	Search(vector []float32, k int) []models.VectorRecord
	Records() []models.VectorRecord
	Len() int
	Save(dir string) error
}

var _ Index = (*FlatIndex)(nil)

// FlatIndex holds every record in memory and scores queries by cosine
// similarity over the full set.
type FlatIndex struct {
	mu      sync.RWMutex
	records []models.VectorRecord
}

// NewFlatIndex creates an empty index.
func NewFlatIndex() *FlatIndex {
	return &FlatIndex{}
}

// NewFlatIndexFrom creates an index seeded with the given records.
func NewFlatIndexFrom(records []models.VectorRecord) *FlatIndex {
	idx := &FlatIndex{records: make([]models.VectorRecord, len(records))}
	copy(idx.records, records)
	return idx
}

// Add appends records to the index.
func (idx *FlatIndex) Add(records ...models.VectorRecord) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.records = append(idx.records, records...)
}

// Len returns the number of stored records, the bootstrap placeholder included.
func (idx *FlatIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

// Records returns a copy of all stored records.
func (idx *FlatIndex) Records() []models.VectorRecord {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]models.VectorRecord, len(idx.records))
	copy(out, idx.records)
	return out
}

// Search returns the top-k records nearest to vector by cosine similarity.
// Ties keep insertion order.
func (idx *FlatIndex) Search(vector []float32, k int) []models.VectorRecord {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if k <= 0 || len(idx.records) == 0 {
		return nil
	}

	type scored struct {
		record models.VectorRecord
		score  float64
	}
	candidates := make([]scored, 0, len(idx.records))
	for _, rec := range idx.records {
		candidates = append(candidates, scored{record: rec, score: cosine(rec.Vector, vector)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	out := make([]models.VectorRecord, 0, k)
	for _, c := range candidates[:k] {
		out = append(out, c.record)
	}
	return out
}

// Save persists the index to dir atomically: the records file is written to a
// temp name and renamed over the previous one.
func (idx *FlatIndex) Save(dir string) error {
	idx.mu.RLock()
	data, err := json.Marshal(idx.records)
	idx.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal index records: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}
	tmp := filepath.Join(dir, indexFileName+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write index file: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, indexFileName)); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

// Load reads a persisted index from dir. A missing or corrupt file is
// reported as models.ErrIndexLoad so callers can treat it as "no index".
func Load(dir string) (*FlatIndex, error) {
	data, err := os.ReadFile(filepath.Join(dir, indexFileName))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIndexLoad, err)
	}
	var records []models.VectorRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIndexLoad, err)
	}
	return &FlatIndex{records: records}, nil
}

// Exists reports whether a persisted index is present under dir.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, indexFileName))
	return err == nil
}

// Remove deletes a user's entire index directory.
func Remove(dir string) error {
	return os.RemoveAll(dir)
}

func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
