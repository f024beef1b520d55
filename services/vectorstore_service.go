package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/JLAD75/fileManagerRAG/models"
	"github.com/JLAD75/fileManagerRAG/vectorstore"
)

// placeholderContent is the reserved record a fresh index is bootstrapped
// with, purely so an index never has to be constructed empty. It is filtered
// out of every search result.
const placeholderContent = "Initialization document"

// VectorStoreService maintains one persisted vector index per user: lazy
// load-on-miss, cache-on-hit for the process lifetime, durable write before
// any mutating call returns. All mutation for one user is serialized by a
// per-user lock; the backing index has no point deletion, so deletes rebuild
// the index from the surviving records.
type VectorStoreService struct {
	rootDir  string
	embedder Embedder
	logger   *slog.Logger

	mu        sync.Mutex
	cache     map[string]*vectorstore.FlatIndex
	userLocks map[string]*sync.Mutex
}

// NewVectorStoreService creates the per-user index service rooted at rootDir.
func NewVectorStoreService(rootDir string, embedder Embedder, logger *slog.Logger) *VectorStoreService {
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorStoreService{
		rootDir:   rootDir,
		embedder:  embedder,
		logger:    logger,
		cache:     make(map[string]*vectorstore.FlatIndex),
		userLocks: make(map[string]*sync.Mutex),
	}
}

// indexDir returns the on-disk directory of a user's index.
func (s *VectorStoreService) indexDir(userID string) string {
	return filepath.Join(s.rootDir, userID)
}

// userLock returns the mutex serializing mutations of one user's index.
func (s *VectorStoreService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	return lock
}

// getOrCreateIndex returns the user's cached index, loading it from disk on
// a cache miss, or bootstrapping a fresh one (with the embedded placeholder
// record) when no usable persisted index exists.
func (s *VectorStoreService) getOrCreateIndex(ctx context.Context, userID string) (*vectorstore.FlatIndex, error) {
	s.mu.Lock()
	if idx, ok := s.cache[userID]; ok {
		s.mu.Unlock()
		return idx, nil
	}
	s.mu.Unlock()

	dir := s.indexDir(userID)
	if vectorstore.Exists(dir) {
		idx, err := vectorstore.Load(dir)
		if err == nil {
			return s.cacheIndex(userID, idx), nil
		}
		// Missing or corrupt on-disk index is treated as absent.
		s.logger.Warn("could not load persisted index, creating a fresh one",
			"user_id", userID, "error", err)
	}

	vec, err := s.embedder.EmbedQuery(ctx, placeholderContent)
	if err != nil {
		return nil, fmt.Errorf("could not embed placeholder record: %w", err)
	}
	idx := vectorstore.NewFlatIndexFrom([]models.VectorRecord{{
		Content: placeholderContent,
		Vector:  vec,
	}})

	return s.cacheIndex(userID, idx), nil
}

// cacheIndex installs idx for userID unless a concurrent caller cached one
// in the meantime; the entry already present wins, so a slow unlocked read
// can never clobber an index a writer has since mutated and persisted.
func (s *VectorStoreService) cacheIndex(userID string, idx *vectorstore.FlatIndex) *vectorstore.FlatIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cache[userID]; ok {
		return existing
	}
	s.cache[userID] = idx
	return idx
}

// AddDocuments embeds the chunks and appends them to the user's index. The
// durable write completes before the call returns.
func (s *VectorStoreService) AddDocuments(ctx context.Context, chunks []models.DocumentChunk, userID string) error {
	if len(chunks) == 0 {
		return nil
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	idx, err := s.getOrCreateIndex(ctx, userID)
	if err != nil {
		return err
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("could not embed chunks: %w", err)
	}

	records := make([]models.VectorRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = models.VectorRecord{
			Content:  chunk.Content,
			Metadata: chunk.Metadata,
			Vector:   vectors[i],
		}
	}
	idx.Add(records...)

	if err := idx.Save(s.indexDir(userID)); err != nil {
		return fmt.Errorf("could not persist index: %w", err)
	}

	s.logger.Info("added chunks to vector store", "user_id", userID, "chunks", len(chunks))
	return nil
}

// SimilaritySearch embeds the query and returns the top-k nearest records,
// excluding the placeholder. Any failure degrades to an empty result so the
// read path never breaks the chat experience.
func (s *VectorStoreService) SimilaritySearch(ctx context.Context, query, userID string, k int) []models.VectorRecord {
	idx, err := s.getOrCreateIndex(ctx, userID)
	if err != nil {
		s.logger.Error("similarity search failed", "user_id", userID, "error", err)
		return nil
	}

	queryVec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		s.logger.Error("could not embed query", "user_id", userID, "error", err)
		return nil
	}

	results := idx.Search(queryVec, k)
	filtered := make([]models.VectorRecord, 0, len(results))
	for _, rec := range results {
		if rec.Content == placeholderContent && rec.Metadata.SourceID == "" {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered
}

// DeleteDocumentsByFileID removes every record of fileID from the user's
// index by rebuilding it from the survivors. When no document records
// remain, the index is removed entirely, cache entry and on-disk directory
// both. Linear in index size; not a hot-path operation.
func (s *VectorStoreService) DeleteDocumentsByFileID(ctx context.Context, fileID, userID string) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	dir := s.indexDir(userID)

	s.mu.Lock()
	_, cached := s.cache[userID]
	s.mu.Unlock()
	if !cached && !vectorstore.Exists(dir) {
		return nil
	}

	idx, err := s.getOrCreateIndex(ctx, userID)
	if err != nil {
		return err
	}

	records := idx.Records()
	survivors := make([]models.VectorRecord, 0, len(records))
	remaining := 0
	for _, rec := range records {
		if rec.Metadata.SourceID == fileID {
			continue
		}
		survivors = append(survivors, rec)
		if !(rec.Content == placeholderContent && rec.Metadata.SourceID == "") {
			remaining++
		}
	}

	if remaining == 0 {
		if err := vectorstore.Remove(dir); err != nil {
			return fmt.Errorf("could not remove index directory: %w", err)
		}
		s.mu.Lock()
		delete(s.cache, userID)
		s.mu.Unlock()
		s.logger.Info("removed empty vector store", "user_id", userID)
		return nil
	}

	if len(survivors) == len(records) {
		return nil
	}

	rebuilt := vectorstore.NewFlatIndexFrom(survivors)
	if err := rebuilt.Save(dir); err != nil {
		// A half-completed rebuild could corrupt the index; surface it.
		return fmt.Errorf("could not persist rebuilt index: %w", err)
	}

	s.mu.Lock()
	s.cache[userID] = rebuilt
	s.mu.Unlock()

	s.logger.Info("rebuilt vector store after delete",
		"user_id", userID, "file_id", fileID, "records", remaining)
	return nil
}
