package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JLAD75/fileManagerRAG/models"
	"github.com/JLAD75/fileManagerRAG/store"
	"github.com/JLAD75/fileManagerRAG/worker"
)

// ProcessingService runs the ingestion pipeline for uploaded files: extract,
// chunk, embed, index, then flip the processed flag. Jobs are queued per
// user so two uploads by the same user never touch that user's index at the
// same time.
type ProcessingService struct {
	store     *store.Store
	uploads   *UploadStore
	extractor *ExtractorService
	chunker   *ChunkerService
	vectors   *VectorStoreService
	queue     *worker.KeyedQueue
	logger    *slog.Logger
}

func NewProcessingService(st *store.Store, uploads *UploadStore, extractor *ExtractorService, chunker *ChunkerService, vectors *VectorStoreService, queue *worker.KeyedQueue, logger *slog.Logger) *ProcessingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessingService{
		store:     st,
		uploads:   uploads,
		extractor: extractor,
		chunker:   chunker,
		vectors:   vectors,
		queue:     queue,
		logger:    logger,
	}
}

// EnqueueFile schedules background processing for an uploaded file. The
// upload request has already been answered by the time the job runs; a
// pipeline failure leaves the file unprocessed and is only logged.
func (s *ProcessingService) EnqueueFile(file models.FileRecord) error {
	return s.queue.Enqueue(file.UserID, func(ctx context.Context) {
		if err := s.Process(ctx, file); err != nil {
			s.logger.Error("background processing failed",
				"fileId", file.ID, "fileName", file.OriginalName, "error", err)
		}
	})
}

// Process runs the pipeline synchronously for one file.
func (s *ProcessingService) Process(ctx context.Context, file models.FileRecord) error {
	s.logger.Info("processing file", "fileId", file.ID, "fileName", file.OriginalName, "format", file.Format)

	raw, err := s.uploads.Read(file.Path)
	if err != nil {
		return fmt.Errorf("reading stored file: %w", err)
	}

	text, err := s.extractor.Extract(raw, file.Format)
	if err != nil {
		return fmt.Errorf("extracting '%s': %w", file.OriginalName, err)
	}

	chunks := s.chunker.Chunk(text, file.ID, file.OriginalName, file.Format)
	if len(chunks) == 0 {
		s.logger.Warn("file produced no chunks, marking processed anyway",
			"fileId", file.ID, "fileName", file.OriginalName)
		return s.store.MarkProcessed(ctx, file.ID)
	}

	if err := s.vectors.AddDocuments(ctx, chunks, file.UserID); err != nil {
		return fmt.Errorf("indexing '%s': %w", file.OriginalName, err)
	}

	if err := s.store.MarkProcessed(ctx, file.ID); err != nil {
		return fmt.Errorf("marking '%s' processed: %w", file.OriginalName, err)
	}

	s.logger.Info("file processed", "fileId", file.ID, "chunks", len(chunks))
	return nil
}
