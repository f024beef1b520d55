package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/JLAD75/fileManagerRAG/models"
	"github.com/JLAD75/fileManagerRAG/store"
)

// WatchService keeps a drop folder in sync with one user's library: files
// placed in the folder are ingested as that user, edits re-ingest, and
// removals drop the records. Many editors write by creating a temp file and
// renaming, so Create and Write are handled the same and a content hash
// filters the duplicate events that produces.
type WatchService struct {
	store      *store.Store
	processing *ProcessingService
	vectors    *VectorStoreService
	userID     string
	logger     *slog.Logger

	mu     sync.Mutex
	hashes map[string]string // path -> last ingested content hash
}

func NewWatchService(st *store.Store, processing *ProcessingService, vectors *VectorStoreService, userID string, logger *slog.Logger) *WatchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WatchService{
		store:      st,
		processing: processing,
		vectors:    vectors,
		userID:     userID,
		logger:     logger.With("component", "watcher"),
		hashes:     make(map[string]string),
	}
}

// WatchDirectory runs an initial sync, then watches dirPath until ctx is
// cancelled.
func (s *WatchService) WatchDirectory(ctx context.Context, dirPath string) {
	s.ScanDirectory(ctx, dirPath)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Error("failed to create file watcher", "error", err)
		return
	}
	defer watcher.Close()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isWatchableFile(event.Name) {
					continue
				}

				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					if err := s.ingestPath(ctx, event.Name); err != nil {
						s.logger.Error("failed to ingest file", "path", event.Name, "error", err)
					}
				} else if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					// Rename is often reported instead of Remove.
					if err := s.removePath(ctx, event.Name); err != nil {
						s.logger.Error("failed to remove file records", "path", event.Name, "error", err)
					}
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error("watcher error", "error", err)

			case <-ctx.Done():
				s.logger.Info("shutting down watcher")
				return
			}
		}
	}()

	s.logger.Info("watching directory", "dir", dirPath, "userId", s.userID)
	if err := watcher.Add(dirPath); err != nil {
		s.logger.Error("failed to add path to watcher", "dir", dirPath, "error", err)
		return
	}

	<-ctx.Done()
}

// ScanDirectory syncs the folder once: ingests new and changed files, drops
// records whose file disappeared while the server was down.
func (s *WatchService) ScanDirectory(ctx context.Context, dirPath string) {
	s.logger.Info("starting directory scan", "dir", dirPath)

	onDisk := make(map[string]bool)
	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isWatchableFile(path) {
			return nil
		}
		onDisk[path] = true

		existing, err := s.store.FindFileByPath(ctx, s.userID, path)
		if err == nil && existing.Size == info.Size() {
			// Size is the only persisted signal across restarts; an
			// unchanged size is taken as an unchanged file.
			if hash, hErr := hashFile(path); hErr == nil {
				s.rememberHash(path, hash)
			}
			return nil
		}
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up file record", "path", path, "error", err)
			return nil
		}

		if iErr := s.ingestPath(ctx, path); iErr != nil {
			s.logger.Error("failed to ingest file", "path", path, "error", iErr)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("directory scan failed", "dir", dirPath, "error", err)
		return
	}

	files, err := s.store.ListFiles(ctx, s.userID)
	if err != nil {
		s.logger.Error("failed to list files for deletion sweep", "error", err)
		return
	}
	watchRoot := dirPath + string(filepath.Separator)
	for _, f := range files {
		if strings.HasPrefix(f.Path, watchRoot) && !onDisk[f.Path] {
			s.logger.Info("file deleted while offline, removing records", "path", f.Path)
			if err := s.removePath(ctx, f.Path); err != nil {
				s.logger.Error("failed to remove file records", "path", f.Path, "error", err)
			}
		}
	}
	s.logger.Info("directory scan finished", "dir", dirPath)
}

// ingestPath registers the file for the watched user and queues processing,
// replacing any previous version of the same path.
func (s *WatchService) ingestPath(ctx context.Context, path string) error {
	hash, err := hashFile(path)
	if err != nil {
		return err
	}
	if s.knownHash(path) == hash {
		return nil
	}

	if err := s.removePath(ctx, path); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	name := filepath.Base(path)
	record := models.FileRecord{
		ID:           uuid.New().String(),
		UserID:       s.userID,
		Name:         name,
		OriginalName: name,
		Size:         info.Size(),
		MimeType:     "application/octet-stream",
		Path:         path,
		Format:       models.DetectFormat(name),
		UploadedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateFile(ctx, record); err != nil {
		return err
	}
	s.rememberHash(path, hash)
	s.logger.Info("ingesting watched file", "path", path, "fileId", record.ID)
	return s.processing.EnqueueFile(record)
}

// removePath drops the database record and vector records for the file
// currently registered at path, if any.
func (s *WatchService) removePath(ctx context.Context, path string) error {
	s.forgetHash(path)

	existing, err := s.store.FindFileByPath(ctx, s.userID, path)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.vectors.DeleteDocumentsByFileID(ctx, existing.ID, s.userID); err != nil {
		return err
	}
	if err := s.store.DeleteFile(ctx, existing.ID, s.userID); err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	return nil
}

func (s *WatchService) knownHash(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hashes[path]
}

func (s *WatchService) rememberHash(path, hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes[path] = hash
}

func (s *WatchService) forgetHash(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hashes, path)
}

func isWatchableFile(path string) bool {
	return models.DetectFormat(filepath.Base(path)) != models.FormatUnknown
}

func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
