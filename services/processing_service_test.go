package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JLAD75/fileManagerRAG/models"
	"github.com/JLAD75/fileManagerRAG/store"
)

func newPipeline(t *testing.T) (*ProcessingService, *store.Store, *UploadStore, *VectorStoreService, models.User) {
	t.Helper()
	ctx := context.Background()

	db, err := store.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	uploads, err := NewUploadStore(t.TempDir())
	require.NoError(t, err)

	vectors := NewVectorStoreService(t.TempDir(), &hashEmbedder{}, nil)
	svc := NewProcessingService(db, uploads, NewExtractorService(nil), NewChunkerService(), vectors, nil, nil)

	user := models.User{
		ID:           uuid.New().String(),
		Email:        "alice@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, db.CreateUser(ctx, user))

	return svc, db, uploads, vectors, user
}

func storeUpload(t *testing.T, uploads *UploadStore, userID, name string, data []byte) models.FileRecord {
	t.Helper()
	fileID := uuid.New().String()
	path, err := uploads.Save(userID, fileID+".txt", data)
	require.NoError(t, err)
	return models.FileRecord{
		ID:           fileID,
		UserID:       userID,
		Name:         fileID + ".txt",
		OriginalName: name,
		Size:         int64(len(data)),
		MimeType:     "text/plain",
		Path:         path,
		Format:       models.FormatPlainText,
		UploadedAt:   time.Now().UTC(),
	}
}

func TestProcessIndexesAndMarksFile(t *testing.T) {
	svc, db, uploads, vectors, user := newPipeline(t)
	ctx := context.Background()

	file := storeUpload(t, uploads, user.ID, "notes.txt", []byte("le contrat de location du mois de mars"))
	require.NoError(t, db.CreateFile(ctx, file))

	require.NoError(t, svc.Process(ctx, file))

	got, err := db.GetFile(ctx, file.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsProcessed)

	results := vectors.SimilaritySearch(ctx, "contrat location", user.ID, 5)
	require.NotEmpty(t, results)
	assert.Equal(t, file.ID, results[0].Metadata.SourceID)
	assert.Equal(t, "notes.txt", results[0].Metadata.SourceName)
}

func TestProcessEmptyFileStillMarksProcessed(t *testing.T) {
	svc, db, uploads, vectors, user := newPipeline(t)
	ctx := context.Background()

	file := storeUpload(t, uploads, user.ID, "empty.txt", []byte("   \n  "))
	require.NoError(t, db.CreateFile(ctx, file))

	require.NoError(t, svc.Process(ctx, file))

	got, err := db.GetFile(ctx, file.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsProcessed, "a file with no extractable content is still done")
	assert.Empty(t, vectors.SimilaritySearch(ctx, "anything", user.ID, 5))
}

func TestProcessExtractionFailureLeavesFileUnprocessed(t *testing.T) {
	svc, db, uploads, _, user := newPipeline(t)
	ctx := context.Background()

	file := storeUpload(t, uploads, user.ID, "broken.txt", []byte{0xff, 0xfe})
	require.NoError(t, db.CreateFile(ctx, file))

	err := svc.Process(ctx, file)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrExtraction)

	got, gErr := db.GetFile(ctx, file.ID, user.ID)
	require.NoError(t, gErr)
	assert.False(t, got.IsProcessed)
}

func TestProcessMissingStoredFile(t *testing.T) {
	svc, db, _, _, user := newPipeline(t)
	ctx := context.Background()

	file := models.FileRecord{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		Name:         "gone.txt",
		OriginalName: "gone.txt",
		MimeType:     "text/plain",
		Path:         "/nonexistent/gone.txt",
		Format:       models.FormatPlainText,
		UploadedAt:   time.Now().UTC(),
	}
	require.NoError(t, db.CreateFile(ctx, file))

	assert.Error(t, svc.Process(ctx, file))
}
