package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JLAD75/fileManagerRAG/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testUser(email string) models.User {
	return models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: "$2a$10$hash",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
}

func testFile(userID, name string) models.FileRecord {
	id := uuid.New().String()
	return models.FileRecord{
		ID:           id,
		UserID:       userID,
		Name:         id + ".pdf",
		OriginalName: name,
		Size:         1234,
		MimeType:     "application/pdf",
		Path:         "/data/uploads/" + userID + "/" + id + ".pdf",
		Format:       models.FormatPDF,
		UploadedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := testUser("alice@example.com")
	require.NoError(t, s.CreateUser(ctx, user))

	got, err := s.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, user.PasswordHash, got.PasswordHash)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, testUser("alice@example.com")))
	err := s.CreateUser(ctx, testUser("alice@example.com"))
	assert.ErrorIs(t, err, models.ErrAlreadyExists)
}

func TestGetUserUnknownEmail(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFileLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := testUser("alice@example.com")
	require.NoError(t, s.CreateUser(ctx, user))

	file := testFile(user.ID, "rapport.pdf")
	require.NoError(t, s.CreateFile(ctx, file))

	got, err := s.GetFile(ctx, file.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "rapport.pdf", got.OriginalName)
	assert.Equal(t, models.FormatPDF, got.Format)
	assert.False(t, got.IsProcessed)

	require.NoError(t, s.MarkProcessed(ctx, file.ID))
	got, err = s.GetFile(ctx, file.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsProcessed)

	require.NoError(t, s.DeleteFile(ctx, file.ID, user.ID))
	_, err = s.GetFile(ctx, file.ID, user.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetFileEnforcesOwnership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	alice := testUser("alice@example.com")
	bob := testUser("bob@example.com")
	require.NoError(t, s.CreateUser(ctx, alice))
	require.NoError(t, s.CreateUser(ctx, bob))

	file := testFile(alice.ID, "secret.pdf")
	require.NoError(t, s.CreateFile(ctx, file))

	_, err := s.GetFile(ctx, file.ID, bob.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = s.DeleteFile(ctx, file.ID, bob.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListFilesNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := testUser("alice@example.com")
	require.NoError(t, s.CreateUser(ctx, user))

	older := testFile(user.ID, "older.pdf")
	older.UploadedAt = time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	newer := testFile(user.ID, "newer.pdf")
	require.NoError(t, s.CreateFile(ctx, older))
	require.NoError(t, s.CreateFile(ctx, newer))

	files, err := s.ListFiles(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "newer.pdf", files[0].OriginalName)
	assert.Equal(t, "older.pdf", files[1].OriginalName)
}

func TestFindFileByPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := testUser("alice@example.com")
	require.NoError(t, s.CreateUser(ctx, user))

	file := testFile(user.ID, "watched.pdf")
	require.NoError(t, s.CreateFile(ctx, file))

	got, err := s.FindFileByPath(ctx, user.ID, file.Path)
	require.NoError(t, err)
	assert.Equal(t, file.ID, got.ID)

	_, err = s.FindFileByPath(ctx, user.ID, "/nowhere")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMarkProcessedUnknownFile(t *testing.T) {
	s := newTestStore(t)
	err := s.MarkProcessed(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
