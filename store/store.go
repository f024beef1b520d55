// Package store is the SQLite-backed metadata store for users and uploaded
// files. The retrieval pipeline only consumes the narrow file contract
// (owner lookup and the processed flag); the schema is owned here.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/JLAD75/fileManagerRAG/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL REFERENCES users(id),
	name          TEXT NOT NULL,
	original_name TEXT NOT NULL,
	size          INTEGER NOT NULL,
	mime_type     TEXT NOT NULL,
	path          TEXT NOT NULL,
	format        TEXT NOT NULL,
	is_processed  INTEGER NOT NULL DEFAULT 0,
	uploaded_at   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_files_user ON files(user_id, uploaded_at);
`

// Store provides access to the metadata database.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the metadata database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "metadata.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateUser inserts a new user. Returns models.ErrAlreadyExists when the
// email is taken.
func (s *Store) CreateUser(ctx context.Context, user models.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, user.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrAlreadyExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// GetUserByEmail fetches a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, models.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

// CreateFile inserts a new file record.
func (s *Store) CreateFile(ctx context.Context, file models.FileRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (id, user_id, name, original_name, size, mime_type, path, format, is_processed, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		file.ID, file.UserID, file.Name, file.OriginalName, file.Size,
		file.MimeType, file.Path, string(file.Format), boolToInt(file.IsProcessed), file.UploadedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting file: %w", err)
	}
	return nil
}

// GetFile fetches one file owned by userID.
func (s *Store) GetFile(ctx context.Context, fileID, userID string) (models.FileRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, original_name, size, mime_type, path, format, is_processed, uploaded_at
		 FROM files WHERE id = ? AND user_id = ?`, fileID, userID)
	return scanFile(row)
}

// FindFileByPath fetches the file record stored under path for userID. Used
// by the drop-folder watcher to detect re-ingests.
func (s *Store) FindFileByPath(ctx context.Context, userID, path string) (models.FileRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, original_name, size, mime_type, path, format, is_processed, uploaded_at
		 FROM files WHERE user_id = ? AND path = ?`, userID, path)
	return scanFile(row)
}

// ListFiles returns all files owned by userID, newest first.
func (s *Store) ListFiles(ctx context.Context, userID string) ([]models.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, original_name, size, mime_type, path, format, is_processed, uploaded_at
		 FROM files WHERE user_id = ? ORDER BY uploaded_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	defer rows.Close()

	files := []models.FileRecord{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// MarkProcessed flips the processed flag once indexing completed.
func (s *Store) MarkProcessed(ctx context.Context, fileID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE files SET is_processed = 1 WHERE id = ?`, fileID)
	if err != nil {
		return fmt.Errorf("marking processed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteFile removes a file record owned by userID.
func (s *Store) DeleteFile(ctx context.Context, fileID, userID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ? AND user_id = ?`, fileID, userID)
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (models.FileRecord, error) {
	var f models.FileRecord
	var format string
	var processed int
	err := row.Scan(&f.ID, &f.UserID, &f.Name, &f.OriginalName, &f.Size,
		&f.MimeType, &f.Path, &format, &processed, &f.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FileRecord{}, models.ErrNotFound
	}
	if err != nil {
		return models.FileRecord{}, fmt.Errorf("scanning file: %w", err)
	}
	f.Format = models.SourceFormat(format)
	f.IsProcessed = processed != 0
	f.UploadedAt = f.UploadedAt.In(time.UTC)
	return f, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint failures in the error text.
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
