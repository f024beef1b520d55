package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// UploadStore handles the file system operations for uploaded documents.
// Each user gets a subdirectory under the uploads root.
type UploadStore struct {
	UploadsDir string // The absolute path to the uploads directory
}

func NewUploadStore(uploadsDir string) (*UploadStore, error) {
	if uploadsDir == "" {
		return nil, fmt.Errorf("uploads directory not configured")
	}
	absPath, err := filepath.Abs(uploadsDir)
	if err != nil {
		return nil, fmt.Errorf("could not determine absolute path for uploads directory: %w", err)
	}
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return nil, fmt.Errorf("could not create uploads directory: %w", err)
	}
	return &UploadStore{UploadsDir: absPath}, nil
}

// safePath builds the on-disk path for a stored file and rejects any name
// that would escape the uploads directory.
func (us *UploadStore) safePath(userID, storedName string) (string, error) {
	cleanPath := filepath.Join(us.UploadsDir, filepath.Base(userID), filepath.Base(storedName))
	if !strings.HasPrefix(cleanPath, us.UploadsDir+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid file name, attempts to escape uploads directory")
	}
	return cleanPath, nil
}

// Save writes the uploaded bytes and returns the path they were stored at.
func (us *UploadStore) Save(userID, storedName string, data []byte) (string, error) {
	path, err := us.safePath(userID, storedName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create user upload directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to store uploaded file '%s': %w", storedName, err)
	}
	return path, nil
}

// Read returns the stored bytes for a file previously saved with Save.
func (us *UploadStore) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored file: %w", err)
	}
	return data, nil
}

// Remove deletes the stored file. A file that is already gone is not an
// error, the caller only needs the disk to match the database.
func (us *UploadStore) Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete stored file: %w", err)
	}
	return nil
}
