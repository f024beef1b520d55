package models

import "time"

// FileRecord is the stored metadata for one uploaded file. The pipeline only
// flips IsProcessed; everything else is immutable after upload.
type FileRecord struct {
	ID           string       `json:"id"`
	UserID       string       `json:"userId"`
	Name         string       `json:"name"`
	OriginalName string       `json:"originalName"`
	Size         int64        `json:"size"`
	MimeType     string       `json:"mimeType"`
	Path         string       `json:"path"`
	Format       SourceFormat `json:"-"`
	IsProcessed  bool         `json:"isProcessed"`
	UploadedAt   time.Time    `json:"uploadedAt"`
}
