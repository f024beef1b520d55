package controller

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/JLAD75/fileManagerRAG/models"
	"github.com/JLAD75/fileManagerRAG/services"
	"github.com/JLAD75/fileManagerRAG/store"
)

// FileController handles the document library endpoints: upload, listing,
// status polling, download, and deletion.
type FileController struct {
	store          *store.Store
	uploads        *services.UploadStore
	processing     *services.ProcessingService
	vectors        *services.VectorStoreService
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewFileController(st *store.Store, uploads *services.UploadStore, processing *services.ProcessingService, vectors *services.VectorStoreService, maxUploadBytes int64, logger *slog.Logger) *FileController {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileController{
		store:          st,
		uploads:        uploads,
		processing:     processing,
		vectors:        vectors,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Upload is the handler for POST /api/files/upload. Unsupported types and
// oversized payloads are rejected here, at request time, so no invalid file
// ever enters the pipeline. The response returns immediately with the
// unprocessed record; extraction and indexing run in the background.
func (c *FileController) Upload(ctx *gin.Context) {
	header, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "No file uploaded"})
		return
	}

	if header.Size > c.maxUploadBytes {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{
			Message: fmt.Sprintf("File too large, maximum is %d MB", c.maxUploadBytes/(1024*1024)),
		})
		return
	}

	format := models.DetectFormat(header.Filename)
	mimeType := header.Header.Get("Content-Type")
	if format == models.FormatUnknown || !models.AllowedMIMETypes[mimeType] {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid file type"})
		return
	}

	src, err := header.Open()
	if err != nil {
		c.logger.Error("failed to open uploaded file", "error", err)
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Server error"})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, c.maxUploadBytes+1))
	if err != nil {
		c.logger.Error("failed to read uploaded file", "error", err)
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Server error"})
		return
	}
	if int64(len(data)) > c.maxUploadBytes {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{
			Message: fmt.Sprintf("File too large, maximum is %d MB", c.maxUploadBytes/(1024*1024)),
		})
		return
	}

	userID := currentUserID(ctx)
	fileID := uuid.New().String()
	storedName := fileID + filepath.Ext(header.Filename)

	path, err := c.uploads.Save(userID, storedName, data)
	if err != nil {
		c.logger.Error("failed to store uploaded file", "error", err)
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Server error"})
		return
	}

	record := models.FileRecord{
		ID:           fileID,
		UserID:       userID,
		Name:         storedName,
		OriginalName: header.Filename,
		Size:         int64(len(data)),
		MimeType:     mimeType,
		Path:         path,
		Format:       format,
		IsProcessed:  false,
		UploadedAt:   time.Now().UTC(),
	}
	if err := c.store.CreateFile(ctx.Request.Context(), record); err != nil {
		c.logger.Error("failed to save file record", "error", err)
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Server error"})
		return
	}

	if err := c.processing.EnqueueFile(record); err != nil {
		c.logger.Error("failed to queue file processing", "fileId", record.ID, "error", err)
	}

	ctx.JSON(http.StatusCreated, record)
}

// List is the handler for GET /api/files.
func (c *FileController) List(ctx *gin.Context) {
	files, err := c.store.ListFiles(ctx.Request.Context(), currentUserID(ctx))
	if err != nil {
		c.logger.Error("failed to list files", "error", err)
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Server error"})
		return
	}
	ctx.JSON(http.StatusOK, files)
}

// Status is the handler for GET /api/files/:id. The front end polls it while
// IsProcessed is false.
func (c *FileController) Status(ctx *gin.Context) {
	record, ok := c.lookupFile(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, record)
}

// Download is the handler for GET /api/files/:id/download.
func (c *FileController) Download(ctx *gin.Context) {
	record, ok := c.lookupFile(ctx)
	if !ok {
		return
	}

	data, err := c.uploads.Read(record.Path)
	if err != nil {
		ctx.JSON(http.StatusNotFound, models.ErrorResponse{Message: "File not found on disk"})
		return
	}

	ctx.Header("Content-Disposition",
		fmt.Sprintf(`inline; filename="%s"`, url.PathEscape(record.OriginalName)))
	ctx.Data(http.StatusOK, record.MimeType, data)
}

// Delete is the handler for DELETE /api/files/:id. The vector records are
// removed before the metadata row: an index rebuild failure aborts the
// deletion so the library never claims a file is gone while its chunks are
// still retrievable.
func (c *FileController) Delete(ctx *gin.Context) {
	record, ok := c.lookupFile(ctx)
	if !ok {
		return
	}

	if err := c.vectors.DeleteDocumentsByFileID(ctx.Request.Context(), record.ID, record.UserID); err != nil {
		c.logger.Error("failed to remove vector records", "fileId", record.ID, "error", err)
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Server error"})
		return
	}

	if err := c.uploads.Remove(record.Path); err != nil {
		c.logger.Error("failed to delete stored file", "fileId", record.ID, "error", err)
	}

	if err := c.store.DeleteFile(ctx.Request.Context(), record.ID, record.UserID); err != nil && !errors.Is(err, models.ErrNotFound) {
		c.logger.Error("failed to delete file record", "fileId", record.ID, "error", err)
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Server error"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "File deleted successfully"})
}

// lookupFile resolves the :id path parameter to a record owned by the
// caller, answering the request itself when resolution fails.
func (c *FileController) lookupFile(ctx *gin.Context) (models.FileRecord, bool) {
	id := ctx.Param("id")
	if id == "" || id == "undefined" {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid file ID"})
		return models.FileRecord{}, false
	}

	record, err := c.store.GetFile(ctx.Request.Context(), id, currentUserID(ctx))
	if errors.Is(err, models.ErrNotFound) {
		ctx.JSON(http.StatusNotFound, models.ErrorResponse{Message: "File not found"})
		return models.FileRecord{}, false
	}
	if err != nil {
		c.logger.Error("failed to fetch file record", "fileId", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Server error"})
		return models.FileRecord{}, false
	}
	return record, true
}
