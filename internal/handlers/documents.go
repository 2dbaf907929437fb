package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/services"
)

type DocumentHandler struct {
	log             *logger.Logger
	documentService services.DocumentService
	extractor       services.ContentExtractor
	uploadsDir      string
}

func NewDocumentHandler(
	log *logger.Logger,
	documentService services.DocumentService,
	extractor services.ContentExtractor,
	uploadsDir string,
) *DocumentHandler {
	return &DocumentHandler{
		log:             log.With("handler", "DocumentHandler"),
		documentService: documentService,
		extractor:       extractor,
		uploadsDir:      uploadsDir,
	}
}

// POST /api/documents/upload
//
// The file is written under the uploads dir first so extraction reads from
// disk; if extraction or persistence fails the stored file is removed again.
func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, fmt.Errorf("file is required: %w", err))
		return
	}

	var tagID *int64
	if raw := c.PostForm("tag_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid tag_id: %w", err))
			return
		}
		tagID = &parsed
	}

	storedName := uuid.NewString() + "-" + filepath.Base(fileHeader.Filename)
	storedPath := filepath.Join(h.uploadsDir, storedName)
	if err := c.SaveUploadedFile(fileHeader, storedPath); err != nil {
		h.log.Error("Failed to store uploaded document", "filename", fileHeader.Filename, "error", err)
		RespondError(c, http.StatusInternalServerError, err)
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	content, err := h.extractor.Extract(c.Request.Context(), storedPath, contentType)
	if err != nil {
		os.Remove(storedPath)
		RespondServiceError(c, err)
		return
	}

	record, err := h.documentService.Upload(c.Request.Context(), services.UploadDocumentRequest{
		Name:        fileHeader.Filename,
		Filename:    storedName,
		ContentType: contentType,
		Content:     content,
		TagID:       tagID,
	})
	if err != nil {
		os.Remove(storedPath)
		RespondServiceError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"id":       record.ID,
		"name":     record.Name,
		"filename": record.Filename,
		"type":     record.Type,
	})
}

// GET /api/documents
func (h *DocumentHandler) List(c *gin.Context) {
	records, err := h.documentService.List(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, records)
}

// PATCH /api/documents/:id/tag
func (h *DocumentHandler) SetTag(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	var body setTagBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := h.documentService.SetTag(c.Request.Context(), id, body.TagID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

// DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := h.documentService.Delete(c.Request.Context(), id); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "Deleted successfully"})
}
