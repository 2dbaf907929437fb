package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/services"
)

type TranscribeHandler struct {
	log           *logger.Logger
	transcription services.TranscriptionService
	workDir       string
}

func NewTranscribeHandler(log *logger.Logger, transcription services.TranscriptionService, workDir string) *TranscribeHandler {
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &TranscribeHandler{
		log:           log.With("handler", "TranscribeHandler"),
		transcription: transcription,
		workDir:       workDir,
	}
}

type transcribeURLBody struct {
	URL   string `json:"url"`
	Model string `json:"model"`
}

// POST /api/transcribe
func (h *TranscribeHandler) TranscribeURL(c *gin.Context) {
	var body transcribeURLBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	result, err := h.transcription.TranscribeURL(c.Request.Context(), body.URL, body.Model)
	if err != nil {
		h.log.Error("URL transcription failed", "url", body.URL, "error", err)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

// POST /api/transcribe-long
func (h *TranscribeHandler) TranscribeLongURL(c *gin.Context) {
	var body transcribeURLBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	result, err := h.transcription.TranscribeLongURL(c.Request.Context(), body.URL, body.Model)
	if err != nil {
		h.log.Error("Long URL transcription failed", "url", body.URL, "error", err)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

// POST /api/transcribe-file
func (h *TranscribeHandler) TranscribeFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, fmt.Errorf("file is required: %w", err))
		return
	}
	model := c.PostForm("model")

	tmpPath, cleanup, err := h.saveTemp(fileHeader.Filename)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}
	defer cleanup()
	if err := c.SaveUploadedFile(fileHeader, tmpPath); err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	result, err := h.transcription.TranscribeFile(c.Request.Context(), tmpPath, contentType, fileHeader.Filename, model)
	if err != nil {
		h.log.Error("File transcription failed", "filename", fileHeader.Filename, "error", err)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

// POST /api/meeting/process
func (h *TranscribeHandler) ProcessMeeting(c *gin.Context) {
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		RespondError(c, http.StatusBadRequest, fmt.Errorf("audio is required: %w", err))
		return
	}
	model := c.PostForm("model")

	tmpPath, cleanup, err := h.saveTemp(fileHeader.Filename)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}
	defer cleanup()
	if err := c.SaveUploadedFile(fileHeader, tmpPath); err != nil {
		RespondError(c, http.StatusInternalServerError, err)
		return
	}

	result, err := h.transcription.ProcessMeeting(c.Request.Context(), tmpPath, model)
	if err != nil {
		h.log.Error("Meeting processing failed", "filename", fileHeader.Filename, "error", err)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

// saveTemp reserves a per-request path under the work dir. The cleanup func
// removes whatever ended up there.
func (h *TranscribeHandler) saveTemp(originalName string) (string, func(), error) {
	if err := os.MkdirAll(h.workDir, 0o755); err != nil {
		return "", nil, err
	}
	path := filepath.Join(h.workDir, uuid.NewString()+"-"+filepath.Base(originalName))
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			h.log.Warn("Failed to remove temp upload", "path", path, "error", err)
		}
	}
	return path, cleanup, nil
}
