package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/services"
)

type LibraryHandler struct {
	log            *logger.Logger
	libraryService services.LibraryService
}

func NewLibraryHandler(log *logger.Logger, libraryService services.LibraryService) *LibraryHandler {
	return &LibraryHandler{
		log:            log.With("handler", "LibraryHandler"),
		libraryService: libraryService,
	}
}

type saveTranscriptBody struct {
	URL        string  `json:"url"`
	Transcript string  `json:"transcript"`
	Summary    string  `json:"summary"`
	TagID      *int64  `json:"tag_id"`
	Cost       *string `json:"cost"`
}

// POST /api/library/save
func (h *LibraryHandler) Save(c *gin.Context) {
	var body saveTranscriptBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}

	record, err := h.libraryService.SaveTranscript(c.Request.Context(), services.SaveTranscriptRequest{
		URL:        body.URL,
		Transcript: body.Transcript,
		Summary:    body.Summary,
		TagID:      body.TagID,
		Cost:       body.Cost,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"id": record.ID, "message": "Saved successfully, indexing in progress..."})
}

// GET /api/library/history
func (h *LibraryHandler) History(c *gin.Context) {
	records, err := h.libraryService.History(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, records)
}

// DELETE /api/library/:id
func (h *LibraryHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := h.libraryService.Delete(c.Request.Context(), id); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "Deleted successfully"})
}

type setTagBody struct {
	TagID *int64 `json:"tag_id"`
}

// PATCH /api/library/:id/tag
func (h *LibraryHandler) SetTag(c *gin.Context) {
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
	if err := h.libraryService.SetTag(c.Request.Context(), id, body.TagID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}
