package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/services"
)

type ChatHandler struct {
	log         *logger.Logger
	chatService services.ChatService
}

func NewChatHandler(log *logger.Logger, chatService services.ChatService) *ChatHandler {
	return &ChatHandler{
		log:         log.With("handler", "ChatHandler"),
		chatService: chatService,
	}
}

type chatRequestBody struct {
	Message  string `json:"message"`
	ThreadID *int64 `json:"thread_id"`
	Model    string `json:"model"`
	TagID    *int64 `json:"tag_id"`
}

// POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var body chatRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), services.ChatRequest{
		Message:  body.Message,
		ThreadID: body.ThreadID,
		Model:    body.Model,
		TagID:    body.TagID,
	})
	if err != nil {
		h.log.Error("Chat turn failed", "thread_id", body.ThreadID, "error", err)
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

// GET /api/chat/threads
func (h *ChatHandler) ListThreads(c *gin.Context) {
	threads, err := h.chatService.ListThreads(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, threads)
}

// GET /api/chat/threads/:id/messages
func (h *ChatHandler) ListMessages(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	messages, err := h.chatService.ListMessages(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, messages)
}

// DELETE /api/chat/threads/:id
func (h *ChatHandler) DeleteThread(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := h.chatService.DeleteThread(c.Request.Context(), id); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "Thread deleted"})
}
