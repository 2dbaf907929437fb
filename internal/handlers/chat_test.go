package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/services"
	"github.com/voxnote/voxnote-backend/internal/types"
)

type stubChatService struct {
	result *services.ChatResult
	err    error
}

func (s *stubChatService) SendMessage(ctx context.Context, req services.ChatRequest) (*services.ChatResult, error) {
	return s.result, s.err
}
func (s *stubChatService) ListThreads(ctx context.Context) ([]*types.ChatThread, error) {
	return nil, s.err
}
func (s *stubChatService) ListMessages(ctx context.Context, threadID int64) ([]services.MessageView, error) {
	return nil, s.err
}
func (s *stubChatService) DeleteThread(ctx context.Context, threadID int64) error {
	return s.err
}

func newChatRouter(svc services.ChatService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewChatHandler(logger.NewNop(), svc)
	router := gin.New()
	router.POST("/api/chat", handler.Chat)
	router.DELETE("/api/chat/threads/:id", handler.DeleteThread)
	router.GET("/api/chat/threads/:id/messages", handler.ListMessages)
	return router
}

func TestChatSuccess(t *testing.T) {
	router := newChatRouter(&stubChatService{result: &services.ChatResult{
		ThreadID: 7,
		Answer:   "回答",
		Sources:  []types.SourceRef{},
		Usage:    types.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		Cost:     "0.000010",
	}})

	body := strings.NewReader(`{"message":"問題","model":"gemini"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var got services.ChatResult
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ThreadID != 7 || got.Answer != "回答" || got.Cost != "0.000010" {
		t.Errorf("response = %+v", got)
	}
}

func TestChatRejectsBadJSON(t *testing.T) {
	router := newChatRouter(&stubChatService{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	var envelope ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error == "" {
		t.Error("error message must be populated")
	}
}

func TestChatValidationMapsTo400(t *testing.T) {
	router := newChatRouter(&stubChatService{err: services.NewValidationError("message is required")})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":""}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDeleteThreadNotFound(t *testing.T) {
	router := newChatRouter(&stubChatService{err: services.ErrNotFound})

	req := httptest.NewRequest(http.MethodDelete, "/api/chat/threads/99", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestListMessagesRejectsBadID(t *testing.T) {
	router := newChatRouter(&stubChatService{})

	req := httptest.NewRequest(http.MethodGet, "/api/chat/threads/abc/messages", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
