package repos

import (
	"context"
	"fmt"
	"testing"

	"github.com/voxnote/voxnote-backend/internal/db"
	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/types"
)

func seedThreadWithMessages(t *testing.T, n int) (ChatThreadRepo, ChatMessageRepo, int64) {
	t.Helper()
	gdb, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	log := logger.NewNop()
	threadRepo := NewChatThreadRepo(gdb, log)
	messageRepo := NewChatMessageRepo(gdb, log)

	thread, err := threadRepo.Create(context.Background(), nil, &types.ChatThread{Title: "測試"})
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}
	for i := 1; i <= n; i++ {
		role := types.RoleUser
		if i%2 == 0 {
			role = types.RoleAssistant
		}
		if _, err := messageRepo.Create(context.Background(), nil, &types.ChatMessage{
			ThreadID: thread.ID,
			Role:     role,
			Content:  fmt.Sprintf("訊息 %d", i),
		}); err != nil {
			t.Fatalf("create message %d: %v", i, err)
		}
	}
	return threadRepo, messageRepo, thread.ID
}

func TestListRecentReturnsLastNChronologically(t *testing.T) {
	_, messageRepo, threadID := seedThreadWithMessages(t, 14)

	recent, err := messageRepo.ListRecent(context.Background(), nil, threadID, 10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(recent) != 10 {
		t.Fatalf("ListRecent() = %d messages, want 10", len(recent))
	}
	// The newest ten, oldest first: messages 5 through 14.
	if recent[0].Content != "訊息 5" {
		t.Errorf("first = %q, want 訊息 5", recent[0].Content)
	}
	if recent[9].Content != "訊息 14" {
		t.Errorf("last = %q, want 訊息 14", recent[9].Content)
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].ID <= recent[i-1].ID {
			t.Fatalf("not chronological at %d: %d then %d", i, recent[i-1].ID, recent[i].ID)
		}
	}
}

func TestListByThreadOrderAndLimit(t *testing.T) {
	_, messageRepo, threadID := seedThreadWithMessages(t, 4)

	all, err := messageRepo.ListByThread(context.Background(), nil, threadID, 0)
	if err != nil {
		t.Fatalf("ListByThread() error = %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("got %d messages, want 4", len(all))
	}
	if all[0].Content != "訊息 1" || all[3].Content != "訊息 4" {
		t.Errorf("order = %q ... %q", all[0].Content, all[3].Content)
	}

	limited, err := messageRepo.ListByThread(context.Background(), nil, threadID, 2)
	if err != nil {
		t.Fatalf("ListByThread(limit) error = %v", err)
	}
	if len(limited) != 2 || limited[0].Content != "訊息 1" {
		t.Errorf("limited = %+v", limited)
	}
}

func TestThreadDeleteCascadesMessages(t *testing.T) {
	threadRepo, messageRepo, threadID := seedThreadWithMessages(t, 2)

	affected, err := threadRepo.Delete(context.Background(), nil, threadID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if affected != 1 {
		t.Fatalf("Delete() affected %d, want 1", affected)
	}

	left, err := messageRepo.ListByThread(context.Background(), nil, threadID, 0)
	if err != nil {
		t.Fatalf("ListByThread() error = %v", err)
	}
	if len(left) != 0 {
		t.Errorf("cascade left %d messages", len(left))
	}
}
