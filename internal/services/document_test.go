package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/voxnote/voxnote-backend/internal/db"
	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/repos"
)

func newDocumentFixture(t *testing.T, queue IndexEnqueuer, uploadsDir string) (DocumentService, repos.DocumentRepo) {
	t.Helper()
	gdb, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	log := logger.NewNop()
	documentRepo := repos.NewDocumentRepo(gdb, log)
	return NewDocumentService(gdb, log, documentRepo, queue, uploadsDir), documentRepo
}

func TestUploadDocumentEnqueuesSnippet(t *testing.T) {
	ctx := context.Background()
	queue := &recordingQueue{}
	svc, _ := newDocumentFixture(t, queue, t.TempDir())

	record, err := svc.Upload(ctx, UploadDocumentRequest{
		Name:        "notes.txt",
		Filename:    "abc-notes.txt",
		ContentType: "text/plain",
		Content:     "文件全文內容",
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if record.Embedding != nil {
		t.Error("new document must start unindexed")
	}
	if len(queue.ids) != 1 || queue.ids[0] != record.ID || queue.kinds[0] != SourceKindDoc {
		t.Fatalf("enqueued = %v/%v", queue.kinds, queue.ids)
	}
	if queue.texts[0] != "文件全文內容" {
		t.Errorf("search text = %q", queue.texts[0])
	}
}

func TestUploadDocumentRejectsEmptyContent(t *testing.T) {
	svc, _ := newDocumentFixture(t, &recordingQueue{}, t.TempDir())

	_, err := svc.Upload(context.Background(), UploadDocumentRequest{
		Name:    "empty.txt",
		Content: "   ",
	})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestDeleteDocumentRemovesStoredFile(t *testing.T) {
	ctx := context.Background()
	uploadsDir := t.TempDir()
	svc, documentRepo := newDocumentFixture(t, &recordingQueue{}, uploadsDir)

	storedPath := filepath.Join(uploadsDir, "abc-notes.txt")
	if err := os.WriteFile(storedPath, []byte("內容"), 0o644); err != nil {
		t.Fatalf("write stored file: %v", err)
	}

	record, err := svc.Upload(ctx, UploadDocumentRequest{
		Name:     "notes.txt",
		Filename: "abc-notes.txt",
		Content:  "內容",
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if err := svc.Delete(ctx, record.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(storedPath); !os.IsNotExist(err) {
		t.Error("stored file should be gone after delete")
	}
	if _, err := documentRepo.GetByID(ctx, nil, record.ID); err == nil {
		t.Error("record should be gone after delete")
	}
}

func TestDeleteDocumentNotFound(t *testing.T) {
	svc, _ := newDocumentFixture(t, &recordingQueue{}, t.TempDir())

	if err := svc.Delete(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(missing) = %v, want ErrNotFound", err)
	}
}
