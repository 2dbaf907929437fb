package repos

import (
	"context"
	"testing"

	"github.com/voxnote/voxnote-backend/internal/db"
	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/types"
)

func TestListIndexedFiltersAndScopes(t *testing.T) {
	ctx := context.Background()
	gdb, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	log := logger.NewNop()
	transcriptRepo := NewTranscriptRepo(gdb, log)
	tagRepo := NewTagRepo(gdb, log)

	tag, err := tagRepo.Create(ctx, nil, &types.Tag{Name: "投資"})
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}

	embedding := "[1.0,0.0]"
	indexedTagged, err := transcriptRepo.Create(ctx, nil, &types.Transcript{
		URL: "https://www.instagram.com/reel/a", Embedding: &embedding, TagID: &tag.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	indexedUntagged, err := transcriptRepo.Create(ctx, nil, &types.Transcript{
		URL: "https://www.instagram.com/reel/b", Embedding: &embedding,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := transcriptRepo.Create(ctx, nil, &types.Transcript{
		URL: "https://www.instagram.com/reel/c",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	all, err := transcriptRepo.ListIndexed(ctx, nil, nil)
	if err != nil {
		t.Fatalf("ListIndexed() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListIndexed(nil) = %d records, want 2 (unindexed excluded)", len(all))
	}
	if all[0].ID != indexedTagged.ID || all[1].ID != indexedUntagged.ID {
		t.Errorf("ListIndexed order = %d,%d", all[0].ID, all[1].ID)
	}

	scoped, err := transcriptRepo.ListIndexed(ctx, nil, &tag.ID)
	if err != nil {
		t.Fatalf("ListIndexed(tag) error = %v", err)
	}
	if len(scoped) != 1 || scoped[0].ID != indexedTagged.ID {
		t.Errorf("tag-scoped result = %+v", scoped)
	}
}

func TestDeleteTagNullsTranscriptTag(t *testing.T) {
	ctx := context.Background()
	gdb, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	log := logger.NewNop()
	transcriptRepo := NewTranscriptRepo(gdb, log)
	tagRepo := NewTagRepo(gdb, log)

	tag, err := tagRepo.Create(ctx, nil, &types.Tag{Name: "理財"})
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}
	record, err := transcriptRepo.Create(ctx, nil, &types.Transcript{
		URL: "https://www.instagram.com/reel/a", TagID: &tag.ID,
	})
	if err != nil {
		t.Fatalf("create transcript: %v", err)
	}

	affected, err := tagRepo.Delete(ctx, nil, tag.ID)
	if err != nil {
		t.Fatalf("delete tag: %v", err)
	}
	if affected != 1 {
		t.Fatalf("delete affected %d rows, want 1", affected)
	}

	stored, err := transcriptRepo.GetByID(ctx, nil, record.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.TagID != nil {
		t.Errorf("TagID = %v, want nil after tag deletion", *stored.TagID)
	}
}

func TestSetTagAndSetEmbedding(t *testing.T) {
	ctx := context.Background()
	gdb, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	log := logger.NewNop()
	transcriptRepo := NewTranscriptRepo(gdb, log)
	tagRepo := NewTagRepo(gdb, log)

	tag, err := tagRepo.Create(ctx, nil, &types.Tag{Name: "健康"})
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}
	record, err := transcriptRepo.Create(ctx, nil, &types.Transcript{
		URL: "https://www.instagram.com/reel/a",
	})
	if err != nil {
		t.Fatalf("create transcript: %v", err)
	}

	if err := transcriptRepo.SetTag(ctx, nil, record.ID, &tag.ID); err != nil {
		t.Fatalf("SetTag() error = %v", err)
	}
	if err := transcriptRepo.SetEmbedding(ctx, nil, record.ID, "[0.1,0.2]"); err != nil {
		t.Fatalf("SetEmbedding() error = %v", err)
	}

	stored, err := transcriptRepo.GetByID(ctx, nil, record.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.TagID == nil || *stored.TagID != tag.ID {
		t.Errorf("TagID = %v, want %d", stored.TagID, tag.ID)
	}
	if stored.Embedding == nil || *stored.Embedding != "[0.1,0.2]" {
		t.Errorf("Embedding = %v", stored.Embedding)
	}

	// Clearing the tag again.
	if err := transcriptRepo.SetTag(ctx, nil, record.ID, nil); err != nil {
		t.Fatalf("SetTag(nil) error = %v", err)
	}
	stored, err = transcriptRepo.GetByID(ctx, nil, record.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.TagID != nil {
		t.Errorf("TagID = %v, want nil", *stored.TagID)
	}
}
