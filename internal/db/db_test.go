package db

import (
	"fmt"
	"sync"
	"testing"

	"github.com/voxnote/voxnote-backend/internal/types"
)

func TestOpenMemorySchemaVisibleAcrossGoroutines(t *testing.T) {
	gdb, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}

	// Concurrent writers and readers must all land on the same database;
	// a per-connection private store would fail here with "no such table".
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			record := types.Transcript{
				URL:        fmt.Sprintf("https://www.instagram.com/reel/%d", n),
				Transcript: "逐字稿",
				Summary:    "摘要",
			}
			if err := gdb.Create(&record).Error; err != nil {
				errs <- fmt.Errorf("create %d: %w", n, err)
				return
			}
			var got types.Transcript
			if err := gdb.First(&got, record.ID).Error; err != nil {
				errs <- fmt.Errorf("read back %d: %w", n, err)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	var count int64
	if err := gdb.Model(&types.Transcript{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 8 {
		t.Errorf("count = %d, want 8", count)
	}
}

func TestOpenMemoryEnforcesForeignKeys(t *testing.T) {
	gdb, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}

	missing := int64(424242)
	err = gdb.Create(&types.ChatMessage{
		ThreadID: missing,
		Role:     types.RoleUser,
		Content:  "訊息",
	}).Error
	if err == nil {
		t.Fatal("message with dangling thread_id should violate the FK")
	}
}
