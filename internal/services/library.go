package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/repos"
	"github.com/voxnote/voxnote-backend/internal/types"
)

// transcriptSnippetRunes bounds how much raw transcript goes into the
// indexed search content; the summary carries the rest of the signal.
const transcriptSnippetRunes = 5000

// IndexEnqueuer hands a record to the background indexing queue. Returns
// false when the queue is saturated.
type IndexEnqueuer interface {
	Enqueue(kind string, recordID int64, searchText string) bool
}

type SaveTranscriptRequest struct {
	URL        string
	Transcript string
	Summary    string
	TagID      *int64
	Cost       *string
}

type LibraryService interface {
	// SaveTranscript stores the record immediately with a nil embedding and
	// schedules background indexing; the save never waits on the provider.
	SaveTranscript(ctx context.Context, req SaveTranscriptRequest) (*types.Transcript, error)
	History(ctx context.Context) ([]*types.Transcript, error)
	SetTag(ctx context.Context, id int64, tagID *int64) error
	Delete(ctx context.Context, id int64) error
}

type libraryService struct {
	db          *gorm.DB
	log         *logger.Logger
	transcripts repos.TranscriptRepo
	indexQueue  IndexEnqueuer
}

func NewLibraryService(db *gorm.DB, baseLog *logger.Logger, transcriptRepo repos.TranscriptRepo, indexQueue IndexEnqueuer) LibraryService {
	return &libraryService{
		db:          db,
		log:         baseLog.With("service", "LibraryService"),
		transcripts: transcriptRepo,
		indexQueue:  indexQueue,
	}
}

func (s *libraryService) SaveTranscript(ctx context.Context, req SaveTranscriptRequest) (*types.Transcript, error) {
	if strings.TrimSpace(req.URL) == "" || strings.TrimSpace(req.Transcript) == "" || strings.TrimSpace(req.Summary) == "" {
		return nil, NewValidationError("url, transcript and summary are required")
	}

	record, err := s.transcripts.Create(ctx, nil, &types.Transcript{
		URL:        req.URL,
		Transcript: req.Transcript,
		Summary:    req.Summary,
		TagID:      req.TagID,
		Cost:       req.Cost,
	})
	if err != nil {
		return nil, err
	}

	searchText := "Summary: " + req.Summary + "\n\nTranscript Snippet: " + truncateRunes(req.Transcript, transcriptSnippetRunes)
	if !s.indexQueue.Enqueue(SourceKindReel, record.ID, searchText) {
		// Record stays listed but unsearchable until a manual re-index.
		s.log.Warn("Indexing queue saturated, transcript left unindexed", "transcript_id", record.ID)
	}
	return record, nil
}

func (s *libraryService) History(ctx context.Context) ([]*types.Transcript, error) {
	return s.transcripts.ListAll(ctx, nil)
}

func (s *libraryService) SetTag(ctx context.Context, id int64, tagID *int64) error {
	return s.transcripts.SetTag(ctx, nil, id, tagID)
}

func (s *libraryService) Delete(ctx context.Context, id int64) error {
	affected, err := s.transcripts.Delete(ctx, nil, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
