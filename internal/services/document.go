package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/repos"
	"github.com/voxnote/voxnote-backend/internal/types"
)

// documentSnippetRunes caps the document prefix sent to the embedding model;
// CJK text runs roughly two tokens per character.
const documentSnippetRunes = 2000

type UploadDocumentRequest struct {
	Name        string
	Filename    string // stored name under the uploads dir
	ContentType string
	Content     string // extracted text
	TagID       *int64
}

type DocumentService interface {
	Upload(ctx context.Context, req UploadDocumentRequest) (*types.Document, error)
	List(ctx context.Context) ([]*types.Document, error)
	SetTag(ctx context.Context, id int64, tagID *int64) error
	// Delete removes the stored upload file along with the record.
	Delete(ctx context.Context, id int64) error
}

type documentService struct {
	db         *gorm.DB
	log        *logger.Logger
	documents  repos.DocumentRepo
	indexQueue IndexEnqueuer
	uploadsDir string
}

func NewDocumentService(db *gorm.DB, baseLog *logger.Logger, documentRepo repos.DocumentRepo, indexQueue IndexEnqueuer, uploadsDir string) DocumentService {
	return &documentService{
		db:         db,
		log:        baseLog.With("service", "DocumentService"),
		documents:  documentRepo,
		indexQueue: indexQueue,
		uploadsDir: uploadsDir,
	}
}

func (s *documentService) Upload(ctx context.Context, req UploadDocumentRequest) (*types.Document, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, NewValidationError("檔案中沒有可提取的文字內容。")
	}

	record, err := s.documents.Create(ctx, nil, &types.Document{
		Name:     req.Name,
		Filename: req.Filename,
		Type:     req.ContentType,
		Content:  req.Content,
		TagID:    req.TagID,
	})
	if err != nil {
		return nil, err
	}

	if !s.indexQueue.Enqueue(SourceKindDoc, record.ID, truncateRunes(req.Content, documentSnippetRunes)) {
		s.log.Warn("Indexing queue saturated, document left unindexed", "document_id", record.ID)
	}
	return record, nil
}

func (s *documentService) List(ctx context.Context) ([]*types.Document, error) {
	return s.documents.ListAll(ctx, nil)
}

func (s *documentService) SetTag(ctx context.Context, id int64, tagID *int64) error {
	return s.documents.SetTag(ctx, nil, id, tagID)
}

func (s *documentService) Delete(ctx context.Context, id int64) error {
	doc, err := s.documents.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	path := filepath.Join(s.uploadsDir, doc.Filename)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("Could not remove stored upload", "path", path, "error", err)
	}

	if _, err := s.documents.Delete(ctx, nil, id); err != nil {
		return err
	}
	return nil
}
