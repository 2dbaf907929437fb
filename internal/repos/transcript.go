package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/types"
)

type TranscriptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, t *types.Transcript) (*types.Transcript, error)
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Transcript, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Transcript, error)
	// ListIndexed returns transcripts whose embedding is present, optionally
	// restricted to one tag. Unindexed records are invisible to retrieval.
	ListIndexed(ctx context.Context, tx *gorm.DB, tagID *int64) ([]*types.Transcript, error)
	SetEmbedding(ctx context.Context, tx *gorm.DB, id int64, embedding string) error
	SetTag(ctx context.Context, tx *gorm.DB, id int64, tagID *int64) error
	Delete(ctx context.Context, tx *gorm.DB, id int64) (int64, error)
}

type transcriptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTranscriptRepo(db *gorm.DB, baseLog *logger.Logger) TranscriptRepo {
	return &transcriptRepo{db: db, log: baseLog.With("repo", "TranscriptRepo")}
}

func (r *transcriptRepo) Create(ctx context.Context, tx *gorm.DB, t *types.Transcript) (*types.Transcript, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (r *transcriptRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Transcript, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.Transcript
	if err := transaction.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *transcriptRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Transcript, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Transcript
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *transcriptRepo) ListIndexed(ctx context.Context, tx *gorm.DB, tagID *int64) ([]*types.Transcript, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Where("embedding IS NOT NULL")
	if tagID != nil {
		q = q.Where("tag_id = ?", *tagID)
	}
	var results []*types.Transcript
	if err := q.Order("id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *transcriptRepo) SetEmbedding(ctx context.Context, tx *gorm.DB, id int64, embedding string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Transcript{}).
		Where("id = ?", id).
		Update("embedding", embedding).Error
}

func (r *transcriptRepo) SetTag(ctx context.Context, tx *gorm.DB, id int64, tagID *int64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Transcript{}).
		Where("id = ?", id).
		Update("tag_id", tagID).Error
}

func (r *transcriptRepo) Delete(ctx context.Context, tx *gorm.DB, id int64) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).Delete(&types.Transcript{}, id)
	return res.RowsAffected, res.Error
}
