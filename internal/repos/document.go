package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/types"
)

type DocumentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, d *types.Document) (*types.Document, error)
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Document, error)
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Document, error)
	ListIndexed(ctx context.Context, tx *gorm.DB, tagID *int64) ([]*types.Document, error)
	SetEmbedding(ctx context.Context, tx *gorm.DB, id int64, embedding string) error
	SetTag(ctx context.Context, tx *gorm.DB, id int64, tagID *int64) error
	Delete(ctx context.Context, tx *gorm.DB, id int64) (int64, error)
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) Create(ctx context.Context, tx *gorm.DB, d *types.Document) (*types.Document, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

func (r *documentRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Document, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.Document
	if err := transaction.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *documentRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Document, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Document
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *documentRepo) ListIndexed(ctx context.Context, tx *gorm.DB, tagID *int64) ([]*types.Document, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Where("embedding IS NOT NULL")
	if tagID != nil {
		q = q.Where("tag_id = ?", *tagID)
	}
	var results []*types.Document
	if err := q.Order("id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *documentRepo) SetEmbedding(ctx context.Context, tx *gorm.DB, id int64, embedding string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Document{}).
		Where("id = ?", id).
		Update("embedding", embedding).Error
}

func (r *documentRepo) SetTag(ctx context.Context, tx *gorm.DB, id int64, tagID *int64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Document{}).
		Where("id = ?", id).
		Update("tag_id", tagID).Error
}

func (r *documentRepo) Delete(ctx context.Context, tx *gorm.DB, id int64) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).Delete(&types.Document{}, id)
	return res.RowsAffected, res.Error
}
