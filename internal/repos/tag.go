package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/types"
)

type TagRepo interface {
	Create(ctx context.Context, tx *gorm.DB, tag *types.Tag) (*types.Tag, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Tag, error)
	// Delete removes the tag only; the store nulls out tag_id on records
	// that referenced it.
	Delete(ctx context.Context, tx *gorm.DB, id int64) (int64, error)
}

type tagRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTagRepo(db *gorm.DB, baseLog *logger.Logger) TagRepo {
	return &tagRepo{db: db, log: baseLog.With("repo", "TagRepo")}
}

func (r *tagRepo) Create(ctx context.Context, tx *gorm.DB, tag *types.Tag) (*types.Tag, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(tag).Error; err != nil {
		return nil, err
	}
	return tag, nil
}

func (r *tagRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Tag, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Tag
	if err := transaction.WithContext(ctx).
		Order("name ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *tagRepo) Delete(ctx context.Context, tx *gorm.DB, id int64) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).Delete(&types.Tag{}, id)
	return res.RowsAffected, res.Error
}
