package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/types"
)

type ChatThreadRepo interface {
	Create(ctx context.Context, tx *gorm.DB, thread *types.ChatThread) (*types.ChatThread, error)
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.ChatThread, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.ChatThread, error)
	SetTitle(ctx context.Context, tx *gorm.DB, id int64, title string) error
	// Touch bumps updated_at so the thread sorts to the top of the list.
	Touch(ctx context.Context, tx *gorm.DB, id int64) error
	Delete(ctx context.Context, tx *gorm.DB, id int64) (int64, error)
}

type chatThreadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatThreadRepo(db *gorm.DB, baseLog *logger.Logger) ChatThreadRepo {
	return &chatThreadRepo{db: db, log: baseLog.With("repo", "ChatThreadRepo")}
}

func (r *chatThreadRepo) Create(ctx context.Context, tx *gorm.DB, thread *types.ChatThread) (*types.ChatThread, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(thread).Error; err != nil {
		return nil, err
	}
	return thread, nil
}

func (r *chatThreadRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.ChatThread, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.ChatThread
	if err := transaction.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *chatThreadRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.ChatThread, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ChatThread
	if err := transaction.WithContext(ctx).
		Order("updated_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *chatThreadRepo) SetTitle(ctx context.Context, tx *gorm.DB, id int64, title string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.ChatThread{}).
		Where("id = ?", id).
		Updates(map[string]any{"title": title, "updated_at": time.Now()}).Error
}

func (r *chatThreadRepo) Touch(ctx context.Context, tx *gorm.DB, id int64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.ChatThread{}).
		Where("id = ?", id).
		Update("updated_at", time.Now()).Error
}

func (r *chatThreadRepo) Delete(ctx context.Context, tx *gorm.DB, id int64) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).Delete(&types.ChatThread{}, id)
	return res.RowsAffected, res.Error
}
