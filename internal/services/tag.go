package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/repos"
	"github.com/voxnote/voxnote-backend/internal/types"
)

type TagService interface {
	Create(ctx context.Context, name string) (*types.Tag, error)
	List(ctx context.Context) ([]*types.Tag, error)
	Delete(ctx context.Context, id int64) error
}

type tagService struct {
	db   *gorm.DB
	log  *logger.Logger
	tags repos.TagRepo
}

func NewTagService(db *gorm.DB, baseLog *logger.Logger, tagRepo repos.TagRepo) TagService {
	return &tagService{db: db, log: baseLog.With("service", "TagService"), tags: tagRepo}
}

func (s *tagService) Create(ctx context.Context, name string) (*types.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("tag name is required")
	}
	tag, err := s.tags.Create(ctx, nil, &types.Tag{Name: name})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewValidationError("標籤名稱已存在")
		}
		return nil, err
	}
	return tag, nil
}

func (s *tagService) List(ctx context.Context) ([]*types.Tag, error) {
	return s.tags.List(ctx, nil)
}

func (s *tagService) Delete(ctx context.Context, id int64) error {
	affected, err := s.tags.Delete(ctx, nil, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
