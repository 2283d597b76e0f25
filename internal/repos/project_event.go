package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openraise/escrow-backend/internal/logger"
	"github.com/openraise/escrow-backend/internal/types"
)

type ProjectEventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, event *types.ProjectEvent) (*types.ProjectEvent, error)
	ListByProject(ctx context.Context, tx *gorm.DB, projectID int64) ([]*types.ProjectEvent, error)
}

type projectEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectEventRepo(db *gorm.DB, baseLog *logger.Logger) ProjectEventRepo {
	repoLog := baseLog.With("repo", "ProjectEventRepo")
	return &projectEventRepo{db: db, log: repoLog}
}

func (er *projectEventRepo) Create(ctx context.Context, tx *gorm.DB, event *types.ProjectEvent) (*types.ProjectEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(event).Error; err != nil {
		return nil, err
	}
	return event, nil
}

func (er *projectEventRepo) ListByProject(ctx context.Context, tx *gorm.DB, projectID int64) ([]*types.ProjectEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}

	var results []*types.ProjectEvent
	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
