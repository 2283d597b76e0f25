package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/openraise/escrow-backend/internal/logger"
	"github.com/openraise/escrow-backend/internal/types"
)

type ProjectRepo interface {
	Create(ctx context.Context, tx *gorm.DB, project *types.Project) (*types.Project, error)
	GetByID(ctx context.Context, tx *gorm.DB, projectID int64) (*types.Project, error)
	Save(ctx context.Context, tx *gorm.DB, project *types.Project) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, projectID int64, status types.ProjectStatus) error
	ListIDsByStatus(ctx context.Context, tx *gorm.DB, statuses []types.ProjectStatus) ([]int64, error)
}

type projectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProjectRepo(db *gorm.DB, baseLog *logger.Logger) ProjectRepo {
	repoLog := baseLog.With("repo", "ProjectRepo")
	return &projectRepo{db: db, log: repoLog}
}

func (pr *projectRepo) Create(ctx context.Context, tx *gorm.DB, project *types.Project) (*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	if err := transaction.WithContext(ctx).Create(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

func (pr *projectRepo) GetByID(ctx context.Context, tx *gorm.DB, projectID int64) (*types.Project, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var result types.Project
	if err := transaction.WithContext(ctx).
		Where("id = ?", projectID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (pr *projectRepo) Save(ctx context.Context, tx *gorm.DB, project *types.Project) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	return transaction.WithContext(ctx).Save(project).Error
}

func (pr *projectRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, projectID int64, status types.ProjectStatus) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	return transaction.WithContext(ctx).
		Model(&types.Project{}).
		Where("id = ?", projectID).
		Update("status", status).Error
}

func (pr *projectRepo) ListIDsByStatus(ctx context.Context, tx *gorm.DB, statuses []types.ProjectStatus) ([]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var ids []int64
	if len(statuses) == 0 {
		return ids, nil
	}
	if err := transaction.WithContext(ctx).
		Model(&types.Project{}).
		Where("status IN ?", statuses).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
