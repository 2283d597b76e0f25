package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openraise/escrow-backend/internal/logger"
	"github.com/openraise/escrow-backend/internal/types"
)

type ContributionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, record *types.ContributionRecord) (*types.ContributionRecord, error)
	ListByProject(ctx context.Context, tx *gorm.DB, projectID int64) ([]*types.ContributionRecord, error)
	ListActiveByProject(ctx context.Context, tx *gorm.DB, projectID int64) ([]*types.ContributionRecord, error)
	ListActiveByContributor(ctx context.Context, tx *gorm.DB, projectID int64, contributor string) ([]*types.ContributionRecord, error)
	SumActiveByContributor(ctx context.Context, tx *gorm.DB, projectID int64, contributor string) (int64, error)
	MarkCancelled(ctx context.Context, tx *gorm.DB, recordIDs []uuid.UUID) error
}

type contributionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContributionRepo(db *gorm.DB, baseLog *logger.Logger) ContributionRepo {
	repoLog := baseLog.With("repo", "ContributionRepo")
	return &contributionRepo{db: db, log: repoLog}
}

func (cr *contributionRepo) Create(ctx context.Context, tx *gorm.DB, record *types.ContributionRecord) (*types.ContributionRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (cr *contributionRepo) ListByProject(ctx context.Context, tx *gorm.DB, projectID int64) ([]*types.ContributionRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.ContributionRecord
	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("pledged_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *contributionRepo) ListActiveByProject(ctx context.Context, tx *gorm.DB, projectID int64) ([]*types.ContributionRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.ContributionRecord
	if err := transaction.WithContext(ctx).
		Where("project_id = ? AND status = ?", projectID, types.ContributionActive).
		Order("pledged_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *contributionRepo) ListActiveByContributor(ctx context.Context, tx *gorm.DB, projectID int64, contributor string) ([]*types.ContributionRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.ContributionRecord
	if err := transaction.WithContext(ctx).
		Where("project_id = ? AND contributor = ? AND status = ?", projectID, contributor, types.ContributionActive).
		Order("pledged_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *contributionRepo) SumActiveByContributor(ctx context.Context, tx *gorm.DB, projectID int64, contributor string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var total int64
	if err := transaction.WithContext(ctx).
		Model(&types.ContributionRecord{}).
		Where("project_id = ? AND contributor = ? AND status = ?", projectID, contributor, types.ContributionActive).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (cr *contributionRepo) MarkCancelled(ctx context.Context, tx *gorm.DB, recordIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if len(recordIDs) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.ContributionRecord{}).
		Where("id IN ?", recordIDs).
		Update("status", types.ContributionCancelled).Error
}
