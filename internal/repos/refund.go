package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openraise/escrow-backend/internal/logger"
	"github.com/openraise/escrow-backend/internal/types"
)

type RefundRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, projectID int64, contributor string, amount int64) error
	Get(ctx context.Context, tx *gorm.DB, projectID int64, contributor string) (*types.RefundEntry, error)
	SetPending(ctx context.Context, tx *gorm.DB, projectID int64, contributor string, amount int64, claimedAt *time.Time) error
	ListByProject(ctx context.Context, tx *gorm.DB, projectID int64) ([]*types.RefundEntry, error)
	ZeroProject(ctx context.Context, tx *gorm.DB, projectID int64) error
}

type refundRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRefundRepo(db *gorm.DB, baseLog *logger.Logger) RefundRepo {
	repoLog := baseLog.With("repo", "RefundRepo")
	return &refundRepo{db: db, log: repoLog}
}

// Upsert overwrites (not adds to) the pending amount for the pair; batch
// population is an overwrite by contract.
func (rr *refundRepo) Upsert(ctx context.Context, tx *gorm.DB, projectID int64, contributor string, amount int64) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	entry := types.RefundEntry{
		ID:            uuid.New(),
		ProjectID:     projectID,
		Contributor:   contributor,
		PendingAmount: amount,
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "contributor"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"pending_amount": amount, "claimed_at": nil}),
		}).
		Create(&entry).Error
}

func (rr *refundRepo) Get(ctx context.Context, tx *gorm.DB, projectID int64, contributor string) (*types.RefundEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var result types.RefundEntry
	if err := transaction.WithContext(ctx).
		Where("project_id = ? AND contributor = ?", projectID, contributor).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (rr *refundRepo) SetPending(ctx context.Context, tx *gorm.DB, projectID int64, contributor string, amount int64, claimedAt *time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	return transaction.WithContext(ctx).
		Model(&types.RefundEntry{}).
		Where("project_id = ? AND contributor = ?", projectID, contributor).
		Updates(map[string]interface{}{"pending_amount": amount, "claimed_at": claimedAt}).Error
}

func (rr *refundRepo) ListByProject(ctx context.Context, tx *gorm.DB, projectID int64) ([]*types.RefundEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var results []*types.RefundEntry
	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("contributor ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *refundRepo) ZeroProject(ctx context.Context, tx *gorm.DB, projectID int64) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	return transaction.WithContext(ctx).
		Model(&types.RefundEntry{}).
		Where("project_id = ?", projectID).
		Update("pending_amount", 0).Error
}
