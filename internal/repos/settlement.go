package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openraise/escrow-backend/internal/logger"
	"github.com/openraise/escrow-backend/internal/types"
)

type SettlementRepo interface {
	Create(ctx context.Context, tx *gorm.DB, records []*types.SettlementRecord) ([]*types.SettlementRecord, error)
	ListByProject(ctx context.Context, tx *gorm.DB, projectID int64) ([]*types.SettlementRecord, error)
	ListUnpaidByProject(ctx context.Context, tx *gorm.DB, projectID int64) ([]*types.SettlementRecord, error)
	MarkPaid(ctx context.Context, tx *gorm.DB, recordID uuid.UUID, paidAt time.Time) error
}

type settlementRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSettlementRepo(db *gorm.DB, baseLog *logger.Logger) SettlementRepo {
	repoLog := baseLog.With("repo", "SettlementRepo")
	return &settlementRepo{db: db, log: repoLog}
}

func (sr *settlementRepo) Create(ctx context.Context, tx *gorm.DB, records []*types.SettlementRecord) ([]*types.SettlementRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	if len(records) == 0 {
		return records, nil
	}
	for _, record := range records {
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(ctx).Create(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (sr *settlementRepo) ListByProject(ctx context.Context, tx *gorm.DB, projectID int64) ([]*types.SettlementRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.SettlementRecord
	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *settlementRepo) ListUnpaidByProject(ctx context.Context, tx *gorm.DB, projectID int64) ([]*types.SettlementRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var results []*types.SettlementRecord
	if err := transaction.WithContext(ctx).
		Where("project_id = ? AND paid_at IS NULL", projectID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (sr *settlementRepo) MarkPaid(ctx context.Context, tx *gorm.DB, recordID uuid.UUID, paidAt time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	return transaction.WithContext(ctx).
		Model(&types.SettlementRecord{}).
		Where("id = ?", recordID).
		Update("paid_at", paidAt).Error
}
