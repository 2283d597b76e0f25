package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/openraise/escrow-backend/internal/apperr"
	"github.com/openraise/escrow-backend/internal/logger"
	"github.com/openraise/escrow-backend/internal/repos"
	"github.com/openraise/escrow-backend/internal/types"
)

// MaxFeeRateBasisPoints caps the platform fee at 10%.
const MaxFeeRateBasisPoints = 1000

// SettlementService performs the one-time fee split of a successful
// raise. Both settlement records and the settled flag are committed
// before any transfer is attempted; a transfer failure leaves the ledger
// committed and the unpaid records retryable via RetryPayouts. That
// choice (commit, don't roll back) is deliberate: the settled flag is
// the reentrancy defense against a second full settlement.
type SettlementService interface {
	Settle(ctx context.Context, projectID int64, totalAmount int64, creator string) ([]*types.SettlementRecord, error)
	RetryPayouts(ctx context.Context, projectID int64) (int, error)
	Records(ctx context.Context, projectID int64) ([]*types.SettlementRecord, error)
	FeeRate() int64
	SetFeeRate(basisPoints int64) error
}

type settlementService struct {
	db             *gorm.DB
	projectRepo    repos.ProjectRepo
	settlementRepo repos.SettlementRepo
	transfer       ValueTransfer
	locks          *ProjectLocks
	clock          Clock
	log            *logger.Logger

	feeMu        sync.RWMutex
	feeRate      int64
	feeRecipient string
}

func NewSettlementService(db *gorm.DB, projectRepo repos.ProjectRepo, settlementRepo repos.SettlementRepo, transfer ValueTransfer, locks *ProjectLocks, clock Clock, feeRate int64, feeRecipient string, baseLog *logger.Logger) (SettlementService, error) {
	if feeRate < 0 || feeRate > MaxFeeRateBasisPoints {
		return nil, apperr.Validation("fee rate %d outside [0, %d] basis points", feeRate, MaxFeeRateBasisPoints)
	}
	if strings.TrimSpace(feeRecipient) == "" {
		return nil, apperr.Validation("fee recipient must not be empty")
	}
	serviceLog := baseLog.With("service", "SettlementService")
	return &settlementService{
		db:             db,
		projectRepo:    projectRepo,
		settlementRepo: settlementRepo,
		transfer:       transfer,
		locks:          locks,
		clock:          clock,
		feeRate:        feeRate,
		feeRecipient:   feeRecipient,
		log:            serviceLog,
	}, nil
}

func (ss *settlementService) FeeRate() int64 {
	ss.feeMu.RLock()
	defer ss.feeMu.RUnlock()
	return ss.feeRate
}

func (ss *settlementService) SetFeeRate(basisPoints int64) error {
	if basisPoints < 0 || basisPoints > MaxFeeRateBasisPoints {
		return apperr.Validation("fee rate %d outside [0, %d] basis points", basisPoints, MaxFeeRateBasisPoints)
	}
	ss.feeMu.Lock()
	old := ss.feeRate
	ss.feeRate = basisPoints
	ss.feeMu.Unlock()
	ss.log.Info("Fee rate updated", "from", old, "to", basisPoints)
	return nil
}

// SplitAmount computes the fee split. Integer division truncates toward
// the platform, so the remainder always lands with the creator and the
// two legs sum exactly to total.
func SplitAmount(total, feeRateBasisPoints int64) (creatorAmount, fee int64) {
	fee = total * feeRateBasisPoints / 10000
	creatorAmount = total - fee
	return creatorAmount, fee
}

func (ss *settlementService) Settle(ctx context.Context, projectID int64, totalAmount int64, creator string) ([]*types.SettlementRecord, error) {
	if strings.TrimSpace(creator) == "" {
		return nil, apperr.Validation("creator must not be empty")
	}
	if totalAmount <= 0 {
		return nil, apperr.Validation("settlement total must be positive")
	}

	unlock := ss.locks.Lock(projectID)
	defer unlock()

	project, err := ss.projectRepo.GetByID(ctx, nil, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("project %d not found", projectID)
		}
		return nil, apperr.Internal(fmt.Errorf("get project %d: %w", projectID, err))
	}
	if project.Settled {
		return nil, apperr.StateCode(apperr.CodeAlreadySettled, "project %d is already settled", projectID)
	}

	creatorAmount, fee := SplitAmount(totalAmount, ss.FeeRate())

	records := []*types.SettlementRecord{
		{ProjectID: projectID, Recipient: creator, RecipientRole: types.RoleCreator, Amount: creatorAmount},
		{ProjectID: projectID, Recipient: ss.feeRecipient, RecipientRole: types.RolePlatform, Amount: fee},
	}

	// Effects before interactions: records plus the settled flag commit
	// in one transaction, then the transfers run. A reentrant Settle
	// observes settled=true and is rejected above.
	err = ss.db.Transaction(func(tx *gorm.DB) error {
		if _, err := ss.settlementRepo.Create(ctx, tx, records); err != nil {
			return err
		}
		project.Settled = true
		return ss.projectRepo.Save(ctx, tx, project)
	})
	if err != nil {
		ss.log.Error("Failed to record settlement", "project_id", projectID, "error", err)
		return nil, apperr.Internal(fmt.Errorf("record settlement of project %d: %w", projectID, err))
	}

	ss.log.Info("Settlement recorded", "project_id", projectID, "creator_amount", creatorAmount, "fee", fee)

	if err := ss.payout(ctx, records); err != nil {
		return records, err
	}
	return records, nil
}

// RetryPayouts re-attempts the transfers of unpaid settlement records.
// Paid records are skipped, so the call is idempotent.
func (ss *settlementService) RetryPayouts(ctx context.Context, projectID int64) (int, error) {
	unlock := ss.locks.Lock(projectID)
	defer unlock()

	unpaid, err := ss.settlementRepo.ListUnpaidByProject(ctx, nil, projectID)
	if err != nil {
		return 0, apperr.Internal(fmt.Errorf("list unpaid settlement records of project %d: %w", projectID, err))
	}
	if len(unpaid) == 0 {
		return 0, nil
	}
	if err := ss.payout(ctx, unpaid); err != nil {
		remaining, listErr := ss.settlementRepo.ListUnpaidByProject(ctx, nil, projectID)
		if listErr != nil {
			return 0, err
		}
		return len(unpaid) - len(remaining), err
	}
	return len(unpaid), nil
}

func (ss *settlementService) Records(ctx context.Context, projectID int64) ([]*types.SettlementRecord, error) {
	records, err := ss.settlementRepo.ListByProject(ctx, nil, projectID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list settlement records of project %d: %w", projectID, err))
	}
	return records, nil
}

func (ss *settlementService) payout(ctx context.Context, records []*types.SettlementRecord) error {
	for _, record := range records {
		if record.PaidAt != nil {
			continue
		}
		if record.Amount == 0 {
			// A zero fee leg has nothing to move; stamp it paid.
			now := ss.clock.Now()
			if err := ss.settlementRepo.MarkPaid(ctx, nil, record.ID, now); err != nil {
				return apperr.Internal(fmt.Errorf("mark settlement record %s paid: %w", record.ID, err))
			}
			record.PaidAt = &now
			continue
		}
		if err := ss.transfer.Transfer(ctx, record.Recipient, record.Amount); err != nil {
			ss.log.Error("Settlement payout failed", "project_id", record.ProjectID, "recipient", record.Recipient, "role", record.RecipientRole, "amount", record.Amount, "error", err)
			return apperr.Transfer(fmt.Errorf("pay %s leg of project %d: %w", record.RecipientRole, record.ProjectID, err))
		}
		now := ss.clock.Now()
		if err := ss.settlementRepo.MarkPaid(ctx, nil, record.ID, now); err != nil {
			return apperr.Internal(fmt.Errorf("mark settlement record %s paid: %w", record.ID, err))
		}
		record.PaidAt = &now
		ss.log.Info("Settlement payout sent", "project_id", record.ProjectID, "recipient", record.Recipient, "role", record.RecipientRole, "amount", record.Amount)
	}
	return nil
}
