package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/openraise/escrow-backend/internal/apperr"
	"github.com/openraise/escrow-backend/internal/logger"
	"github.com/openraise/escrow-backend/internal/repos"
	"github.com/openraise/escrow-backend/internal/types"
)

// RefundService is the pull-payment ledger for failed projects.
// Contributors drain their own entries; nothing is pushed.
type RefundService interface {
	// SetBatchRefunds overwrites the pending amount per (project,
	// contributor) pair. Items are applied in per-item isolation: a bad
	// pair is reported in the result, never aborts its siblings.
	SetBatchRefunds(ctx context.Context, projectID int64, details []RefundDetail) (BatchRefundResult, error)
	// ClaimRefund zeroes the entry, commits, and only then transfers.
	// A reentrant claim during the transfer sees an already-zeroed entry.
	// On transfer failure the amount is restored, keeping the invariant
	// "zero entry = already paid or never owed".
	ClaimRefund(ctx context.Context, projectID int64, contributor string) (int64, error)
	PendingRefund(ctx context.Context, projectID int64, contributor string) (int64, error)
	ListProjectRefunds(ctx context.Context, projectID int64) ([]*types.RefundEntry, error)
	// ClearProjectRefunds zeroes every entry of the project; the
	// administrative close of a refund cycle.
	ClearProjectRefunds(ctx context.Context, projectID int64) error
}

type BatchRefundResult struct {
	Applied int             `json:"applied"`
	Skipped []SkippedRefund `json:"skipped,omitempty"`
}

type SkippedRefund struct {
	Contributor string `json:"contributor"`
	Reason      string `json:"reason"`
}

type refundService struct {
	db         *gorm.DB
	refundRepo repos.RefundRepo
	transfer   ValueTransfer
	locks      *ProjectLocks
	clock      Clock
	log        *logger.Logger
}

func NewRefundService(db *gorm.DB, refundRepo repos.RefundRepo, transfer ValueTransfer, locks *ProjectLocks, clock Clock, baseLog *logger.Logger) RefundService {
	serviceLog := baseLog.With("service", "RefundService")
	return &refundService{db: db, refundRepo: refundRepo, transfer: transfer, locks: locks, clock: clock, log: serviceLog}
}

func (rs *refundService) SetBatchRefunds(ctx context.Context, projectID int64, details []RefundDetail) (BatchRefundResult, error) {
	unlock := rs.locks.Lock(projectID)
	defer unlock()

	var result BatchRefundResult
	for _, detail := range details {
		if strings.TrimSpace(detail.Contributor) == "" {
			result.Skipped = append(result.Skipped, SkippedRefund{Contributor: detail.Contributor, Reason: "empty contributor"})
			continue
		}
		if detail.Amount <= 0 {
			result.Skipped = append(result.Skipped, SkippedRefund{Contributor: detail.Contributor, Reason: "non-positive amount"})
			continue
		}
		if err := rs.refundRepo.Upsert(ctx, nil, projectID, detail.Contributor, detail.Amount); err != nil {
			rs.log.Error("Failed to set refund entry", "project_id", projectID, "contributor", detail.Contributor, "error", err)
			result.Skipped = append(result.Skipped, SkippedRefund{Contributor: detail.Contributor, Reason: err.Error()})
			continue
		}
		result.Applied++
	}

	rs.log.Info("Refund batch populated", "project_id", projectID, "applied", result.Applied, "skipped", len(result.Skipped))
	return result, nil
}

func (rs *refundService) ClaimRefund(ctx context.Context, projectID int64, contributor string) (int64, error) {
	if strings.TrimSpace(contributor) == "" {
		return 0, apperr.Validation("contributor must not be empty")
	}

	unlock := rs.locks.Lock(projectID)
	defer unlock()

	entry, err := rs.refundRepo.Get(ctx, nil, projectID, contributor)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.ValidationCode(apperr.CodeNoRefundAvailable, "no refund available for %s on project %d", contributor, projectID)
		}
		return 0, apperr.Internal(fmt.Errorf("get refund entry of %s on project %d: %w", contributor, projectID, err))
	}
	amount := entry.PendingAmount
	if amount == 0 {
		return 0, apperr.ValidationCode(apperr.CodeNoRefundAvailable, "no refund available for %s on project %d", contributor, projectID)
	}

	// Zero first, transfer second. The committed zero is what a
	// reentrant claim observes during the transfer.
	claimedAt := rs.clock.Now()
	if err := rs.refundRepo.SetPending(ctx, nil, projectID, contributor, 0, &claimedAt); err != nil {
		return 0, apperr.Internal(fmt.Errorf("zero refund entry of %s on project %d: %w", contributor, projectID, err))
	}

	if err := rs.transfer.Transfer(ctx, contributor, amount); err != nil {
		// Restore the balance so the entry stays claimable.
		if restoreErr := rs.refundRepo.SetPending(ctx, nil, projectID, contributor, amount, nil); restoreErr != nil {
			rs.log.Error("Failed to restore refund entry after transfer failure", "project_id", projectID, "contributor", contributor, "amount", amount, "error", restoreErr)
			return 0, apperr.Internal(fmt.Errorf("restore refund entry of %s on project %d: %w", contributor, projectID, restoreErr))
		}
		rs.log.Warn("Refund transfer failed, entry restored", "project_id", projectID, "contributor", contributor, "amount", amount, "error", err)
		return 0, apperr.Transfer(fmt.Errorf("refund %s on project %d: %w", contributor, projectID, err))
	}

	rs.log.Info("Refund claimed", "project_id", projectID, "contributor", contributor, "amount", amount)
	return amount, nil
}

func (rs *refundService) PendingRefund(ctx context.Context, projectID int64, contributor string) (int64, error) {
	entry, err := rs.refundRepo.Get(ctx, nil, projectID, contributor)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, apperr.Internal(fmt.Errorf("get refund entry of %s on project %d: %w", contributor, projectID, err))
	}
	return entry.PendingAmount, nil
}

func (rs *refundService) ListProjectRefunds(ctx context.Context, projectID int64) ([]*types.RefundEntry, error) {
	entries, err := rs.refundRepo.ListByProject(ctx, nil, projectID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list refund entries of project %d: %w", projectID, err))
	}
	return entries, nil
}

func (rs *refundService) ClearProjectRefunds(ctx context.Context, projectID int64) error {
	unlock := rs.locks.Lock(projectID)
	defer unlock()

	if err := rs.refundRepo.ZeroProject(ctx, nil, projectID); err != nil {
		return apperr.Internal(fmt.Errorf("clear refund entries of project %d: %w", projectID, err))
	}
	rs.log.Info("Refund entries cleared", "project_id", projectID)
	return nil
}
