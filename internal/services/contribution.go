package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openraise/escrow-backend/internal/apperr"
	"github.com/openraise/escrow-backend/internal/logger"
	"github.com/openraise/escrow-backend/internal/repos"
	"github.com/openraise/escrow-backend/internal/types"
)

// ContributionService is the append-only pledge ledger. It owns
// ContributionRecords and maintains the RaisedAmount/ContributorCount
// aggregates on the project it references (by id, never by pointer).
//
// ContributorCount intentionally counts calls, not distinct addresses:
// it increments once per Contribute and decrements once per Cancel.
// Existing callers depend on that behavior, so it is preserved as-is.
type ContributionService interface {
	Contribute(ctx context.Context, projectID int64, contributor string, amount int64) (*types.ContributionRecord, error)
	// Cancel flips every active record of the contributor to cancelled
	// and returns the amount owed back. Moving the money is the caller's
	// job, after this call has committed.
	Cancel(ctx context.Context, projectID int64, contributor string) (int64, error)
	Records(ctx context.Context, projectID int64) ([]*types.ContributionRecord, error)
	// FailureRefundDetails is the single hand-off point to the refund
	// ledger: it cancels every remaining active record of a failed
	// project, zeroes the aggregates and returns per-contributor totals.
	// A second call finds no active records and returns an empty list.
	FailureRefundDetails(ctx context.Context, projectID int64) ([]RefundDetail, error)
}

type RefundDetail struct {
	Contributor string `json:"contributor"`
	Amount      int64  `json:"amount"`
}

type contributionService struct {
	db          *gorm.DB
	projectRepo repos.ProjectRepo
	contribRepo repos.ContributionRepo
	locks       *ProjectLocks
	clock       Clock
	log         *logger.Logger
}

func NewContributionService(db *gorm.DB, projectRepo repos.ProjectRepo, contribRepo repos.ContributionRepo, locks *ProjectLocks, clock Clock, baseLog *logger.Logger) ContributionService {
	serviceLog := baseLog.With("service", "ContributionService")
	return &contributionService{db: db, projectRepo: projectRepo, contribRepo: contribRepo, locks: locks, clock: clock, log: serviceLog}
}

func (cs *contributionService) Contribute(ctx context.Context, projectID int64, contributor string, amount int64) (*types.ContributionRecord, error) {
	if strings.TrimSpace(contributor) == "" {
		return nil, apperr.Validation("contributor must not be empty")
	}
	if amount <= 0 {
		return nil, apperr.Validation("contribution amount must be positive")
	}

	unlock := cs.locks.Lock(projectID)
	defer unlock()

	project, err := cs.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	now := cs.clock.Now()
	if project.Status != types.ProjectActive {
		return nil, apperr.State("project %d is %s, contributions require an active project", projectID, project.Status)
	}
	if now.Before(project.StartTime) || now.After(project.EndTime) {
		return nil, apperr.State("project %d is outside its funding window", projectID)
	}
	if amount < project.MinContribution || amount > project.MaxContribution {
		return nil, apperr.Validation("amount %d outside bounds [%d, %d]", amount, project.MinContribution, project.MaxContribution)
	}
	activeTotal, err := cs.contribRepo.SumActiveByContributor(ctx, nil, projectID, contributor)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("sum contributions of %s on project %d: %w", contributor, projectID, err))
	}
	if activeTotal+amount > project.MaxContribution {
		return nil, apperr.Validation("contributor %s would exceed the per-contributor cap %d", contributor, project.MaxContribution)
	}

	record := &types.ContributionRecord{
		ProjectID:   projectID,
		Contributor: strings.TrimSpace(contributor),
		Amount:      amount,
		Status:      types.ContributionActive,
		PledgedAt:   now,
	}

	err = cs.db.Transaction(func(tx *gorm.DB) error {
		if _, err := cs.contribRepo.Create(ctx, tx, record); err != nil {
			return err
		}
		project.RaisedAmount += amount
		project.ContributorCount++
		return cs.projectRepo.Save(ctx, tx, project)
	})
	if err != nil {
		cs.log.Error("Failed to record contribution", "project_id", projectID, "contributor", contributor, "error", err)
		return nil, apperr.Internal(fmt.Errorf("record contribution on project %d: %w", projectID, err))
	}

	cs.log.Info("Contribution recorded", "project_id", projectID, "contributor", contributor, "amount", amount, "raised_amount", project.RaisedAmount)
	return record, nil
}

func (cs *contributionService) Cancel(ctx context.Context, projectID int64, contributor string) (int64, error) {
	unlock := cs.locks.Lock(projectID)
	defer unlock()

	project, err := cs.getProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	if project.Status != types.ProjectActive {
		return 0, apperr.State("project %d is %s, cancellations require an active project", projectID, project.Status)
	}

	records, err := cs.contribRepo.ListActiveByContributor(ctx, nil, projectID, contributor)
	if err != nil {
		return 0, apperr.Internal(fmt.Errorf("list contributions of %s on project %d: %w", contributor, projectID, err))
	}

	var refund int64
	ids := make([]uuid.UUID, 0, len(records))
	for _, record := range records {
		refund += record.Amount
		ids = append(ids, record.ID)
	}
	if refund == 0 {
		return 0, apperr.ValidationCode(apperr.CodeNoRefundAmount, "contributor %s has nothing to cancel on project %d", contributor, projectID)
	}

	err = cs.db.Transaction(func(tx *gorm.DB) error {
		if err := cs.contribRepo.MarkCancelled(ctx, tx, ids); err != nil {
			return err
		}
		project.RaisedAmount -= refund
		project.ContributorCount--
		return cs.projectRepo.Save(ctx, tx, project)
	})
	if err != nil {
		cs.log.Error("Failed to cancel contributions", "project_id", projectID, "contributor", contributor, "error", err)
		return 0, apperr.Internal(fmt.Errorf("cancel contributions on project %d: %w", projectID, err))
	}

	cs.log.Info("Contributions cancelled", "project_id", projectID, "contributor", contributor, "refund", refund)
	return refund, nil
}

func (cs *contributionService) Records(ctx context.Context, projectID int64) ([]*types.ContributionRecord, error) {
	if _, err := cs.getProject(ctx, projectID); err != nil {
		return nil, err
	}
	records, err := cs.contribRepo.ListByProject(ctx, nil, projectID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list contributions of project %d: %w", projectID, err))
	}
	return records, nil
}

func (cs *contributionService) FailureRefundDetails(ctx context.Context, projectID int64) ([]RefundDetail, error) {
	unlock := cs.locks.Lock(projectID)
	defer unlock()

	project, err := cs.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != types.ProjectFailed {
		return nil, apperr.State("project %d is %s, refund details require a failed project", projectID, project.Status)
	}

	records, err := cs.contribRepo.ListActiveByProject(ctx, nil, projectID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list active contributions of project %d: %w", projectID, err))
	}

	// Aggregate per contributor: the refund ledger is keyed by
	// (project, contributor) and population overwrites, so a contributor
	// with several records must hand over a single total.
	totals := make(map[string]int64)
	order := make([]string, 0)
	ids := make([]uuid.UUID, 0, len(records))
	for _, record := range records {
		if _, seen := totals[record.Contributor]; !seen {
			order = append(order, record.Contributor)
		}
		totals[record.Contributor] += record.Amount
		ids = append(ids, record.ID)
	}

	err = cs.db.Transaction(func(tx *gorm.DB) error {
		if err := cs.contribRepo.MarkCancelled(ctx, tx, ids); err != nil {
			return err
		}
		project.RaisedAmount = 0
		project.ContributorCount = 0
		return cs.projectRepo.Save(ctx, tx, project)
	})
	if err != nil {
		cs.log.Error("Failed to collect refund details", "project_id", projectID, "error", err)
		return nil, apperr.Internal(fmt.Errorf("collect refund details of project %d: %w", projectID, err))
	}

	details := make([]RefundDetail, 0, len(order))
	for _, contributor := range order {
		details = append(details, RefundDetail{Contributor: contributor, Amount: totals[contributor]})
	}
	cs.log.Info("Refund details collected", "project_id", projectID, "contributors", len(details))
	return details, nil
}

func (cs *contributionService) getProject(ctx context.Context, projectID int64) (*types.Project, error) {
	if projectID <= 0 {
		return nil, apperr.NotFound("project %d not found", projectID)
	}
	project, err := cs.projectRepo.GetByID(ctx, nil, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("project %d not found", projectID)
		}
		return nil, apperr.Internal(fmt.Errorf("get project %d: %w", projectID, err))
	}
	return project, nil
}
