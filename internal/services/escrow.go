package services

import (
	"context"
	"fmt"

	"github.com/openraise/escrow-backend/internal/apperr"
	"github.com/openraise/escrow-backend/internal/logger"
	"github.com/openraise/escrow-backend/internal/types"
)

// EscrowService is the coordinating façade over the registry, the two
// ledgers and the settlement engine. The modules only ever talk to each
// other through it.
type EscrowService interface {
	// CancelContribution runs the ledger cancellation and then pays the
	// contributor back. The ledger mutation is committed before the
	// transfer; a transfer failure is returned as a TransferError with
	// the cancellation kept (retrying the payout is out-of-band).
	CancelContribution(ctx context.Context, projectID int64, contributor string) (int64, error)
	// FinalizeProject closes out a resolved project: settlement of the
	// raise for a successful one, refund-ledger population for a failed
	// one. StateError for any other status.
	FinalizeProject(ctx context.Context, projectID int64) (*FinalizeResult, error)
}

type FinalizeResult struct {
	ProjectID         int64                     `json:"project_id"`
	Status            types.ProjectStatus       `json:"status"`
	SettlementRecords []*types.SettlementRecord `json:"settlement_records,omitempty"`
	RefundsPopulated  int                       `json:"refunds_populated,omitempty"`
	// RefundsSkipped surfaces pairs the refund ledger could not store.
	// The hand-off from the contribution ledger is one-shot, so these
	// entitlements exist nowhere else and need operator follow-up.
	RefundsSkipped []SkippedRefund `json:"refunds_skipped,omitempty"`
}

type escrowService struct {
	registry      RegistryService
	contributions ContributionService
	settlement    SettlementService
	refunds       RefundService
	transfer      ValueTransfer
	log           *logger.Logger
}

func NewEscrowService(registry RegistryService, contributions ContributionService, settlement SettlementService, refunds RefundService, transfer ValueTransfer, baseLog *logger.Logger) EscrowService {
	serviceLog := baseLog.With("service", "EscrowService")
	return &escrowService{
		registry:      registry,
		contributions: contributions,
		settlement:    settlement,
		refunds:       refunds,
		transfer:      transfer,
		log:           serviceLog,
	}
}

func (es *escrowService) CancelContribution(ctx context.Context, projectID int64, contributor string) (int64, error) {
	refund, err := es.contributions.Cancel(ctx, projectID, contributor)
	if err != nil {
		return 0, err
	}
	if err := es.transfer.Transfer(ctx, contributor, refund); err != nil {
		es.log.Error("Cancellation payout failed, ledger cancellation kept", "project_id", projectID, "contributor", contributor, "amount", refund, "error", err)
		return refund, apperr.Transfer(fmt.Errorf("pay back %s on project %d: %w", contributor, projectID, err))
	}
	return refund, nil
}

func (es *escrowService) FinalizeProject(ctx context.Context, projectID int64) (*FinalizeResult, error) {
	project, err := es.registry.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	switch project.Status {
	case types.ProjectSuccess:
		records, err := es.settlement.Settle(ctx, projectID, project.RaisedAmount, project.Owner)
		if err != nil {
			return nil, err
		}
		return &FinalizeResult{ProjectID: projectID, Status: project.Status, SettlementRecords: records}, nil

	case types.ProjectFailed:
		details, err := es.contributions.FailureRefundDetails(ctx, projectID)
		if err != nil {
			return nil, err
		}
		if len(details) == 0 {
			return &FinalizeResult{ProjectID: projectID, Status: project.Status}, nil
		}
		result, err := es.refunds.SetBatchRefunds(ctx, projectID, details)
		if err != nil {
			return nil, err
		}
		if len(result.Skipped) > 0 {
			es.log.Error("Refund population skipped entries during finalize", "project_id", projectID, "skipped", len(result.Skipped))
		}
		return &FinalizeResult{
			ProjectID:        projectID,
			Status:           project.Status,
			RefundsPopulated: result.Applied,
			RefundsSkipped:   result.Skipped,
		}, nil

	default:
		return nil, apperr.State("project %d is %s, only success or failed projects can be finalized", projectID, project.Status)
	}
}
