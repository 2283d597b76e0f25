package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/openraise/escrow-backend/internal/apperr"
	"github.com/openraise/escrow-backend/internal/logger"
	"github.com/openraise/escrow-backend/internal/repos"
	"github.com/openraise/escrow-backend/internal/types"
)

// RegistryService owns project records and their lifecycle status. It is
// the single writer of everything on types.Project except the two
// aggregates maintained by the contribution ledger.
type RegistryService interface {
	CreateProject(ctx context.Context, params CreateProjectParams) (*types.Project, error)
	GetProject(ctx context.Context, projectID int64) (*types.Project, error)
	// UpdateStatus is a raw setter: it does not validate transition
	// legality (that policy lives in the automation scheduler) and is a
	// no-op when the status already matches.
	UpdateStatus(ctx context.Context, projectID int64, status types.ProjectStatus) error
	// AdvanceStatus fetches the project, lets decide pick the next
	// status, and applies it, all under the project lock. Status
	// decisions that depend on current project state must go through
	// here so they cannot act on a row another operation changed in
	// between. Returns whether a transition happened.
	AdvanceStatus(ctx context.Context, projectID int64, decide func(*types.Project) (types.ProjectStatus, error)) (bool, error)
	// Freeze is the manual operator override, Active -> Frozen.
	Freeze(ctx context.Context, projectID int64) error
	Events(ctx context.Context, projectID int64) ([]*types.ProjectEvent, error)
}

type CreateProjectParams struct {
	Owner           string    `json:"owner"`
	TargetAmount    int64     `json:"target_amount"`
	MinContribution int64     `json:"min_contribution"`
	MaxContribution int64     `json:"max_contribution"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
}

type registryService struct {
	db          *gorm.DB
	projectRepo repos.ProjectRepo
	eventRepo   repos.ProjectEventRepo
	locks       *ProjectLocks
	log         *logger.Logger
}

func NewRegistryService(db *gorm.DB, projectRepo repos.ProjectRepo, eventRepo repos.ProjectEventRepo, locks *ProjectLocks, baseLog *logger.Logger) RegistryService {
	serviceLog := baseLog.With("service", "RegistryService")
	return &registryService{db: db, projectRepo: projectRepo, eventRepo: eventRepo, locks: locks, log: serviceLog}
}

func (rs *registryService) CreateProject(ctx context.Context, params CreateProjectParams) (*types.Project, error) {
	if strings.TrimSpace(params.Owner) == "" {
		return nil, apperr.Validation("owner must not be empty")
	}
	if params.TargetAmount <= 0 {
		return nil, apperr.Validation("target amount must be positive")
	}
	if params.MinContribution <= 0 {
		return nil, apperr.Validation("minimum contribution must be positive")
	}
	if !params.StartTime.Before(params.EndTime) {
		return nil, apperr.Validation("start time %s must be before end time %s", params.StartTime, params.EndTime)
	}
	if params.MinContribution > params.MaxContribution {
		return nil, apperr.Validation("minimum contribution %d exceeds maximum %d", params.MinContribution, params.MaxContribution)
	}
	if params.MaxContribution > params.TargetAmount {
		return nil, apperr.Validation("maximum contribution %d exceeds target %d", params.MaxContribution, params.TargetAmount)
	}

	project := &types.Project{
		Owner:           strings.TrimSpace(params.Owner),
		TargetAmount:    params.TargetAmount,
		MinContribution: params.MinContribution,
		MaxContribution: params.MaxContribution,
		StartTime:       params.StartTime,
		EndTime:         params.EndTime,
		Status:          types.ProjectPending,
		Settled:         false,
	}

	err := rs.db.Transaction(func(tx *gorm.DB) error {
		if _, err := rs.projectRepo.Create(ctx, tx, project); err != nil {
			return err
		}
		detail := datatypes.JSON(fmt.Sprintf(`{"owner":%q,"target_amount":%d}`, project.Owner, project.TargetAmount))
		_, err := rs.eventRepo.Create(ctx, tx, &types.ProjectEvent{
			ProjectID: project.ID,
			Kind:      types.EventProjectCreated,
			Detail:    detail,
		})
		return err
	})
	if err != nil {
		rs.log.Error("Failed to create project", "owner", project.Owner, "error", err)
		return nil, apperr.Internal(fmt.Errorf("create project: %w", err))
	}

	rs.log.Info("Project created", "project_id", project.ID, "owner", project.Owner, "target_amount", project.TargetAmount)
	return project, nil
}

func (rs *registryService) GetProject(ctx context.Context, projectID int64) (*types.Project, error) {
	if projectID <= 0 {
		return nil, apperr.NotFound("project %d not found", projectID)
	}
	project, err := rs.projectRepo.GetByID(ctx, nil, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("project %d not found", projectID)
		}
		return nil, apperr.Internal(fmt.Errorf("get project %d: %w", projectID, err))
	}
	return project, nil
}

func (rs *registryService) UpdateStatus(ctx context.Context, projectID int64, status types.ProjectStatus) error {
	unlock := rs.locks.Lock(projectID)
	defer unlock()

	project, err := rs.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project.Status == status {
		return nil
	}
	return rs.setStatus(ctx, project, status)
}

func (rs *registryService) AdvanceStatus(ctx context.Context, projectID int64, decide func(*types.Project) (types.ProjectStatus, error)) (bool, error) {
	unlock := rs.locks.Lock(projectID)
	defer unlock()

	project, err := rs.GetProject(ctx, projectID)
	if err != nil {
		return false, err
	}
	next, err := decide(project)
	if err != nil {
		return false, err
	}
	if next == project.Status {
		return false, nil
	}
	if err := rs.setStatus(ctx, project, next); err != nil {
		return false, err
	}
	return true, nil
}

// setStatus persists the transition and its audit event. The caller
// holds the project lock.
func (rs *registryService) setStatus(ctx context.Context, project *types.Project, status types.ProjectStatus) error {
	err := rs.db.Transaction(func(tx *gorm.DB) error {
		if err := rs.projectRepo.UpdateStatus(ctx, tx, project.ID, status); err != nil {
			return err
		}
		detail := datatypes.JSON(fmt.Sprintf(`{"from":%q,"to":%q}`, project.Status, status))
		_, err := rs.eventRepo.Create(ctx, tx, &types.ProjectEvent{
			ProjectID: project.ID,
			Kind:      types.EventStatusChanged,
			Detail:    detail,
		})
		return err
	})
	if err != nil {
		rs.log.Error("Failed to update project status", "project_id", project.ID, "status", status, "error", err)
		return apperr.Internal(fmt.Errorf("update status of project %d: %w", project.ID, err))
	}

	rs.log.Info("Project status changed", "project_id", project.ID, "from", project.Status, "to", status)
	return nil
}

func (rs *registryService) Freeze(ctx context.Context, projectID int64) error {
	_, err := rs.AdvanceStatus(ctx, projectID, func(project *types.Project) (types.ProjectStatus, error) {
		if project.Status != types.ProjectActive {
			return project.Status, apperr.State("project %d cannot be frozen from status %s", projectID, project.Status)
		}
		return types.ProjectFrozen, nil
	})
	return err
}

func (rs *registryService) Events(ctx context.Context, projectID int64) ([]*types.ProjectEvent, error) {
	if _, err := rs.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	events, err := rs.eventRepo.ListByProject(ctx, nil, projectID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list events of project %d: %w", projectID, err))
	}
	return events, nil
}
