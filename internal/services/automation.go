package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/openraise/escrow-backend/internal/apperr"
	"github.com/openraise/escrow-backend/internal/logger"
	"github.com/openraise/escrow-backend/internal/repos"
	"github.com/openraise/escrow-backend/internal/types"
)

// Worklist is a convenience index of project ids that might need a
// lifecycle check. It is not authoritative; it can always be rebuilt
// from the registry.
type Worklist interface {
	Add(ctx context.Context, projectID int64) error
	Remove(ctx context.Context, projectID int64) error
	Snapshot(ctx context.Context) ([]int64, error)
}

// MemoryWorklist is the in-process Worklist used when no redis is wired.
type MemoryWorklist struct {
	mu  sync.Mutex
	ids map[int64]bool
}

func NewMemoryWorklist() *MemoryWorklist {
	return &MemoryWorklist{ids: make(map[int64]bool)}
}

func (wl *MemoryWorklist) Add(ctx context.Context, projectID int64) error {
	wl.mu.Lock()
	defer wl.mu.Unlock()
	wl.ids[projectID] = true
	return nil
}

func (wl *MemoryWorklist) Remove(ctx context.Context, projectID int64) error {
	wl.mu.Lock()
	defer wl.mu.Unlock()
	delete(wl.ids, projectID)
	return nil
}

func (wl *MemoryWorklist) Snapshot(ctx context.Context) ([]int64, error) {
	wl.mu.Lock()
	defer wl.mu.Unlock()
	out := make([]int64, 0, len(wl.ids))
	for id := range wl.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// AutomationService is the stateless lifecycle policy: it reads a
// project plus the wall clock, computes the next status per the
// registry's state machine, and drives the registry's raw setter.
type AutomationService interface {
	CheckAndAdvance(ctx context.Context, projectID int64) (bool, error)
	// BatchCheck applies CheckAndAdvance per id with per-item isolation:
	// one id's failure is recorded and skipped, never aborts the batch.
	BatchCheck(ctx context.Context, projectIDs []int64) (int, []BatchCheckResult)
	// CheckWorklist runs BatchCheck over the worklist snapshot and
	// drops ids that reached a terminal status.
	CheckWorklist(ctx context.Context) (int, []BatchCheckResult, error)
	WatchProject(ctx context.Context, projectID int64) error
	UnwatchProject(ctx context.Context, projectID int64) error
	// RebuildWorklist repopulates the worklist with every project that
	// could still transition (pending or active).
	RebuildWorklist(ctx context.Context) (int, error)
}

type BatchCheckResult struct {
	ProjectID    int64  `json:"project_id"`
	Transitioned bool   `json:"transitioned"`
	Error        string `json:"error,omitempty"`
}

type automationService struct {
	registry    RegistryService
	projectRepo repos.ProjectRepo
	worklist    Worklist
	clock       Clock
	log         *logger.Logger
}

func NewAutomationService(registry RegistryService, projectRepo repos.ProjectRepo, worklist Worklist, clock Clock, baseLog *logger.Logger) AutomationService {
	serviceLog := baseLog.With("service", "AutomationService")
	return &automationService{registry: registry, projectRepo: projectRepo, worklist: worklist, clock: clock, log: serviceLog}
}

// NextStatus is the one place the state machine rules live:
// Pending -> Active once the window opened; Active -> Success/Failed
// once it closed, depending on whether the target was met. Frozen,
// Success and Failed never advance automatically. One step per call;
// an expired Pending project activates first and resolves on the next
// check.
func NextStatus(project *types.Project, now time.Time) types.ProjectStatus {
	switch project.Status {
	case types.ProjectPending:
		if !now.Before(project.StartTime) {
			return types.ProjectActive
		}
	case types.ProjectActive:
		if now.After(project.EndTime) {
			if project.RaisedAmount >= project.TargetAmount {
				return types.ProjectSuccess
			}
			return types.ProjectFailed
		}
	}
	return project.Status
}

func (as *automationService) CheckAndAdvance(ctx context.Context, projectID int64) (bool, error) {
	// The registry runs the decision under the project lock: reading
	// the aggregates and writing the resulting status must not
	// interleave with a contribute or cancel on the same project.
	var from, to types.ProjectStatus
	transitioned, err := as.registry.AdvanceStatus(ctx, projectID, func(project *types.Project) (types.ProjectStatus, error) {
		from = project.Status
		to = NextStatus(project, as.clock.Now())
		return to, nil
	})
	if err != nil {
		return false, err
	}
	if transitioned {
		as.log.Info("Project advanced", "project_id", projectID, "from", from, "to", to)
	}
	return transitioned, nil
}

func (as *automationService) BatchCheck(ctx context.Context, projectIDs []int64) (int, []BatchCheckResult) {
	results := make([]BatchCheckResult, 0, len(projectIDs))
	updated := 0
	for _, id := range projectIDs {
		transitioned, err := as.CheckAndAdvance(ctx, id)
		result := BatchCheckResult{ProjectID: id, Transitioned: transitioned}
		if err != nil {
			result.Error = err.Error()
			as.log.Warn("Batch check item failed, continuing", "project_id", id, "error", err)
		} else if transitioned {
			updated++
		}
		results = append(results, result)
	}
	return updated, results
}

func (as *automationService) CheckWorklist(ctx context.Context) (int, []BatchCheckResult, error) {
	ids, err := as.worklist.Snapshot(ctx)
	if err != nil {
		return 0, nil, apperr.Internal(fmt.Errorf("snapshot worklist: %w", err))
	}
	updated, results := as.BatchCheck(ctx, ids)

	for _, result := range results {
		if result.Error != "" {
			continue
		}
		project, err := as.registry.GetProject(ctx, result.ProjectID)
		if err != nil {
			continue
		}
		if project.Status.Terminal() {
			if err := as.worklist.Remove(ctx, result.ProjectID); err != nil {
				as.log.Warn("Failed to drop resolved project from worklist", "project_id", result.ProjectID, "error", err)
			}
		}
	}
	return updated, results, nil
}

func (as *automationService) WatchProject(ctx context.Context, projectID int64) error {
	if _, err := as.registry.GetProject(ctx, projectID); err != nil {
		return err
	}
	if err := as.worklist.Add(ctx, projectID); err != nil {
		return apperr.Internal(fmt.Errorf("add project %d to worklist: %w", projectID, err))
	}
	return nil
}

func (as *automationService) UnwatchProject(ctx context.Context, projectID int64) error {
	if err := as.worklist.Remove(ctx, projectID); err != nil {
		return apperr.Internal(fmt.Errorf("remove project %d from worklist: %w", projectID, err))
	}
	return nil
}

func (as *automationService) RebuildWorklist(ctx context.Context) (int, error) {
	ids, err := as.projectRepo.ListIDsByStatus(ctx, nil, []types.ProjectStatus{types.ProjectPending, types.ProjectActive})
	if err != nil {
		return 0, apperr.Internal(fmt.Errorf("list unresolved projects: %w", err))
	}
	added := 0
	for _, id := range ids {
		if err := as.worklist.Add(ctx, id); err != nil {
			as.log.Warn("Failed to add project to worklist during rebuild, continuing", "project_id", id, "error", err)
			continue
		}
		added++
	}
	as.log.Info("Worklist rebuilt", "projects", added)
	return added, nil
}
