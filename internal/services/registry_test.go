package services

import (
	"context"
	"testing"
	"time"

	"github.com/openraise/escrow-backend/internal/apperr"
	"github.com/openraise/escrow-backend/internal/types"
)

func validParams(now time.Time) CreateProjectParams {
	return CreateProjectParams{
		Owner:           "alice",
		TargetAmount:    5000,
		MinContribution: 100,
		MaxContribution: 1000,
		StartTime:       now,
		EndTime:         now.Add(30 * 24 * time.Hour),
	}
}

func TestCreateProjectValidation(t *testing.T) {
	env := newTestEnv(t, 250)
	now := env.clock.Now()

	cases := []struct {
		name   string
		mutate func(*CreateProjectParams)
	}{
		{name: "empty_owner", mutate: func(p *CreateProjectParams) { p.Owner = "  " }},
		{name: "zero_target", mutate: func(p *CreateProjectParams) { p.TargetAmount = 0 }},
		{name: "zero_min", mutate: func(p *CreateProjectParams) { p.MinContribution = 0 }},
		{name: "start_after_end", mutate: func(p *CreateProjectParams) { p.StartTime = p.EndTime.Add(time.Hour) }},
		{name: "start_equals_end", mutate: func(p *CreateProjectParams) { p.StartTime = p.EndTime }},
		{name: "min_above_max", mutate: func(p *CreateProjectParams) { p.MinContribution = 2000 }},
		{name: "max_above_target", mutate: func(p *CreateProjectParams) { p.MaxContribution = 6000 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := validParams(now)
			tc.mutate(&params)
			_, err := env.registry.CreateProject(context.Background(), params)
			if !apperr.IsKind(err, apperr.KindValidation) {
				t.Fatalf("CreateProject(%s) err = %v, want validation error", tc.name, err)
			}
		})
	}
}

func TestCreateProjectAssignsSequentialIDs(t *testing.T) {
	env := newTestEnv(t, 250)
	now := env.clock.Now()

	for want := int64(1); want <= 3; want++ {
		project, err := env.registry.CreateProject(context.Background(), validParams(now))
		if err != nil {
			t.Fatalf("create project %d: %v", want, err)
		}
		if project.ID != want {
			t.Fatalf("project id = %d, want %d", project.ID, want)
		}
		if project.Status != types.ProjectPending {
			t.Fatalf("new project status = %s, want %s", project.Status, types.ProjectPending)
		}
		if project.Settled {
			t.Fatal("new project must not be settled")
		}
	}
}

func TestGetProjectNotFound(t *testing.T) {
	env := newTestEnv(t, 250)

	for _, id := range []int64{0, -1, 42} {
		if _, err := env.registry.GetProject(context.Background(), id); !apperr.IsKind(err, apperr.KindNotFound) {
			t.Fatalf("GetProject(%d) err = %v, want not found", id, err)
		}
	}
}

func TestUpdateStatusIdempotentAndAudited(t *testing.T) {
	env := newTestEnv(t, 250)
	ctx := context.Background()

	project, err := env.registry.CreateProject(ctx, validParams(env.clock.Now()))
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	// Same status: no-op, no extra event.
	if err := env.registry.UpdateStatus(ctx, project.ID, types.ProjectPending); err != nil {
		t.Fatalf("no-op update: %v", err)
	}
	events, err := env.registry.Events(ctx, project.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 || events[0].Kind != types.EventProjectCreated {
		t.Fatalf("events after no-op = %d, want only the creation event", len(events))
	}

	if err := env.registry.UpdateStatus(ctx, project.ID, types.ProjectActive); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, err := env.registry.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got.Status != types.ProjectActive {
		t.Fatalf("status = %s, want %s", got.Status, types.ProjectActive)
	}
	events, err = env.registry.Events(ctx, project.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 || events[1].Kind != types.EventStatusChanged {
		t.Fatalf("expected a status_changed event, got %d events", len(events))
	}
}

func TestFreeze(t *testing.T) {
	env := newTestEnv(t, 250)
	ctx := context.Background()

	project := env.createActiveProject(t, 5000, 100, 1000)
	if err := env.registry.Freeze(ctx, project.ID); err != nil {
		t.Fatalf("freeze: %v", err)
	}
	got, err := env.registry.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got.Status != types.ProjectFrozen {
		t.Fatalf("status = %s, want %s", got.Status, types.ProjectFrozen)
	}

	// Frozen is terminal for the operator path too.
	if err := env.registry.Freeze(ctx, project.ID); !apperr.IsKind(err, apperr.KindState) {
		t.Fatalf("second freeze err = %v, want state error", err)
	}
}

// The freeze precondition and the write share the project lock, so a
// project that resolved in the meantime keeps its terminal status.
func TestFreezeNeverOverwritesTerminalStatus(t *testing.T) {
	env := newTestEnv(t, 250)
	ctx := context.Background()

	for _, terminal := range []types.ProjectStatus{types.ProjectSuccess, types.ProjectFailed} {
		project := env.createActiveProject(t, 5000, 100, 1000)
		if err := env.registry.UpdateStatus(ctx, project.ID, terminal); err != nil {
			t.Fatalf("resolve project: %v", err)
		}
		if err := env.registry.Freeze(ctx, project.ID); !apperr.IsKind(err, apperr.KindState) {
			t.Fatalf("freeze %s project err = %v, want state error", terminal, err)
		}
		got, err := env.registry.GetProject(ctx, project.ID)
		if err != nil {
			t.Fatalf("get project: %v", err)
		}
		if got.Status != terminal {
			t.Fatalf("status = %s, want %s preserved", got.Status, terminal)
		}
	}
}
