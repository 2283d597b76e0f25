package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/openraise/escrow-backend/internal/logger"
	"github.com/openraise/escrow-backend/internal/repos"
	"github.com/openraise/escrow-backend/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	// A second connection would get its own empty :memory: database.
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(
		&types.Project{},
		&types.ContributionRecord{},
		&types.RefundEntry{},
		&types.SettlementRecord{},
		&types.ProjectEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (fc *fakeClock) Now() time.Time {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.now
}

func (fc *fakeClock) Advance(d time.Duration) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.now = fc.now.Add(d)
}

type transferCall struct {
	To     string
	Amount int64
}

// fakeTransfer records payouts and fails on demand, per recipient or
// globally.
type fakeTransfer struct {
	mu      sync.Mutex
	calls   []transferCall
	failFor map[string]bool
	failAll bool
}

func newFakeTransfer() *fakeTransfer {
	return &fakeTransfer{failFor: make(map[string]bool)}
}

func (ft *fakeTransfer) Transfer(ctx context.Context, to string, amount int64) error {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if ft.failAll || ft.failFor[to] {
		return fmt.Errorf("transfer to %s rejected", to)
	}
	ft.calls = append(ft.calls, transferCall{To: to, Amount: amount})
	return nil
}

func (ft *fakeTransfer) Calls() []transferCall {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	out := make([]transferCall, len(ft.calls))
	copy(out, ft.calls)
	return out
}

// testEnv wires every service against one in-memory database.
type testEnv struct {
	db            *gorm.DB
	clock         *fakeClock
	transfer      *fakeTransfer
	locks         *ProjectLocks
	worklist      *MemoryWorklist
	registry      RegistryService
	contributions ContributionService
	settlement    SettlementService
	refunds       RefundService
	automation    AutomationService
	escrow        EscrowService
}

func newTestEnv(t *testing.T, feeRate int64) *testEnv {
	t.Helper()
	gdb := newTestDB(t)
	log := newTestLogger(t)
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	transfer := newFakeTransfer()
	locks := NewProjectLocks()
	worklist := NewMemoryWorklist()

	projectRepo := repos.NewProjectRepo(gdb, log)
	contribRepo := repos.NewContributionRepo(gdb, log)
	refundRepo := repos.NewRefundRepo(gdb, log)
	settlementRepo := repos.NewSettlementRepo(gdb, log)
	eventRepo := repos.NewProjectEventRepo(gdb, log)

	registry := NewRegistryService(gdb, projectRepo, eventRepo, locks, log)
	contributions := NewContributionService(gdb, projectRepo, contribRepo, locks, clock, log)
	settlement, err := NewSettlementService(gdb, projectRepo, settlementRepo, transfer, locks, clock, feeRate, "platform-treasury", log)
	if err != nil {
		t.Fatalf("init settlement service: %v", err)
	}
	refunds := NewRefundService(gdb, refundRepo, transfer, locks, clock, log)
	automation := NewAutomationService(registry, projectRepo, worklist, clock, log)
	escrow := NewEscrowService(registry, contributions, settlement, refunds, transfer, log)

	return &testEnv{
		db:            gdb,
		clock:         clock,
		transfer:      transfer,
		locks:         locks,
		worklist:      worklist,
		registry:      registry,
		contributions: contributions,
		settlement:    settlement,
		refunds:       refunds,
		automation:    automation,
		escrow:        escrow,
	}
}

// createActiveProject creates a project whose window contains the fake
// clock's current time and activates it.
func (env *testEnv) createActiveProject(t *testing.T, target, min, max int64) *types.Project {
	t.Helper()
	now := env.clock.Now()
	project, err := env.registry.CreateProject(context.Background(), CreateProjectParams{
		Owner:           "alice",
		TargetAmount:    target,
		MinContribution: min,
		MaxContribution: max,
		StartTime:       now.Add(-time.Hour),
		EndTime:         now.Add(30 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if err := env.registry.UpdateStatus(context.Background(), project.ID, types.ProjectActive); err != nil {
		t.Fatalf("activate project: %v", err)
	}
	project.Status = types.ProjectActive
	return project
}
