package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openraise/escrow-backend/internal/logger"
	"github.com/openraise/escrow-backend/internal/types"
	"github.com/openraise/escrow-backend/internal/utils"
)

type DatabaseService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewDatabaseService opens the ledger store. DB_DRIVER selects postgres
// (default) or sqlite; sqlite exists for local runs and tests.
func NewDatabaseService(log *logger.Logger) (*DatabaseService, error) {
	serviceLog := log.With("service", "DatabaseService")

	driver := utils.GetEnv("DB_DRIVER", "postgres", log)
	switch driver {
	case "sqlite":
		path := utils.GetEnv("SQLITE_PATH", "escrow.db", log)
		serviceLog.Info("Connecting to sqlite...", "path", path)
		gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
		if err != nil {
			serviceLog.Error("Failed to connect to sqlite", "error", err)
			return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
		}
		return &DatabaseService{db: gdb, log: serviceLog}, nil
	case "postgres":
		host := utils.GetEnv("POSTGRES_HOST", "localhost", log)
		port := utils.GetEnv("POSTGRES_PORT", "5432", log)
		user := utils.GetEnv("POSTGRES_USER", "postgres", log)
		password := utils.GetEnv("POSTGRES_PASSWORD", "", log)
		name := utils.GetEnv("POSTGRES_NAME", "escrow", log)

		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

		serviceLog.Info("Connecting to Postgres...")
		gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
		})
		if err != nil {
			serviceLog.Error("Failed to connect to Postgres", "error", err)
			return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		return &DatabaseService{db: gdb, log: serviceLog}, nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", driver)
	}
}

func (s *DatabaseService) DB() *gorm.DB { return s.db }

func (s *DatabaseService) AutoMigrateAll() error {
	s.log.Info("Auto migrating ledger tables...")
	err := s.db.AutoMigrate(
		&types.Project{},
		&types.ContributionRecord{},
		&types.RefundEntry{},
		&types.SettlementRecord{},
		&types.ProjectEvent{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for ledger tables", "error", err)
		return err
	}
	return nil
}
