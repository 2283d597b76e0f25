package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	EventProjectCreated = "project_created"
	EventStatusChanged  = "status_changed"
)

// ProjectEvent is an append-only audit trail of registry actions.
type ProjectEvent struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID int64          `gorm:"not null;index;column:project_id" json:"project_id"`
	Kind      string         `gorm:"not null;column:kind" json:"kind"`
	Detail    datatypes.JSON `gorm:"column:detail" json:"detail,omitempty"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
}

func (ProjectEvent) TableName() string { return "project_event" }
