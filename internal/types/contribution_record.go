package types

import (
	"time"

	"github.com/google/uuid"
)

type ContributionStatus string

const (
	ContributionActive    ContributionStatus = "active"
	ContributionCancelled ContributionStatus = "cancelled"
)

// ContributionRecord is one append-only pledge entry. Records are never
// deleted; cancellation and bulk refund population only flip Status.
type ContributionRecord struct {
	ID          uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   int64              `gorm:"not null;index;column:project_id" json:"project_id"`
	Contributor string             `gorm:"not null;index:idx_contribution_project_contributor;column:contributor" json:"contributor"`
	Amount      int64              `gorm:"not null;column:amount" json:"amount"`
	Status      ContributionStatus `gorm:"not null;index;column:status" json:"status"`
	PledgedAt   time.Time          `gorm:"not null;column:pledged_at" json:"pledged_at"`
	CreatedAt   time.Time          `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time          `gorm:"not null" json:"updated_at"`
}

func (ContributionRecord) TableName() string { return "contribution_record" }
