package types

import (
	"time"
)

type ProjectStatus string

const (
	ProjectPending ProjectStatus = "pending"
	ProjectActive  ProjectStatus = "active"
	ProjectSuccess ProjectStatus = "success"
	ProjectFailed  ProjectStatus = "failed"
	ProjectFrozen  ProjectStatus = "frozen"
)

// Project is a fundraising campaign. Amounts are in the smallest currency
// unit; RaisedAmount and ContributorCount are aggregates maintained by the
// contribution ledger, everything else is owned by the registry.
type Project struct {
	ID               int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Owner            string        `gorm:"not null;index;column:owner" json:"owner"`
	TargetAmount     int64         `gorm:"not null;column:target_amount" json:"target_amount"`
	MinContribution  int64         `gorm:"not null;column:min_contribution" json:"min_contribution"`
	MaxContribution  int64         `gorm:"not null;column:max_contribution" json:"max_contribution"`
	RaisedAmount     int64         `gorm:"not null;default:0;column:raised_amount" json:"raised_amount"`
	ContributorCount int64         `gorm:"not null;default:0;column:contributor_count" json:"contributor_count"`
	StartTime        time.Time     `gorm:"not null;column:start_time" json:"start_time"`
	EndTime          time.Time     `gorm:"not null;column:end_time" json:"end_time"`
	Settled          bool          `gorm:"not null;default:false;column:settled" json:"settled"`
	Status           ProjectStatus `gorm:"not null;index;column:status" json:"status"`
	CreatedAt        time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"not null" json:"updated_at"`
}

func (Project) TableName() string { return "project" }

// Terminal reports whether no automatic transition can leave the status.
func (s ProjectStatus) Terminal() bool {
	return s == ProjectSuccess || s == ProjectFailed || s == ProjectFrozen
}
