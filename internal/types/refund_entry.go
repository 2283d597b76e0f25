package types

import (
	"time"

	"github.com/google/uuid"
)

// RefundEntry is a pull-payment row keyed by (project, contributor).
// Entries are zeroed on claim but never deleted, so "was owed, now zero"
// stays queryable. ClaimedAt is set when the zeroing payout succeeded.
type RefundEntry struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID     int64      `gorm:"not null;index;uniqueIndex:idx_refund_project_contributor;column:project_id" json:"project_id"`
	Contributor   string     `gorm:"not null;uniqueIndex:idx_refund_project_contributor;column:contributor" json:"contributor"`
	PendingAmount int64      `gorm:"not null;default:0;column:pending_amount" json:"pending_amount"`
	ClaimedAt     *time.Time `gorm:"column:claimed_at" json:"claimed_at,omitempty"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updated_at"`
}

func (RefundEntry) TableName() string { return "refund_entry" }
