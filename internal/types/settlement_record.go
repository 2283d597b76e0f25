package types

import (
	"time"

	"github.com/google/uuid"
)

type RecipientRole string

const (
	RoleCreator  RecipientRole = "creator"
	RolePlatform RecipientRole = "platform"
)

// SettlementRecord is one leg of a fee split. Both legs of a project's
// settlement are written before any transfer is attempted; PaidAt is
// stamped only after the leg's transfer succeeded, so unpaid rows are the
// retry surface for out-of-band payout recovery.
type SettlementRecord struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID     int64         `gorm:"not null;index;column:project_id" json:"project_id"`
	Recipient     string        `gorm:"not null;column:recipient" json:"recipient"`
	RecipientRole RecipientRole `gorm:"not null;column:recipient_role" json:"recipient_role"`
	Amount        int64         `gorm:"not null;column:amount" json:"amount"`
	PaidAt        *time.Time    `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CreatedAt     time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null" json:"updated_at"`
}

func (SettlementRecord) TableName() string { return "settlement_record" }
