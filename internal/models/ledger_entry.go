package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry represents a financial movement posted for a case
type LedgerEntry struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	CaseID        uint            `json:"case_id" gorm:"not null;index"`
	InstallmentID *uint           `json:"installment_id,omitempty" gorm:"index"`
	Kind          string          `json:"kind" gorm:"size:30;not null;index"` // principal_recovery, interest_recovery, principal_entry
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(15,2);not null" swaggertype:"string"`
	Description   string          `json:"description" gorm:"not null"`
	EntryDate     time.Time       `json:"entry_date" gorm:"type:date;not null"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Ledger entry kind constants
const (
	LedgerKindPrincipalRecovery = "principal_recovery" // principal collected on an installment
	LedgerKindInterestRecovery  = "interest_recovery"  // interest collected on an installment
	LedgerKindPrincipalEntry    = "principal_entry"    // initial principal booked on the case
)

// TableName specifies the table name for GORM
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
