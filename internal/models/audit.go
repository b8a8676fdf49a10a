package models

import (
	"time"
)

// AuditLog represents a system audit entry
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Action    string    `gorm:"size:50;not null" json:"action"` // CREATE, REGENERATE, CLOSE, REOPEN, ENTER_PRINCIPAL, DELETE, PAY, REVERSE
	Entity    string    `gorm:"size:50;not null" json:"entity"` // AmortizationPlan, Installment
	EntityID  uint      `json:"entity_id"`
	Details   string    `gorm:"type:text" json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// Audit action constants
const (
	AuditActionCreate         = "CREATE"
	AuditActionRegenerate     = "REGENERATE"
	AuditActionClose          = "CLOSE"
	AuditActionReopen         = "REOPEN"
	AuditActionEnterPrincipal = "ENTER_PRINCIPAL"
	AuditActionDelete         = "DELETE"
	AuditActionPay            = "PAY"
	AuditActionReverse        = "REVERSE"
)

// Audit entity names
const (
	AuditEntityPlan        = "AmortizationPlan"
	AuditEntityInstallment = "Installment"
)
