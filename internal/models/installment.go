package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Installment is one scheduled payment within a plan
type Installment struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	PlanID              uint            `gorm:"not null;uniqueIndex:idx_installment_plan_number" json:"plan_id"`
	Number              int             `gorm:"not null;uniqueIndex:idx_installment_plan_number" json:"number"`
	Amount              decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount" swaggertype:"string"`
	PrincipalShare      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"principal_share" swaggertype:"string"`
	InterestShare       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"interest_share" swaggertype:"string"`
	DueDate             time.Time       `gorm:"type:date;not null;index" json:"due_date"`
	Paid                bool            `gorm:"not null;default:false;index" json:"paid"`
	PaymentDate         *time.Time      `gorm:"type:date" json:"payment_date"`
	PaymentMethod       *string         `gorm:"size:50" json:"payment_method"`
	PaymentCode         *string         `gorm:"size:100" json:"payment_code"`
	ReceiptRef          *string         `json:"receipt_ref"`
	PrincipalMovementID *uint           `gorm:"index" json:"principal_movement_id"`
	InterestMovementID  *uint           `gorm:"index" json:"interest_movement_id"`
	Notes               *string         `gorm:"type:text" json:"notes"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`

	// Associations
	Plan *AmortizationPlan `gorm:"foreignKey:PlanID" json:"-"`
}

// TableName specifies the table name for Installment
func (Installment) TableName() string {
	return "installments"
}

// Installment status names used by the state machine
const (
	InstallmentStatusUnpaid = "unpaid"
	InstallmentStatusPaid   = "paid"
)

// Status returns the state machine name of the paid flag
func (i *Installment) Status() string {
	if i.Paid {
		return InstallmentStatusPaid
	}
	return InstallmentStatusUnpaid
}

// MayPay returns true if a payment can be registered
func (i *Installment) MayPay() bool {
	return !i.Paid
}

// MayReverse returns true if the registered payment can be reversed
func (i *Installment) MayReverse() bool {
	return i.Paid
}

// ClearPayment resets every payment field to its unpaid value
func (i *Installment) ClearPayment() {
	i.Paid = false
	i.PaymentDate = nil
	i.PaymentMethod = nil
	i.PaymentCode = nil
	i.ReceiptRef = nil
	i.PrincipalMovementID = nil
	i.InterestMovementID = nil
	i.Notes = nil
}

// InstallmentResponse is the JSON response format for installments
type InstallmentResponse struct {
	ID                  uint            `json:"id"`
	PlanID              uint            `json:"plan_id"`
	Number              int             `json:"number"`
	Amount              decimal.Decimal `json:"amount" swaggertype:"string"`
	PrincipalShare      decimal.Decimal `json:"principal_share" swaggertype:"string"`
	InterestShare       decimal.Decimal `json:"interest_share" swaggertype:"string"`
	DueDate             string          `json:"due_date"`
	Paid                bool            `json:"paid"`
	PaymentDate         *string         `json:"payment_date"`
	PaymentMethod       *string         `json:"payment_method"`
	PaymentCode         *string         `json:"payment_code"`
	ReceiptRef          *string         `json:"receipt_ref"`
	PrincipalMovementID *uint           `json:"principal_movement_id"`
	InterestMovementID  *uint           `json:"interest_movement_id"`
	Notes               *string         `json:"notes"`
}

// ToResponse converts Installment to InstallmentResponse
func (i *Installment) ToResponse() InstallmentResponse {
	return InstallmentResponse{
		ID:                  i.ID,
		PlanID:              i.PlanID,
		Number:              i.Number,
		Amount:              i.Amount,
		PrincipalShare:      i.PrincipalShare,
		InterestShare:       i.InterestShare,
		DueDate:             FormatDate(i.DueDate),
		Paid:                i.Paid,
		PaymentDate:         FormatDatePtr(i.PaymentDate),
		PaymentMethod:       i.PaymentMethod,
		PaymentCode:         i.PaymentCode,
		ReceiptRef:          i.ReceiptRef,
		PrincipalMovementID: i.PrincipalMovementID,
		InterestMovementID:  i.InterestMovementID,
		Notes:               i.Notes,
	}
}
