package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InterestRate is a statutory rate valid over a date window
type InterestRate struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Type       string          `gorm:"size:20;not null;index:idx_rate_type_from" json:"type"`
	Percentage decimal.Decimal `gorm:"type:decimal(7,4);not null" json:"percentage" swaggertype:"string"`
	ValidFrom  time.Time       `gorm:"type:date;not null;index:idx_rate_type_from" json:"valid_from"`
	ValidTo    *time.Time      `gorm:"type:date" json:"valid_to"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// TableName specifies the table name for InterestRate
func (InterestRate) TableName() string {
	return "interest_rates"
}

// Rate type constants
const (
	RateTypeLegal    = "legal"
	RateTypeMoratory = "moratory"
)

// IsValidRateType reports whether t names a rate table type
func IsValidRateType(t string) bool {
	return t == RateTypeLegal || t == RateTypeMoratory
}
