package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AmortizationPlan is the repayment schedule of a case's recognized debt
type AmortizationPlan struct {
	ID                 uint             `gorm:"primaryKey" json:"id"`
	CaseID             uint             `gorm:"not null;uniqueIndex" json:"case_id"`
	InitialPrincipal   decimal.Decimal  `gorm:"type:decimal(15,2);not null" json:"initial_principal" swaggertype:"string"`
	InstallmentCount   int              `gorm:"not null" json:"installment_count"`
	StartDate          time.Time        `gorm:"type:date;not null" json:"start_date"`
	Status             string           `gorm:"size:20;default:active;not null;index" json:"status"`
	ClosureDate        *time.Time       `gorm:"type:date" json:"closure_date"`
	RecoveredAmount    *decimal.Decimal `gorm:"type:decimal(15,2)" json:"recovered_amount" swaggertype:"string"`
	PrincipalEntered   bool             `gorm:"not null;default:false" json:"principal_entered"`
	ApplyInterest      bool             `gorm:"not null;default:false" json:"apply_interest"`
	InterestType       *string          `gorm:"size:20" json:"interest_type"`
	FixedRate          *decimal.Decimal `gorm:"type:decimal(7,4)" json:"fixed_rate" swaggertype:"string"`
	AmortizationMethod string           `gorm:"size:20;not null;default:italian" json:"amortization_method"`
	Capitalization     string           `gorm:"size:20;not null;default:none" json:"capitalization"`
	InterestStartDate  *time.Time       `gorm:"type:date" json:"interest_start_date"`
	MoratoryPre2013    bool             `gorm:"not null;default:false" json:"moratory_pre_2013"`
	MoratoryMarkup     bool             `gorm:"not null;default:false" json:"moratory_markup"`
	MoratoryMarkupPct  *decimal.Decimal `gorm:"type:decimal(5,2)" json:"moratory_markup_pct" swaggertype:"string"`
	ApplyArt1194       bool             `gorm:"not null;default:false" json:"apply_art_1194"`
	TotalInterest      decimal.Decimal  `gorm:"type:decimal(15,2);not null;default:0" json:"total_interest" swaggertype:"string"`
	Notes              *string          `gorm:"type:text" json:"notes"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`

	// Associations
	Installments []Installment `gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE" json:"installments,omitempty"`
}

// TableName specifies the table name for AmortizationPlan
func (AmortizationPlan) TableName() string {
	return "amortization_plans"
}

// Plan status constants
const (
	PlanStatusActive         = "active"
	PlanStatusClosedPositive = "closed_positive"
	PlanStatusClosedNegative = "closed_negative"
	PlanStatusSuspended      = "suspended"
)

// Interest type constants
const (
	InterestTypeLegal    = "legal"
	InterestTypeMoratory = "moratory"
	InterestTypeFixed    = "fixed"
)

// Amortization method constants
const (
	MethodItalian = "italian"
	MethodFrench  = "french"
)

// Capitalization constants
const (
	CapitalizationNone       = "none"
	CapitalizationQuarterly  = "quarterly"
	CapitalizationSemiannual = "semiannual"
	CapitalizationAnnual     = "annual"
)

// MayClose returns true if the plan can be closed
func (p *AmortizationPlan) MayClose() bool {
	return p.Status == PlanStatusActive
}

// MayReopen returns true if the plan can be reopened
func (p *AmortizationPlan) MayReopen() bool {
	return p.Status == PlanStatusClosedPositive || p.Status == PlanStatusClosedNegative
}

// IsClosed returns true for either closed outcome
func (p *AmortizationPlan) IsClosed() bool {
	return p.MayReopen()
}

// PlanSummary aggregates installment payment progress
type PlanSummary struct {
	PaidCount          int             `json:"paid_count"`
	UnpaidCount        int             `json:"unpaid_count"`
	PrincipalRecovered decimal.Decimal `json:"principal_recovered" swaggertype:"string"`
	InterestRecovered  decimal.Decimal `json:"interest_recovered" swaggertype:"string"`
	ResidualPrincipal  decimal.Decimal `json:"residual_principal" swaggertype:"string"`
}

// Summary computes payment progress from the loaded installments
func (p *AmortizationPlan) Summary() PlanSummary {
	s := PlanSummary{
		PrincipalRecovered: decimal.Zero,
		InterestRecovered:  decimal.Zero,
		ResidualPrincipal:  decimal.Zero,
	}
	for _, inst := range p.Installments {
		if inst.Paid {
			s.PaidCount++
			s.PrincipalRecovered = s.PrincipalRecovered.Add(inst.PrincipalShare)
			s.InterestRecovered = s.InterestRecovered.Add(inst.InterestShare)
			continue
		}
		s.UnpaidCount++
		s.ResidualPrincipal = s.ResidualPrincipal.Add(inst.PrincipalShare)
	}
	return s
}

// AmortizationPlanResponse is the JSON response format for plans
type AmortizationPlanResponse struct {
	ID                 uint                  `json:"id"`
	CaseID             uint                  `json:"case_id"`
	InitialPrincipal   decimal.Decimal       `json:"initial_principal" swaggertype:"string"`
	InstallmentCount   int                   `json:"installment_count"`
	StartDate          string                `json:"start_date"`
	Status             string                `json:"status"`
	ClosureDate        *string               `json:"closure_date"`
	RecoveredAmount    *decimal.Decimal      `json:"recovered_amount" swaggertype:"string"`
	PrincipalEntered   bool                  `json:"principal_entered"`
	ApplyInterest      bool                  `json:"apply_interest"`
	InterestType       *string               `json:"interest_type"`
	FixedRate          *decimal.Decimal      `json:"fixed_rate" swaggertype:"string"`
	AmortizationMethod string                `json:"amortization_method"`
	Capitalization     string                `json:"capitalization"`
	InterestStartDate  *string               `json:"interest_start_date"`
	MoratoryPre2013    bool                  `json:"moratory_pre_2013"`
	MoratoryMarkup     bool                  `json:"moratory_markup"`
	MoratoryMarkupPct  *decimal.Decimal      `json:"moratory_markup_pct" swaggertype:"string"`
	ApplyArt1194       bool                  `json:"apply_art_1194"`
	TotalInterest      decimal.Decimal       `json:"total_interest" swaggertype:"string"`
	Notes              *string               `json:"notes"`
	Installments       []InstallmentResponse `json:"installments"`
	Summary            PlanSummary           `json:"summary"`
}

// ToResponse converts AmortizationPlan to AmortizationPlanResponse
func (p *AmortizationPlan) ToResponse() AmortizationPlanResponse {
	resp := AmortizationPlanResponse{
		ID:                 p.ID,
		CaseID:             p.CaseID,
		InitialPrincipal:   p.InitialPrincipal,
		InstallmentCount:   p.InstallmentCount,
		StartDate:          FormatDate(p.StartDate),
		Status:             p.Status,
		ClosureDate:        FormatDatePtr(p.ClosureDate),
		RecoveredAmount:    p.RecoveredAmount,
		PrincipalEntered:   p.PrincipalEntered,
		ApplyInterest:      p.ApplyInterest,
		InterestType:       p.InterestType,
		FixedRate:          p.FixedRate,
		AmortizationMethod: p.AmortizationMethod,
		Capitalization:     p.Capitalization,
		InterestStartDate:  FormatDatePtr(p.InterestStartDate),
		MoratoryPre2013:    p.MoratoryPre2013,
		MoratoryMarkup:     p.MoratoryMarkup,
		MoratoryMarkupPct:  p.MoratoryMarkupPct,
		ApplyArt1194:       p.ApplyArt1194,
		TotalInterest:      p.TotalInterest,
		Notes:              p.Notes,
		Installments:       make([]InstallmentResponse, 0, len(p.Installments)),
		Summary:            p.Summary(),
	}
	for i := range p.Installments {
		resp.Installments = append(resp.Installments, p.Installments[i].ToResponse())
	}
	return resp
}
