package amortization

import (
	"github.com/shopspring/decimal"

	"github.com/sjperalta/pratiche-api/internal/models"
)

// InterestConfig selects how a plan accrues interest. It is one of
// NoInterest, FixedRate, LegalRate or MoratoryRate.
type InterestConfig interface {
	// InterestType returns the persisted interest type, nil for NoInterest.
	InterestType() *string
}

// NoInterest generates a plan with zero interest shares.
type NoInterest struct{}

// FixedRate applies a caller-supplied annual percentage.
type FixedRate struct {
	Rate decimal.Decimal
}

// LegalRate applies the statutory legal rate in force at the reference date.
type LegalRate struct{}

// MoratoryRate applies the statutory late-payment rate with its optional
// adjustments.
type MoratoryRate struct {
	// Pre2013 lowers the base rate by one point, floored at zero.
	Pre2013 bool
	// Markup, when set, is added to the adjusted rate (2 or 4 points for
	// agricultural and perishable goods).
	Markup *decimal.Decimal
}

func (NoInterest) InterestType() *string { return nil }

func (FixedRate) InterestType() *string { return strPtr(models.InterestTypeFixed) }

func (LegalRate) InterestType() *string { return strPtr(models.InterestTypeLegal) }

func (MoratoryRate) InterestType() *string { return strPtr(models.InterestTypeMoratory) }

// ConfigOf rebuilds the interest configuration persisted on a plan.
func ConfigOf(plan *models.AmortizationPlan) InterestConfig {
	if !plan.ApplyInterest || plan.InterestType == nil {
		return NoInterest{}
	}

	switch *plan.InterestType {
	case models.InterestTypeFixed:
		cfg := FixedRate{}
		if plan.FixedRate != nil {
			cfg.Rate = *plan.FixedRate
		}
		return cfg
	case models.InterestTypeLegal:
		return LegalRate{}
	case models.InterestTypeMoratory:
		cfg := MoratoryRate{Pre2013: plan.MoratoryPre2013}
		if plan.MoratoryMarkup && plan.MoratoryMarkupPct != nil {
			pct := *plan.MoratoryMarkupPct
			cfg.Markup = &pct
		}
		return cfg
	}
	return NoInterest{}
}

// ApplyConfig writes the interest configuration onto the plan's flat columns.
func ApplyConfig(plan *models.AmortizationPlan, cfg InterestConfig) {
	plan.ApplyInterest = false
	plan.InterestType = nil
	plan.FixedRate = nil
	plan.MoratoryPre2013 = false
	plan.MoratoryMarkup = false
	plan.MoratoryMarkupPct = nil

	switch c := cfg.(type) {
	case FixedRate:
		rate := c.Rate
		plan.ApplyInterest = true
		plan.InterestType = c.InterestType()
		plan.FixedRate = &rate
	case LegalRate:
		plan.ApplyInterest = true
		plan.InterestType = c.InterestType()
	case MoratoryRate:
		plan.ApplyInterest = true
		plan.InterestType = c.InterestType()
		plan.MoratoryPre2013 = c.Pre2013
		if c.Markup != nil {
			pct := *c.Markup
			plan.MoratoryMarkup = true
			plan.MoratoryMarkupPct = &pct
		}
	}
}

// AppliesInterest reports whether cfg requires a resolved rate.
func AppliesInterest(cfg InterestConfig) bool {
	_, none := cfg.(NoInterest)
	return cfg != nil && !none
}

func strPtr(s string) *string {
	return &s
}
