package amortization

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/sjperalta/pratiche-api/internal/models"
	apperrors "github.com/sjperalta/pratiche-api/pkg/errors"
)

// MaxInstallments bounds the schedule length (50 years of monthly payments).
const MaxInstallments = 600

var (
	hundred    = decimal.NewFromInt(100)
	twelve     = decimal.NewFromInt(12)
	civilYear  = decimal.NewFromInt(36500)
	decimalOne = decimal.NewFromInt(1)
)

// Params are the inputs of schedule generation
type Params struct {
	Principal         decimal.Decimal
	InstallmentCount  int
	StartDate         civil.Date
	Method            string
	InterestStartDate *civil.Date
	// Rate is the effective annual rate in percent, nil for no interest.
	Rate *decimal.Decimal
	// RequireRate rejects a nil Rate instead of producing an interest-free plan.
	RequireRate bool
	// Scale is the number of decimal places money is rounded to.
	Scale int32
}

// Draft is one generated installment before persistence
type Draft struct {
	Number         int
	DueDate        civil.Date
	AccrualFrom    civil.Date
	AccrualTo      civil.Date
	Days           int
	PrincipalShare decimal.Decimal
	InterestShare  decimal.Decimal
	Amount         decimal.Decimal
	// Residual is the principal still owed after this installment.
	Residual decimal.Decimal
}

// Schedule is the ordered result of a generation
type Schedule struct {
	Installments  []Draft
	TotalInterest decimal.Decimal
	// Annuity is the constant installment of the French method, zero otherwise.
	Annuity decimal.Decimal
	// NegativeShares counts installments whose interest exceeds the annuity,
	// leaving a negative principal share that the last installment repays.
	NegativeShares int
}

// Generate produces the installment schedule.
//
// Installment i is due on startDate + (i-1) months and pays the interest
// accrued over the month ending on startDate + i months; the first accrual
// period starts at the interest start date when one is given. Interest is
// simple, actual days over a 365-day year:
//
//	interest = residual * rate * days / 36500
//
// Shares are rounded to Scale places and the last installment takes whatever
// principal is left, so the principal shares always sum to the principal.
// Even shares are rounded down so that remainder is never negative.
func Generate(p Params) (*Schedule, error) {
	if err := ValidateTerms(p.Principal, p.InstallmentCount, p.Scale); err != nil {
		return nil, err
	}
	if p.Method != models.MethodItalian && p.Method != models.MethodFrench {
		return nil, apperrors.Validation("unknown amortization method %q", p.Method)
	}
	if p.Rate == nil && p.RequireRate {
		return nil, apperrors.RateResolution("an effective interest rate is required to generate this plan")
	}
	if p.Rate != nil && p.Rate.IsNegative() {
		return nil, apperrors.Validation("interest rate must not be negative")
	}

	n := p.InstallmentCount
	schedule := &Schedule{
		Installments:  make([]Draft, 0, n),
		TotalInterest: decimal.Zero,
		Annuity:       decimal.Zero,
	}

	evenShare := p.Principal.Div(decimal.NewFromInt(int64(n))).RoundFloor(p.Scale)
	french := p.Method == models.MethodFrench && p.Rate != nil
	if french {
		schedule.Annuity = annuity(p.Principal, *p.Rate, n, p.Scale)
	}

	residual := p.Principal
	accrualFrom := ReferenceDate(p.StartDate, p.InterestStartDate)

	for i := 1; i <= n; i++ {
		d := Draft{
			Number:        i,
			DueDate:       AddMonths(p.StartDate, i-1),
			AccrualFrom:   accrualFrom,
			AccrualTo:     AddMonths(p.StartDate, i),
			InterestShare: decimal.Zero,
		}

		if p.Rate != nil {
			d.Days = DayCount(d.AccrualFrom, d.AccrualTo)
			d.InterestShare = accrue(residual, *p.Rate, d.Days, p.Scale)
			if d.AccrualTo.After(accrualFrom) {
				accrualFrom = d.AccrualTo
			}
		}

		switch {
		case i == n:
			d.PrincipalShare = residual
		case french:
			d.PrincipalShare = schedule.Annuity.Sub(d.InterestShare)
		default:
			d.PrincipalShare = evenShare
		}

		if d.PrincipalShare.IsNegative() {
			schedule.NegativeShares++
		}

		d.Amount = d.PrincipalShare.Add(d.InterestShare)
		residual = residual.Sub(d.PrincipalShare)
		d.Residual = residual

		schedule.TotalInterest = schedule.TotalInterest.Add(d.InterestShare)
		schedule.Installments = append(schedule.Installments, d)
	}

	return schedule, nil
}

// ValidateTerms checks the principal and installment count of a plan. The
// principal must cover at least one minimal unit of money per installment.
func ValidateTerms(principal decimal.Decimal, installmentCount int, scale int32) error {
	if !principal.IsPositive() {
		return apperrors.Validation("principal must be greater than zero")
	}
	if installmentCount < 1 {
		return apperrors.Validation("installment count must be at least 1")
	}
	if installmentCount > MaxInstallments {
		return apperrors.Validation("installment count must not exceed %d", MaxInstallments)
	}
	minimum := decimal.New(1, -scale).Mul(decimal.NewFromInt(int64(installmentCount)))
	if principal.LessThan(minimum) {
		return apperrors.Validation("principal %s is too small for %d installments (minimum %s)",
			principal.String(), installmentCount, minimum.String())
	}
	return nil
}

// accrue computes simple interest on residual for the given days.
func accrue(residual, rate decimal.Decimal, days int, scale int32) decimal.Decimal {
	if days == 0 || rate.IsZero() {
		return decimal.Zero
	}
	return residual.Mul(rate).Mul(decimal.NewFromInt(int64(days))).Div(civilYear).Round(scale)
}

// annuity is the constant French installment
//
//	A = P * m * (1+m)^n / ((1+m)^n - 1),  m = rate / 100 / 12
//
// falling back to P / n, rounded down, for a zero rate.
func annuity(principal, rate decimal.Decimal, n int, scale int32) decimal.Decimal {
	m := rate.Div(hundred).Div(twelve)
	if m.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(n))).RoundFloor(scale)
	}
	factor := decimalOne.Add(m).Pow(decimal.NewFromInt(int64(n)))
	return principal.Mul(m).Mul(factor).Div(factor.Sub(decimalOne)).Round(scale)
}
