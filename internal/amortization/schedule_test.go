package amortization

import (
	"errors"
	"fmt"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjperalta/pratiche-api/internal/models"
	apperrors "github.com/sjperalta/pratiche-api/pkg/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func date(y int, m int, d int) civil.Date {
	return civil.Date{Year: y, Month: timeMonth(m), Day: d}
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestGenerate_NoInterestItalian(t *testing.T) {
	s, err := Generate(Params{
		Principal:        dec("10000"),
		InstallmentCount: 10,
		StartDate:        date(2024, 1, 1),
		Method:           models.MethodItalian,
		Scale:            2,
	})
	require.NoError(t, err)
	require.Len(t, s.Installments, 10)

	for i, d := range s.Installments {
		assert.Equal(t, i+1, d.Number)
		assertDec(t, "1000.00", d.PrincipalShare)
		assertDec(t, "0", d.InterestShare)
		assertDec(t, "1000.00", d.Amount)
		assert.Equal(t, AddMonths(date(2024, 1, 1), i), d.DueDate)
	}
	assertDec(t, "0", s.TotalInterest)
	assertDec(t, "0", s.Installments[9].Residual)
}

func TestGenerate_FixedRateItalian(t *testing.T) {
	start := date(2024, 1, 1)
	s, err := Generate(Params{
		Principal:         dec("12000"),
		InstallmentCount:  12,
		StartDate:         start,
		Method:            models.MethodItalian,
		InterestStartDate: &start,
		Rate:              decPtr("6"),
		RequireRate:       true,
		Scale:             2,
	})
	require.NoError(t, err)

	first := s.Installments[0]
	assert.Equal(t, date(2024, 1, 1), first.DueDate)
	assert.Equal(t, 31, first.Days)
	assertDec(t, "61.15", first.InterestShare)
	assertDec(t, "1000.00", first.PrincipalShare)
	assertDec(t, "1061.15", first.Amount)
	assertDec(t, "11000", first.Residual)

	// Feb 2024 has 29 days
	second := s.Installments[1]
	assert.Equal(t, 29, second.Days)
	assertDec(t, "52.44", second.InterestShare)

	total := decimal.Zero
	for _, d := range s.Installments {
		total = total.Add(d.InterestShare)
	}
	assert.True(t, total.Equal(s.TotalInterest))
}

func TestGenerate_LastInstallmentAbsorbsRemainder(t *testing.T) {
	s, err := Generate(Params{
		Principal:        dec("1000"),
		InstallmentCount: 3,
		StartDate:        date(2024, 5, 10),
		Method:           models.MethodItalian,
		Scale:            2,
	})
	require.NoError(t, err)

	assertDec(t, "333.33", s.Installments[0].PrincipalShare)
	assertDec(t, "333.33", s.Installments[1].PrincipalShare)
	assertDec(t, "333.34", s.Installments[2].PrincipalShare)
}

func TestGenerate_EvenShareRoundsDown(t *testing.T) {
	// 0.15 / 9 = 0.01666..., rounding half-up would give 8 * 0.02 > 0.15
	s, err := Generate(Params{
		Principal:        dec("0.15"),
		InstallmentCount: 9,
		StartDate:        date(2024, 1, 1),
		Method:           models.MethodItalian,
		Scale:            2,
	})
	require.NoError(t, err)

	for _, d := range s.Installments[:8] {
		assertDec(t, "0.01", d.PrincipalShare)
	}
	assertDec(t, "0.07", s.Installments[8].PrincipalShare)
	assertDec(t, "0", s.Installments[8].Residual)
}

func TestValidateTerms_MinimumPrincipal(t *testing.T) {
	assert.NoError(t, ValidateTerms(dec("0.07"), 7, 2))
	assert.True(t, errors.Is(ValidateTerms(dec("0.05"), 7, 2), apperrors.ErrValidation))
	assert.NoError(t, ValidateTerms(dec("7"), 7, 0))
	assert.True(t, errors.Is(ValidateTerms(dec("6.99"), 7, 0), apperrors.ErrValidation))
}

func TestGenerate_FrenchInterestAboveAnnuity(t *testing.T) {
	// a 31-day month at 12% accrues more than the 600-month annuity
	s, err := Generate(Params{
		Principal:        dec("10000"),
		InstallmentCount: 600,
		StartDate:        date(2024, 1, 1),
		Method:           models.MethodFrench,
		Rate:             decPtr("12"),
		RequireRate:      true,
		Scale:            2,
	})
	require.NoError(t, err)

	negative := 0
	principal := decimal.Zero
	for _, d := range s.Installments {
		if d.PrincipalShare.IsNegative() {
			negative++
		}
		principal = principal.Add(d.PrincipalShare)
	}
	assert.Positive(t, negative)
	assert.Equal(t, negative, s.NegativeShares)
	assertDec(t, "10000", principal)

	last := s.Installments[599]
	assert.True(t, last.Amount.GreaterThan(s.Annuity), "last installment %s", last.Amount)
	assertDec(t, "0", last.Residual)
}

func TestGenerate_French(t *testing.T) {
	s, err := Generate(Params{
		Principal:        dec("10000"),
		InstallmentCount: 12,
		StartDate:        date(2024, 1, 1),
		Method:           models.MethodFrench,
		Rate:             decPtr("12"),
		RequireRate:      true,
		Scale:            2,
	})
	require.NoError(t, err)

	assertDec(t, "888.49", s.Annuity)
	principal := decimal.Zero
	for _, d := range s.Installments {
		principal = principal.Add(d.PrincipalShare)
		if d.Number < 12 {
			assertDec(t, "888.49", d.Amount)
		}
		assert.False(t, d.InterestShare.IsNegative())
	}
	assertDec(t, "10000", principal)
	assertDec(t, "0", s.Installments[11].Residual)
	assert.Zero(t, s.NegativeShares)

	// interest shrinks as the residual is repaid
	assert.True(t, s.Installments[10].InterestShare.LessThan(s.Installments[0].InterestShare))
}

func TestGenerate_FrenchZeroRate(t *testing.T) {
	s, err := Generate(Params{
		Principal:        dec("1200"),
		InstallmentCount: 12,
		StartDate:        date(2024, 1, 1),
		Method:           models.MethodFrench,
		Rate:             decPtr("0"),
		Scale:            2,
	})
	require.NoError(t, err)

	assertDec(t, "100", s.Annuity)
	for _, d := range s.Installments {
		assertDec(t, "100", d.Amount)
	}
	assertDec(t, "0", s.TotalInterest)
}

func TestGenerate_InterestStartsLater(t *testing.T) {
	interestStart := date(2024, 3, 15)
	s, err := Generate(Params{
		Principal:         dec("4000"),
		InstallmentCount:  4,
		StartDate:         date(2024, 1, 1),
		Method:            models.MethodItalian,
		InterestStartDate: &interestStart,
		Rate:              decPtr("10"),
		Scale:             2,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, s.Installments[0].Days)
	assert.Equal(t, 0, s.Installments[1].Days)
	assert.Equal(t, 17, s.Installments[2].Days)
	assert.Equal(t, 30, s.Installments[3].Days)

	assertDec(t, "0", s.Installments[0].InterestShare)
	assertDec(t, "9.32", s.Installments[2].InterestShare)
	assertDec(t, "8.22", s.Installments[3].InterestShare)
	assertDec(t, "17.54", s.TotalInterest)
}

func TestGenerate_Validation(t *testing.T) {
	base := Params{
		Principal:        dec("1000"),
		InstallmentCount: 10,
		StartDate:        date(2024, 1, 1),
		Method:           models.MethodItalian,
		Scale:            2,
	}

	tests := []struct {
		name   string
		mutate func(*Params)
		kind   error
	}{
		{name: "zero principal", mutate: func(p *Params) { p.Principal = decimal.Zero }, kind: apperrors.ErrValidation},
		{name: "negative principal", mutate: func(p *Params) { p.Principal = dec("-5") }, kind: apperrors.ErrValidation},
		{name: "zero installments", mutate: func(p *Params) { p.InstallmentCount = 0 }, kind: apperrors.ErrValidation},
		{name: "too many installments", mutate: func(p *Params) { p.InstallmentCount = MaxInstallments + 1 }, kind: apperrors.ErrValidation},
		{name: "principal below one cent per installment", mutate: func(p *Params) { p.Principal = dec("0.09") }, kind: apperrors.ErrValidation},
		{name: "unknown method", mutate: func(p *Params) { p.Method = "german" }, kind: apperrors.ErrValidation},
		{name: "negative rate", mutate: func(p *Params) { p.Rate = decPtr("-1") }, kind: apperrors.ErrValidation},
		{name: "rate required", mutate: func(p *Params) { p.RequireRate = true }, kind: apperrors.ErrRateResolution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			s, err := Generate(p)
			assert.Nil(t, s)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestGenerate_Properties(t *testing.T) {
	principals := []string{"0.05", "0.15", "0.60", "1234.57", "10000", "99999.99"}
	counts := []int{1, 7, 13, 60}
	methods := []string{models.MethodItalian, models.MethodFrench}
	rates := []*decimal.Decimal{nil, decPtr("0"), decPtr("3.5"), decPtr("12.25")}
	start := date(2023, 8, 31)

	for _, principal := range principals {
		for _, n := range counts {
			for _, method := range methods {
				for _, rate := range rates {
					name := fmt.Sprintf("%s_%d_%s_%v", principal, n, method, rate)
					t.Run(name, func(t *testing.T) {
						s, err := Generate(Params{
							Principal:        dec(principal),
							InstallmentCount: n,
							StartDate:        start,
							Method:           method,
							Rate:             rate,
							Scale:            2,
						})
						if dec(principal).LessThan(dec("0.01").Mul(decimal.NewFromInt(int64(n)))) {
							assert.True(t, errors.Is(err, apperrors.ErrValidation), "got %v", err)
							return
						}
						require.NoError(t, err)
						require.Len(t, s.Installments, n)

						sumPrincipal := decimal.Zero
						sumInterest := decimal.Zero
						for i, d := range s.Installments {
							sumPrincipal = sumPrincipal.Add(d.PrincipalShare)
							sumInterest = sumInterest.Add(d.InterestShare)

							assert.Equal(t, AddMonths(start, i), d.DueDate)
							if i > 0 {
								assert.True(t, s.Installments[i-1].DueDate.Before(d.DueDate))
							}
							assert.False(t, d.InterestShare.IsNegative())
							assert.False(t, d.PrincipalShare.IsNegative(), "installment %d principal %s", d.Number, d.PrincipalShare)
							assert.True(t, d.Amount.Equal(d.PrincipalShare.Add(d.InterestShare)))
						}
						assertDec(t, principal, sumPrincipal)
						assert.True(t, sumInterest.Equal(s.TotalInterest))
					})
				}
			}
		}
	}
}
