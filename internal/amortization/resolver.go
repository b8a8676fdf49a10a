package amortization

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/sjperalta/pratiche-api/internal/models"
)

// RateTable answers which rate rows of a type could apply at a reference date.
type RateTable interface {
	FindCandidates(ctx context.Context, rateType string, ref civil.Date) ([]models.InterestRate, error)
}

// Resolution is an effective annual rate in percent and where it came from.
type Resolution struct {
	Rate decimal.Decimal
	// Base is the table rate before moratory adjustments.
	Base decimal.Decimal
	// Source is the rate row used, nil for fixed rates.
	Source *models.InterestRate
	// Fallback is set when the moratory rate came from an expired row.
	Fallback bool
}

// Resolver turns an interest configuration into an effective rate.
type Resolver struct {
	rates RateTable
}

// NewResolver creates a resolver reading from the given rate table
func NewResolver(rates RateTable) *Resolver {
	return &Resolver{rates: rates}
}

// Resolve returns the effective rate for cfg at ref, or nil when no usable
// rate exists. Repeated calls over the same table contents return the same
// result.
func (r *Resolver) Resolve(ctx context.Context, cfg InterestConfig, ref civil.Date) (*Resolution, error) {
	switch c := cfg.(type) {
	case nil, NoInterest:
		return nil, nil
	case FixedRate:
		if !c.Rate.IsPositive() {
			return nil, nil
		}
		return &Resolution{Rate: c.Rate, Base: c.Rate}, nil
	case LegalRate:
		return r.fromTable(ctx, models.RateTypeLegal, ref, false)
	case MoratoryRate:
		res, err := r.fromTable(ctx, models.RateTypeMoratory, ref, true)
		if err != nil || res == nil {
			return res, err
		}
		res.Rate = AdjustMoratory(res.Base, c.Pre2013, c.Markup)
		return res, nil
	default:
		return nil, fmt.Errorf("unsupported interest config %T", cfg)
	}
}

func (r *Resolver) fromTable(ctx context.Context, rateType string, ref civil.Date, allowFallback bool) (*Resolution, error) {
	candidates, err := r.rates.FindCandidates(ctx, rateType, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s rates: %w", rateType, err)
	}

	if row := SelectRate(candidates, ref, true); row != nil {
		return &Resolution{Rate: row.Percentage, Base: row.Percentage, Source: row}, nil
	}
	if !allowFallback {
		return nil, nil
	}
	if row := SelectRate(candidates, ref, false); row != nil {
		return &Resolution{Rate: row.Percentage, Base: row.Percentage, Source: row, Fallback: true}, nil
	}
	return nil, nil
}

// SelectRate picks the row with the latest validFrom not after ref. With
// requireWindow set, rows whose validTo is before ref are skipped. Ties on
// validFrom go to the lowest id so the choice does not depend on row order.
func SelectRate(candidates []models.InterestRate, ref civil.Date, requireWindow bool) *models.InterestRate {
	var best *models.InterestRate
	var bestFrom civil.Date

	for i := range candidates {
		row := &candidates[i]
		from := civil.DateOf(row.ValidFrom)
		if from.After(ref) {
			continue
		}
		if requireWindow && row.ValidTo != nil && civil.DateOf(*row.ValidTo).Before(ref) {
			continue
		}
		if best == nil || from.After(bestFrom) || (from == bestFrom && row.ID < best.ID) {
			best, bestFrom = row, from
		}
	}
	return best
}

// AdjustMoratory applies the pre-2013 reduction and the optional markup to a
// base moratory rate. The markup is not range checked here.
func AdjustMoratory(base decimal.Decimal, pre2013 bool, markup *decimal.Decimal) decimal.Decimal {
	rate := base
	if pre2013 {
		rate = decimal.Max(rate.Sub(decimal.NewFromInt(1)), decimal.Zero)
	}
	if markup != nil {
		rate = rate.Add(*markup)
	}
	return rate
}
