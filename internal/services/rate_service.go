package services

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/sjperalta/pratiche-api/internal/amortization"
	"github.com/sjperalta/pratiche-api/internal/models"
	"github.com/sjperalta/pratiche-api/internal/repository"
	apperrors "github.com/sjperalta/pratiche-api/pkg/errors"
)

// RateService exposes the rate table to callers
type RateService struct {
	rates    repository.RateRepository
	resolver *amortization.Resolver
}

func NewRateService(rates repository.RateRepository, resolver *amortization.Resolver) *RateService {
	return &RateService{rates: rates, resolver: resolver}
}

// List returns the rows of a type, or all rows when rateType is empty
func (s *RateService) List(ctx context.Context, rateType string) ([]models.InterestRate, error) {
	if rateType != "" && !models.IsValidRateType(rateType) {
		return nil, apperrors.Validation("unknown rate type %q", rateType)
	}
	return s.rates.List(ctx, rateType)
}

// Resolve returns the table rate of a type applying on a date, flagging an
// expired moratory row used as fallback
func (s *RateService) Resolve(ctx context.Context, rateType string, on civil.Date) (*amortization.Resolution, error) {
	var cfg amortization.InterestConfig
	switch rateType {
	case models.RateTypeLegal:
		cfg = amortization.LegalRate{}
	case models.RateTypeMoratory:
		cfg = amortization.MoratoryRate{}
	default:
		return nil, apperrors.Validation("unknown rate type %q", rateType)
	}

	res, err := s.resolver.Resolve(ctx, cfg, on)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, apperrors.RateResolution("no %s rate applies on %s", rateType, on.String())
	}
	return res, nil
}
