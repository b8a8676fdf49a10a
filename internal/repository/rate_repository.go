package repository

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"gorm.io/gorm"

	"github.com/sjperalta/pratiche-api/internal/models"
)

// RateRepository defines the interface for the interest rate table
type RateRepository interface {
	// FindCandidates returns the rows of rateType that took effect on or
	// before ref, whether or not they have since expired.
	FindCandidates(ctx context.Context, rateType string, ref civil.Date) ([]models.InterestRate, error)
	List(ctx context.Context, rateType string) ([]models.InterestRate, error)
}

type rateRepository struct {
	db *gorm.DB
}

// NewRateRepository creates a new rate repository
func NewRateRepository(db *gorm.DB) RateRepository {
	return &rateRepository{db: db}
}

func (r *rateRepository) FindCandidates(ctx context.Context, rateType string, ref civil.Date) ([]models.InterestRate, error) {
	var rates []models.InterestRate
	err := dbFrom(ctx, r.db).
		Where("type = ? AND valid_from <= ?", rateType, ref.In(time.UTC)).
		Order("valid_from DESC, id ASC").
		Find(&rates).Error
	if err != nil {
		return nil, translate(err, "interest rate", rateType)
	}
	return rates, nil
}

// List returns every row of rateType, or of all types when rateType is empty
func (r *rateRepository) List(ctx context.Context, rateType string) ([]models.InterestRate, error) {
	var rates []models.InterestRate
	query := dbFrom(ctx, r.db)
	if rateType != "" {
		query = query.Where("type = ?", rateType)
	}
	if err := query.Order("type ASC, valid_from DESC, id ASC").Find(&rates).Error; err != nil {
		return nil, translate(err, "interest rate", rateType)
	}
	return rates, nil
}
