package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sjperalta/pratiche-api/internal/models"
	apperrors "github.com/sjperalta/pratiche-api/pkg/errors"
)

// LedgerRepository defines the interface for case ledger data access
type LedgerRepository interface {
	Create(ctx context.Context, entry *models.LedgerEntry) error
	// Delete removes an entry, returning a NotFound error when it is gone.
	Delete(ctx context.Context, id uint) error
	FindByCaseID(ctx context.Context, caseID uint) ([]models.LedgerEntry, error)
	SumByCaseAndKind(ctx context.Context, caseID uint, kind string) (decimal.Decimal, error)
}

// ledgerRepository handles database operations for ledger entries
type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// Create creates a new ledger entry
func (r *ledgerRepository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	if err := dbFrom(ctx, r.db).Create(entry).Error; err != nil {
		return apperrors.Database(err)
	}
	return nil
}

func (r *ledgerRepository) Delete(ctx context.Context, id uint) error {
	result := dbFrom(ctx, r.db).Delete(&models.LedgerEntry{}, id)
	if result.Error != nil {
		return apperrors.Database(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("ledger entry", id)
	}
	return nil
}

// FindByCaseID retrieves all ledger entries for a case
func (r *ledgerRepository) FindByCaseID(ctx context.Context, caseID uint) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := dbFrom(ctx, r.db).
		Where("case_id = ?", caseID).
		Order("entry_date ASC, created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return entries, nil
}

// SumByCaseAndKind totals the entries of one kind posted for a case
func (r *ledgerRepository) SumByCaseAndKind(ctx context.Context, caseID uint, kind string) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}

	err := dbFrom(ctx, r.db).
		Model(&models.LedgerEntry{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("case_id = ? AND kind = ?", caseID, kind).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, apperrors.Database(err)
	}

	return result.Total, nil
}
