package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/sjperalta/pratiche-api/internal/models"
	apperrors "github.com/sjperalta/pratiche-api/pkg/errors"
)

// PlanRepository defines the interface for amortization plan data access
type PlanRepository interface {
	FindByID(ctx context.Context, id uint) (*models.AmortizationPlan, error)
	FindByIDWithInstallments(ctx context.Context, id uint) (*models.AmortizationPlan, error)
	FindByCaseID(ctx context.Context, caseID uint) (*models.AmortizationPlan, error)
	// ReplaceForCase deletes the case's current plan, if any, and inserts plan
	// with its installments. It returns the replaced plan's id, zero when the
	// case had none.
	ReplaceForCase(ctx context.Context, plan *models.AmortizationPlan) (uint, error)
	// UpdateLifecycle writes the closure columns of plan if its stored status
	// is still fromStatus.
	UpdateLifecycle(ctx context.Context, plan *models.AmortizationPlan, fromStatus string) error
	// MarkPrincipalEntered flips principal_entered only while it is still false.
	MarkPrincipalEntered(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) FindByID(ctx context.Context, id uint) (*models.AmortizationPlan, error) {
	var plan models.AmortizationPlan
	if err := dbFrom(ctx, r.db).First(&plan, id).Error; err != nil {
		return nil, translate(err, "plan", id)
	}
	return &plan, nil
}

func (r *planRepository) FindByIDWithInstallments(ctx context.Context, id uint) (*models.AmortizationPlan, error) {
	var plan models.AmortizationPlan
	err := dbFrom(ctx, r.db).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("number ASC")
		}).
		First(&plan, id).Error
	if err != nil {
		return nil, translate(err, "plan", id)
	}
	return &plan, nil
}

func (r *planRepository) FindByCaseID(ctx context.Context, caseID uint) (*models.AmortizationPlan, error) {
	var plan models.AmortizationPlan
	err := dbFrom(ctx, r.db).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("number ASC")
		}).
		Where("case_id = ?", caseID).
		First(&plan).Error
	if err != nil {
		return nil, translate(err, "plan for case", caseID)
	}
	return &plan, nil
}

func (r *planRepository) ReplaceForCase(ctx context.Context, plan *models.AmortizationPlan) (uint, error) {
	db := dbFrom(ctx, r.db)

	var previous models.AmortizationPlan
	err := db.Select("id").Where("case_id = ?", plan.CaseID).Take(&previous).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperrors.Database(err)
	}

	if previous.ID != 0 {
		if err := r.deleteCascade(db, previous.ID); err != nil {
			return 0, err
		}
	}

	// the unique index on case_id rejects a concurrent insert for the same case
	if err := db.Create(plan).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, apperrors.StateConflict(plan.Status, "plan for case %d was created concurrently", plan.CaseID)
		}
		return 0, apperrors.Database(err)
	}
	return previous.ID, nil
}

func (r *planRepository) UpdateLifecycle(ctx context.Context, plan *models.AmortizationPlan, fromStatus string) error {
	result := dbFrom(ctx, r.db).
		Model(plan).
		Where("status = ?", fromStatus).
		Select("status", "closure_date", "recovered_amount", "notes", "updated_at").
		Updates(plan)
	if result.Error != nil {
		return apperrors.Database(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.StateConflict(fromStatus, "plan %d was changed concurrently", plan.ID)
	}
	return nil
}

func (r *planRepository) MarkPrincipalEntered(ctx context.Context, id uint) error {
	result := dbFrom(ctx, r.db).
		Model(&models.AmortizationPlan{}).
		Where("id = ? AND principal_entered = ?", id, false).
		Update("principal_entered", true)
	if result.Error != nil {
		return apperrors.Database(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.StateConflict("principal_entered", "principal already entered for plan %d", id)
	}
	return nil
}

func (r *planRepository) Delete(ctx context.Context, id uint) error {
	db := dbFrom(ctx, r.db)
	if err := db.Select("id").First(&models.AmortizationPlan{}, id).Error; err != nil {
		return translate(err, "plan", id)
	}
	return r.deleteCascade(db, id)
}

func (r *planRepository) deleteCascade(db *gorm.DB, id uint) error {
	if err := db.Where("plan_id = ?", id).Delete(&models.Installment{}).Error; err != nil {
		return apperrors.Database(err)
	}
	if err := db.Delete(&models.AmortizationPlan{}, id).Error; err != nil {
		return apperrors.Database(err)
	}
	return nil
}
