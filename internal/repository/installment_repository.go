package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sjperalta/pratiche-api/internal/models"
	apperrors "github.com/sjperalta/pratiche-api/pkg/errors"
)

// paymentColumns are written together so an installment is never partially paid
var paymentColumns = []string{
	"paid",
	"payment_date",
	"payment_method",
	"payment_code",
	"receipt_ref",
	"principal_movement_id",
	"interest_movement_id",
	"notes",
	"updated_at",
}

// InstallmentRepository defines the interface for installment data access
type InstallmentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Installment, error)
	FindByPlanID(ctx context.Context, planID uint) ([]models.Installment, error)
	// SavePayment writes the payment fields of inst, which must have been
	// unpaid in the database.
	SavePayment(ctx context.Context, inst *models.Installment) error
	// ClearPayment writes the cleared payment fields of inst, which must
	// have been paid in the database.
	ClearPayment(ctx context.Context, inst *models.Installment) error
}

type installmentRepository struct {
	db *gorm.DB
}

// NewInstallmentRepository creates a new installment repository
func NewInstallmentRepository(db *gorm.DB) InstallmentRepository {
	return &installmentRepository{db: db}
}

// FindByID loads the installment together with its plan
func (r *installmentRepository) FindByID(ctx context.Context, id uint) (*models.Installment, error) {
	var inst models.Installment
	if err := dbFrom(ctx, r.db).Joins("Plan").First(&inst, id).Error; err != nil {
		return nil, translate(err, "installment", id)
	}
	return &inst, nil
}

func (r *installmentRepository) FindByPlanID(ctx context.Context, planID uint) ([]models.Installment, error) {
	var installments []models.Installment
	err := dbFrom(ctx, r.db).
		Where("plan_id = ?", planID).
		Order("number ASC").
		Find(&installments).Error
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return installments, nil
}

func (r *installmentRepository) SavePayment(ctx context.Context, inst *models.Installment) error {
	return r.writePayment(ctx, inst, false)
}

func (r *installmentRepository) ClearPayment(ctx context.Context, inst *models.Installment) error {
	return r.writePayment(ctx, inst, true)
}

// writePayment updates the payment columns only if the stored paid flag still
// equals expectPaid, so concurrent pay or reverse calls cannot both succeed.
func (r *installmentRepository) writePayment(ctx context.Context, inst *models.Installment, expectPaid bool) error {
	result := dbFrom(ctx, r.db).
		Model(inst).
		Where("paid = ?", expectPaid).
		Select(paymentColumns).
		Updates(inst)
	if result.Error != nil {
		return apperrors.Database(result.Error)
	}
	if result.RowsAffected == 0 {
		current := models.InstallmentStatusPaid
		if expectPaid {
			current = models.InstallmentStatusUnpaid
		}
		return apperrors.StateConflict(current, "installment %d was changed concurrently", inst.Number)
	}
	return nil
}
