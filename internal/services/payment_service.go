package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/sjperalta/pratiche-api/internal/amortization"
	"github.com/sjperalta/pratiche-api/internal/metrics"
	"github.com/sjperalta/pratiche-api/internal/models"
	"github.com/sjperalta/pratiche-api/internal/repository"
	"github.com/sjperalta/pratiche-api/internal/statemachine"
	apperrors "github.com/sjperalta/pratiche-api/pkg/errors"
	"github.com/sjperalta/pratiche-api/pkg/logger"
)

// PaymentDetails describes a payment received for an installment
type PaymentDetails struct {
	PaymentDate civil.Date
	Method      string
	Code        *string
	Notes       *string
	// ReceiptRef is the document store reference of the receipt
	ReceiptRef *string
}

// PaymentService posts installment payments and reversals to the case ledger
type PaymentService struct {
	tx           repository.Transactor
	installments repository.InstallmentRepository
	ledger       repository.LedgerRepository
	audit        AuditRecorder
	metrics      *metrics.Metrics
}

func NewPaymentService(
	tx repository.Transactor,
	installments repository.InstallmentRepository,
	ledger repository.LedgerRepository,
	audit AuditRecorder,
	m *metrics.Metrics,
) *PaymentService {
	return &PaymentService{
		tx:           tx,
		installments: installments,
		ledger:       ledger,
		audit:        audit,
		metrics:      m,
	}
}

// GetInstallment returns an installment with its plan
func (s *PaymentService) GetInstallment(ctx context.Context, installmentID uint) (*models.Installment, error) {
	return s.installments.FindByID(ctx, installmentID)
}

// RegisterPayment marks an unpaid installment paid and posts a principal
// recovery entry plus, when the installment carries interest, an interest
// recovery entry. Payments are accepted whatever the plan status.
func (s *PaymentService) RegisterPayment(ctx context.Context, installmentID uint, details PaymentDetails) (*models.Installment, error) {
	details.Method = strings.TrimSpace(details.Method)
	if details.Method == "" {
		return nil, apperrors.Validation("payment method is required")
	}
	if details.PaymentDate == (civil.Date{}) || !details.PaymentDate.IsValid() {
		return nil, apperrors.Validation("payment date is required")
	}

	var inst *models.Installment
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		inst, err = s.installments.FindByID(ctx, installmentID)
		if err != nil {
			return err
		}
		if err := statemachine.NewInstallmentFSM(inst).Pay(ctx); err != nil {
			return err
		}

		if inst.Plan == nil {
			return fmt.Errorf("installment %d is not linked to a plan", inst.ID)
		}
		caseID := inst.Plan.CaseID
		paidOn := amortization.ToTime(details.PaymentDate)

		principal := &models.LedgerEntry{
			CaseID:        caseID,
			InstallmentID: &inst.ID,
			Kind:          models.LedgerKindPrincipalRecovery,
			Amount:        inst.PrincipalShare,
			Description:   fmt.Sprintf("Installment %d principal", inst.Number),
			EntryDate:     paidOn,
		}
		if err := s.ledger.Create(ctx, principal); err != nil {
			return fmt.Errorf("failed to post principal recovery: %w", err)
		}
		inst.PrincipalMovementID = &principal.ID

		if inst.InterestShare.IsPositive() {
			interest := &models.LedgerEntry{
				CaseID:        caseID,
				InstallmentID: &inst.ID,
				Kind:          models.LedgerKindInterestRecovery,
				Amount:        inst.InterestShare,
				Description:   fmt.Sprintf("Installment %d interest", inst.Number),
				EntryDate:     paidOn,
			}
			if err := s.ledger.Create(ctx, interest); err != nil {
				return fmt.Errorf("failed to post interest recovery: %w", err)
			}
			inst.InterestMovementID = &interest.ID
		}

		method := details.Method
		inst.PaymentDate = &paidOn
		inst.PaymentMethod = &method
		inst.PaymentCode = details.Code
		inst.ReceiptRef = details.ReceiptRef
		inst.Notes = details.Notes

		return s.installments.SavePayment(ctx, inst)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentsRegistered.Inc()
	logger.Info("Payment registered",
		"installment_id", inst.ID,
		"plan_id", inst.PlanID,
		"number", inst.Number,
		"amount", inst.Amount.String())
	s.audit.Record(ctx, models.AuditActionPay, models.AuditEntityInstallment, inst.ID,
		fmt.Sprintf("installment %d paid on %s by %s", inst.Number, details.PaymentDate, details.Method))

	return inst, nil
}

// ReversePayment undoes a registered payment: the linked ledger entries are
// deleted and every payment field is cleared. A linked entry that no longer
// exists counts as already reversed.
func (s *PaymentService) ReversePayment(ctx context.Context, installmentID uint) (*models.Installment, error) {
	var inst *models.Installment
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		inst, err = s.installments.FindByID(ctx, installmentID)
		if err != nil {
			return err
		}
		if err := statemachine.NewInstallmentFSM(inst).Reverse(ctx); err != nil {
			return err
		}

		for _, id := range []*uint{inst.PrincipalMovementID, inst.InterestMovementID} {
			if id == nil {
				continue
			}
			if err := s.removeEntry(ctx, inst, *id); err != nil {
				return err
			}
		}

		inst.ClearPayment()
		return s.installments.ClearPayment(ctx, inst)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentsReversed.Inc()
	logger.Info("Payment reversed", "installment_id", inst.ID, "plan_id", inst.PlanID, "number", inst.Number)
	s.audit.Record(ctx, models.AuditActionReverse, models.AuditEntityInstallment, inst.ID,
		fmt.Sprintf("installment %d reversed", inst.Number))

	return inst, nil
}

func (s *PaymentService) removeEntry(ctx context.Context, inst *models.Installment, entryID uint) error {
	err := s.ledger.Delete(ctx, entryID)
	if errors.Is(err, apperrors.ErrNotFound) {
		s.metrics.MissingLedgerEntries.Inc()
		logger.Warn("Ledger entry already removed, treating as reversed",
			"installment_id", inst.ID, "entry_id", entryID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to remove ledger entry %d: %w", entryID, err)
	}
	return nil
}
