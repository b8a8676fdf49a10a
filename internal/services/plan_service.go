package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/sjperalta/pratiche-api/internal/amortization"
	"github.com/sjperalta/pratiche-api/internal/metrics"
	"github.com/sjperalta/pratiche-api/internal/models"
	"github.com/sjperalta/pratiche-api/internal/repository"
	"github.com/sjperalta/pratiche-api/internal/statemachine"
	apperrors "github.com/sjperalta/pratiche-api/pkg/errors"
	"github.com/sjperalta/pratiche-api/pkg/logger"
)

// Moratory markups accepted when generating a plan
var allowedMarkups = []decimal.Decimal{decimal.NewFromInt(2), decimal.NewFromInt(4)}

// PlanParams are the caller inputs of plan generation
type PlanParams struct {
	Principal         decimal.Decimal
	InstallmentCount  int
	StartDate         civil.Date
	Method            string
	Capitalization    string
	InterestStartDate *civil.Date
	Interest          amortization.InterestConfig
	ApplyArt1194      bool
	Notes             *string
}

// GeneratedPlan is a plan built from PlanParams with the rate it used
type GeneratedPlan struct {
	Plan *models.AmortizationPlan
	// Rate is nil for plans without interest
	Rate *amortization.Resolution
	// ReplacedPlanID is the id of the plan this one replaced, zero if none
	ReplacedPlanID uint
	// NegativeShares counts installments whose interest exceeds the annuity
	NegativeShares int
}

// PlanService manages the amortization plan lifecycle
type PlanService struct {
	tx       repository.Transactor
	plans    repository.PlanRepository
	ledger   repository.LedgerRepository
	resolver *amortization.Resolver
	audit    AuditRecorder
	metrics  *metrics.Metrics
	scale    int32
	now      func() time.Time
}

func NewPlanService(
	tx repository.Transactor,
	plans repository.PlanRepository,
	ledger repository.LedgerRepository,
	resolver *amortization.Resolver,
	audit AuditRecorder,
	m *metrics.Metrics,
	scale int32,
) *PlanService {
	return &PlanService{
		tx:       tx,
		plans:    plans,
		ledger:   ledger,
		resolver: resolver,
		audit:    audit,
		metrics:  m,
		scale:    scale,
		now:      time.Now,
	}
}

// Preview resolves the rate and generates the schedule without saving it
func (s *PlanService) Preview(ctx context.Context, params PlanParams) (*GeneratedPlan, error) {
	return s.build(ctx, 0, params)
}

// CreateOrRegenerate generates a plan for the case, replacing the existing
// one and its installments. Ledger entries posted for the replaced plan are
// left untouched.
func (s *PlanService) CreateOrRegenerate(ctx context.Context, caseID uint, params PlanParams) (*GeneratedPlan, error) {
	if caseID == 0 {
		return nil, apperrors.Validation("case id is required")
	}

	generated, err := s.build(ctx, caseID, params)
	if err != nil {
		return nil, err
	}

	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		replaced, err := s.plans.ReplaceForCase(ctx, generated.Plan)
		if err != nil {
			return err
		}
		generated.ReplacedPlanID = replaced
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save plan for case %d: %w", caseID, err)
	}

	plan := generated.Plan
	s.metrics.PlansGenerated.WithLabelValues(plan.AmortizationMethod).Inc()

	action := models.AuditActionCreate
	if generated.ReplacedPlanID != 0 {
		action = models.AuditActionRegenerate
		logger.Warn("Plan regenerated; ledger entries of the replaced plan were not reversed",
			"case_id", caseID, "replaced_plan_id", generated.ReplacedPlanID)
	}
	logger.Info("Plan generated",
		"case_id", caseID,
		"plan_id", plan.ID,
		"method", plan.AmortizationMethod,
		"installments", plan.InstallmentCount,
		"total_interest", plan.TotalInterest.String())
	s.audit.Record(ctx, action, models.AuditEntityPlan, plan.ID,
		fmt.Sprintf("case %d: %d installments, principal %s, interest %s",
			caseID, plan.InstallmentCount, plan.InitialPrincipal.StringFixed(s.scale), plan.TotalInterest.StringFixed(s.scale)))

	return generated, nil
}

// GetByCase returns the case's plan with its installments
func (s *PlanService) GetByCase(ctx context.Context, caseID uint) (*models.AmortizationPlan, error) {
	return s.plans.FindByCaseID(ctx, caseID)
}

// GetByID returns a plan with its installments
func (s *PlanService) GetByID(ctx context.Context, planID uint) (*models.AmortizationPlan, error) {
	return s.plans.FindByIDWithInstallments(ctx, planID)
}

// Close ends an active plan with a positive or negative outcome. A positive
// closure records the principal recovered through the ledger so far.
func (s *PlanService) Close(ctx context.Context, planID uint, outcome string, notes *string) (*models.AmortizationPlan, error) {
	var plan *models.AmortizationPlan

	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		plan, err = s.plans.FindByID(ctx, planID)
		if err != nil {
			return err
		}

		from := plan.Status
		if err := statemachine.NewPlanFSM(plan).Close(ctx, outcome); err != nil {
			return err
		}

		today := s.today()
		plan.ClosureDate = &today
		if notes != nil {
			plan.Notes = notes
		}

		if outcome == statemachine.OutcomePositive {
			recovered, err := s.ledger.SumByCaseAndKind(ctx, plan.CaseID, models.LedgerKindPrincipalRecovery)
			if err != nil {
				return fmt.Errorf("failed to total recovered principal: %w", err)
			}
			recovered = recovered.Round(s.scale)
			plan.RecoveredAmount = &recovered
		}

		return s.plans.UpdateLifecycle(ctx, plan, from)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Plan closed", "plan_id", plan.ID, "case_id", plan.CaseID, "status", plan.Status)
	s.audit.Record(ctx, models.AuditActionClose, models.AuditEntityPlan, plan.ID, plan.Status)
	return plan, nil
}

// Reopen returns a closed plan to active. Paid installments stay paid.
func (s *PlanService) Reopen(ctx context.Context, planID uint) (*models.AmortizationPlan, error) {
	var plan *models.AmortizationPlan

	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		plan, err = s.plans.FindByID(ctx, planID)
		if err != nil {
			return err
		}

		from := plan.Status
		if err := statemachine.NewPlanFSM(plan).Reopen(ctx); err != nil {
			return err
		}
		plan.ClosureDate = nil

		return s.plans.UpdateLifecycle(ctx, plan, from)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Plan reopened", "plan_id", plan.ID, "case_id", plan.CaseID)
	s.audit.Record(ctx, models.AuditActionReopen, models.AuditEntityPlan, plan.ID, "")
	return plan, nil
}

// EnterPrincipal books the plan's initial principal on the case ledger. It
// succeeds once per plan.
func (s *PlanService) EnterPrincipal(ctx context.Context, planID uint, notes *string) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry

	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		plan, err := s.plans.FindByID(ctx, planID)
		if err != nil {
			return err
		}
		if plan.PrincipalEntered {
			return apperrors.StateConflict("principal_entered", "principal already entered for plan %d", plan.ID)
		}

		if err := s.plans.MarkPrincipalEntered(ctx, plan.ID); err != nil {
			return err
		}

		description := fmt.Sprintf("Initial principal of plan %d", plan.ID)
		if notes != nil && *notes != "" {
			description = *notes
		}
		entry = &models.LedgerEntry{
			CaseID:      plan.CaseID,
			Kind:        models.LedgerKindPrincipalEntry,
			Amount:      plan.InitialPrincipal,
			Description: description,
			EntryDate:   s.today(),
		}
		return s.ledger.Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Principal entered", "plan_id", planID, "case_id", entry.CaseID, "entry_id", entry.ID)
	s.audit.Record(ctx, models.AuditActionEnterPrincipal, models.AuditEntityPlan, planID,
		fmt.Sprintf("ledger entry %d", entry.ID))
	return entry, nil
}

// Delete removes a plan and its installments. Posted ledger entries are kept.
func (s *PlanService) Delete(ctx context.Context, planID uint) error {
	if err := s.plans.Delete(ctx, planID); err != nil {
		return err
	}

	logger.Info("Plan deleted", "plan_id", planID)
	s.audit.Record(ctx, models.AuditActionDelete, models.AuditEntityPlan, planID, "")
	return nil
}

// build validates params, resolves the rate and generates the schedule.
func (s *PlanService) build(ctx context.Context, caseID uint, params PlanParams) (*GeneratedPlan, error) {
	if err := s.validate(&params); err != nil {
		return nil, err
	}

	ref := amortization.ReferenceDate(params.StartDate, params.InterestStartDate)
	resolution, err := s.resolver.Resolve(ctx, params.Interest, ref)
	if err != nil {
		return nil, err
	}

	var rate *decimal.Decimal
	if resolution != nil {
		rate = &resolution.Rate
		if resolution.Fallback {
			s.metrics.FallbackResolutions.Inc()
			logger.Warn("Using expired moratory rate",
				"case_id", caseID,
				"reference_date", ref.String(),
				"rate_id", resolution.Source.ID,
				"rate", resolution.Rate.String())
		}
	}

	requireRate := amortization.AppliesInterest(params.Interest)
	schedule, err := amortization.Generate(amortization.Params{
		Principal:         params.Principal,
		InstallmentCount:  params.InstallmentCount,
		StartDate:         params.StartDate,
		Method:            params.Method,
		InterestStartDate: params.InterestStartDate,
		Rate:              rate,
		RequireRate:       requireRate,
		Scale:             s.scale,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrRateResolution) {
			return nil, apperrors.RateResolution("no usable %s rate on %s",
				*params.Interest.InterestType(), ref.String())
		}
		return nil, err
	}

	plan := &models.AmortizationPlan{
		CaseID:             caseID,
		InitialPrincipal:   params.Principal,
		InstallmentCount:   params.InstallmentCount,
		StartDate:          amortization.ToTime(params.StartDate),
		Status:             models.PlanStatusActive,
		AmortizationMethod: params.Method,
		Capitalization:     params.Capitalization,
		InterestStartDate:  amortization.ToTimePtr(params.InterestStartDate),
		ApplyArt1194:       params.ApplyArt1194,
		TotalInterest:      schedule.TotalInterest,
		Notes:              params.Notes,
		Installments:       make([]models.Installment, 0, len(schedule.Installments)),
	}
	amortization.ApplyConfig(plan, params.Interest)

	for _, d := range schedule.Installments {
		plan.Installments = append(plan.Installments, models.Installment{
			Number:         d.Number,
			Amount:         d.Amount,
			PrincipalShare: d.PrincipalShare,
			InterestShare:  d.InterestShare,
			DueDate:        amortization.ToTime(d.DueDate),
		})
	}

	if schedule.NegativeShares > 0 {
		logger.Warn("Interest exceeds the annuity on some installments",
			"case_id", caseID,
			"installments", schedule.NegativeShares,
			"last_amount", schedule.Installments[len(schedule.Installments)-1].Amount.String())
	}

	return &GeneratedPlan{Plan: plan, Rate: resolution, NegativeShares: schedule.NegativeShares}, nil
}

func (s *PlanService) validate(params *PlanParams) error {
	if params.Method == "" {
		params.Method = models.MethodItalian
	}
	if params.Capitalization == "" {
		params.Capitalization = models.CapitalizationNone
	}
	if params.Interest == nil {
		params.Interest = amortization.NoInterest{}
	}

	if err := amortization.ValidateTerms(params.Principal, params.InstallmentCount, s.scale); err != nil {
		return err
	}
	if params.StartDate == (civil.Date{}) || !params.StartDate.IsValid() {
		return apperrors.Validation("start date is required")
	}
	if params.InterestStartDate != nil && !params.InterestStartDate.IsValid() {
		return apperrors.Validation("interest start date is not a valid date")
	}

	switch params.Capitalization {
	case models.CapitalizationNone, models.CapitalizationQuarterly,
		models.CapitalizationSemiannual, models.CapitalizationAnnual:
	default:
		return apperrors.Validation("unknown capitalization %q", params.Capitalization)
	}

	if m, ok := params.Interest.(amortization.MoratoryRate); ok && m.Markup != nil {
		allowed := false
		for _, pct := range allowedMarkups {
			if m.Markup.Equal(pct) {
				allowed = true
			}
		}
		if !allowed {
			return apperrors.Validation("moratory markup must be 2 or 4 points, got %s", m.Markup.String())
		}
	}
	return nil
}

func (s *PlanService) today() time.Time {
	return amortization.ToTime(civil.DateOf(s.now()))
}
