package handlers

import (
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/sjperalta/pratiche-api/internal/amortization"
	"github.com/sjperalta/pratiche-api/internal/models"
	"github.com/sjperalta/pratiche-api/internal/services"
	apperrors "github.com/sjperalta/pratiche-api/pkg/errors"
)

// PlanRequest is the body of plan generation and preview.
// Amounts and rates are decimal strings, dates are YYYY-MM-DD.
type PlanRequest struct {
	Principal         string  `json:"principal" binding:"required,decimal_gt0"`
	InstallmentCount  int     `json:"installment_count" binding:"required,min=1,max=600"`
	StartDate         string  `json:"start_date" binding:"required,datetime=2006-01-02"`
	Method            string  `json:"amortization_method" binding:"omitempty,oneof=italian french"`
	Capitalization    string  `json:"capitalization" binding:"omitempty,oneof=none quarterly semiannual annual"`
	InterestStartDate *string `json:"interest_start_date" binding:"omitempty,datetime=2006-01-02"`
	ApplyInterest     bool    `json:"apply_interest"`
	InterestType      string  `json:"interest_type" binding:"omitempty,oneof=legal moratory fixed"`
	FixedRate         *string `json:"fixed_rate" binding:"omitempty,decimal_gte0"`
	MoratoryPre2013   bool    `json:"moratory_pre_2013"`
	MoratoryMarkup    bool    `json:"moratory_markup"`
	MoratoryMarkupPct *string `json:"moratory_markup_pct" binding:"omitempty,decimal_gt0"`
	ApplyArt1194      bool    `json:"apply_art_1194"`
	Notes             *string `json:"notes"`
}

// ToParams converts the request into generation parameters
func (r *PlanRequest) ToParams() (services.PlanParams, error) {
	principal, err := decimal.NewFromString(r.Principal)
	if err != nil {
		return services.PlanParams{}, apperrors.Validation("invalid principal %q", r.Principal)
	}
	start, err := civil.ParseDate(r.StartDate)
	if err != nil {
		return services.PlanParams{}, apperrors.Validation("invalid start date %q", r.StartDate)
	}

	params := services.PlanParams{
		Principal:        principal,
		InstallmentCount: r.InstallmentCount,
		StartDate:        start,
		Method:           r.Method,
		Capitalization:   r.Capitalization,
		ApplyArt1194:     r.ApplyArt1194,
		Notes:            r.Notes,
	}

	if r.InterestStartDate != nil && *r.InterestStartDate != "" {
		d, err := civil.ParseDate(*r.InterestStartDate)
		if err != nil {
			return services.PlanParams{}, apperrors.Validation("invalid interest start date %q", *r.InterestStartDate)
		}
		params.InterestStartDate = &d
	}

	params.Interest, err = r.interestConfig()
	if err != nil {
		return services.PlanParams{}, err
	}
	return params, nil
}

func (r *PlanRequest) interestConfig() (amortization.InterestConfig, error) {
	if !r.ApplyInterest {
		return amortization.NoInterest{}, nil
	}

	switch r.InterestType {
	case models.InterestTypeFixed:
		if r.FixedRate == nil {
			return nil, apperrors.Validation("fixed_rate is required for fixed interest")
		}
		rate, err := decimal.NewFromString(*r.FixedRate)
		if err != nil {
			return nil, apperrors.Validation("invalid fixed_rate %q", *r.FixedRate)
		}
		return amortization.FixedRate{Rate: rate}, nil
	case models.InterestTypeLegal:
		return amortization.LegalRate{}, nil
	case models.InterestTypeMoratory:
		cfg := amortization.MoratoryRate{Pre2013: r.MoratoryPre2013}
		if r.MoratoryMarkup {
			if r.MoratoryMarkupPct == nil {
				return nil, apperrors.Validation("moratory_markup_pct is required when moratory_markup is set")
			}
			pct, err := decimal.NewFromString(*r.MoratoryMarkupPct)
			if err != nil {
				return nil, apperrors.Validation("invalid moratory_markup_pct %q", *r.MoratoryMarkupPct)
			}
			cfg.Markup = &pct
		}
		return cfg, nil
	case "":
		return nil, apperrors.Validation("interest_type is required when apply_interest is set")
	}
	return nil, apperrors.Validation("unknown interest type %q", r.InterestType)
}

// ClosePlanRequest is the body of plan closure
type ClosePlanRequest struct {
	Outcome string  `json:"outcome" binding:"required,oneof=positive negative"`
	Notes   *string `json:"notes"`
}

// EnterPrincipalRequest is the optional body of principal entry
type EnterPrincipalRequest struct {
	Notes *string `json:"notes"`
}

// PaymentRequest is the body of payment registration
type PaymentRequest struct {
	PaymentDate string  `json:"payment_date" binding:"required,datetime=2006-01-02"`
	Method      string  `json:"payment_method" binding:"required,max=50"`
	Code        *string `json:"payment_code" binding:"omitempty,max=100"`
	Notes       *string `json:"notes"`
	ReceiptRef  *string `json:"receipt_ref"`
}

// ToDetails converts the request into payment details
func (r *PaymentRequest) ToDetails() (services.PaymentDetails, error) {
	paidOn, err := civil.ParseDate(r.PaymentDate)
	if err != nil {
		return services.PaymentDetails{}, apperrors.Validation("invalid payment date %q", r.PaymentDate)
	}
	return services.PaymentDetails{
		PaymentDate: paidOn,
		Method:      strings.TrimSpace(r.Method),
		Code:        r.Code,
		Notes:       r.Notes,
		ReceiptRef:  r.ReceiptRef,
	}, nil
}
