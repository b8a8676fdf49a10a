package services

import (
	"github.com/sjperalta/pratiche-api/internal/amortization"
	"github.com/sjperalta/pratiche-api/internal/config"
	"github.com/sjperalta/pratiche-api/internal/jobs"
	"github.com/sjperalta/pratiche-api/internal/metrics"
	"github.com/sjperalta/pratiche-api/internal/repository"
)

// Services holds all service instances
type Services struct {
	Plan    *PlanService
	Payment *PaymentService
	Rate    *RateService
	Export  *ExportService
	Audit   *AuditService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, m *metrics.Metrics, cfg *config.Config) *Services {
	resolver := amortization.NewResolver(repos.Rate)
	auditSvc := NewAuditService(repos.Audit, worker)

	return &Services{
		Plan:    NewPlanService(repos.Tx, repos.Plan, repos.Ledger, resolver, auditSvc, m, cfg.CurrencyScale),
		Payment: NewPaymentService(repos.Tx, repos.Installment, repos.Ledger, auditSvc, m),
		Rate:    NewRateService(repos.Rate, resolver),
		Export:  NewExportService(repos.Plan, cfg.CurrencyScale),
		Audit:   auditSvc,
	}
}
