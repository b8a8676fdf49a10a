package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/sjperalta/pratiche-api/internal/amortization"
	"github.com/sjperalta/pratiche-api/internal/jobs"
	"github.com/sjperalta/pratiche-api/internal/metrics"
	"github.com/sjperalta/pratiche-api/internal/models"
	"github.com/sjperalta/pratiche-api/internal/repository"
	"github.com/sjperalta/pratiche-api/internal/services"
	"github.com/sjperalta/pratiche-api/internal/storage"
)

type mockTx struct{}

func (mockTx) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockPlanRepo struct {
	repository.PlanRepository
	mockFindByID       func(ctx context.Context, id uint) (*models.AmortizationPlan, error)
	mockFindWithInst   func(ctx context.Context, id uint) (*models.AmortizationPlan, error)
	mockFindByCaseID   func(ctx context.Context, caseID uint) (*models.AmortizationPlan, error)
	mockReplaceForCase func(ctx context.Context, plan *models.AmortizationPlan) (uint, error)
	mockUpdate         func(ctx context.Context, plan *models.AmortizationPlan, fromStatus string) error
	mockMarkPrincipal  func(ctx context.Context, id uint) error
	mockDelete         func(ctx context.Context, id uint) error
}

func (m *mockPlanRepo) FindByID(ctx context.Context, id uint) (*models.AmortizationPlan, error) {
	return m.mockFindByID(ctx, id)
}

func (m *mockPlanRepo) FindByIDWithInstallments(ctx context.Context, id uint) (*models.AmortizationPlan, error) {
	return m.mockFindWithInst(ctx, id)
}

func (m *mockPlanRepo) FindByCaseID(ctx context.Context, caseID uint) (*models.AmortizationPlan, error) {
	return m.mockFindByCaseID(ctx, caseID)
}

func (m *mockPlanRepo) ReplaceForCase(ctx context.Context, plan *models.AmortizationPlan) (uint, error) {
	return m.mockReplaceForCase(ctx, plan)
}

func (m *mockPlanRepo) UpdateLifecycle(ctx context.Context, plan *models.AmortizationPlan, fromStatus string) error {
	return m.mockUpdate(ctx, plan, fromStatus)
}

func (m *mockPlanRepo) MarkPrincipalEntered(ctx context.Context, id uint) error {
	return m.mockMarkPrincipal(ctx, id)
}

func (m *mockPlanRepo) Delete(ctx context.Context, id uint) error {
	return m.mockDelete(ctx, id)
}

type mockInstallmentRepo struct {
	repository.InstallmentRepository
	mockFindByID func(ctx context.Context, id uint) (*models.Installment, error)
	saved        *models.Installment
}

func (m *mockInstallmentRepo) FindByID(ctx context.Context, id uint) (*models.Installment, error) {
	return m.mockFindByID(ctx, id)
}

func (m *mockInstallmentRepo) SavePayment(ctx context.Context, inst *models.Installment) error {
	m.saved = inst
	return nil
}

type mockLedgerRepo struct {
	repository.LedgerRepository
	created []models.LedgerEntry
}

func (m *mockLedgerRepo) Create(ctx context.Context, entry *models.LedgerEntry) error {
	entry.ID = uint(len(m.created) + 1)
	m.created = append(m.created, *entry)
	return nil
}

func (m *mockLedgerRepo) SumByCaseAndKind(ctx context.Context, caseID uint, kind string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range m.created {
		if e.CaseID == caseID && e.Kind == kind {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

type mockRateRepo struct {
	rows []models.InterestRate
}

func (m *mockRateRepo) FindCandidates(ctx context.Context, rateType string, ref civil.Date) ([]models.InterestRate, error) {
	var out []models.InterestRate
	for _, r := range m.rows {
		if r.Type == rateType && !civil.DateOf(r.ValidFrom).After(ref) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRateRepo) List(ctx context.Context, rateType string) ([]models.InterestRate, error) {
	var out []models.InterestRate
	for _, r := range m.rows {
		if rateType == "" || r.Type == rateType {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockAuditRepo struct {
	repository.AuditRepository
	mockFindByEntity func(ctx context.Context, entity string, entityID uint) ([]models.AuditLog, error)
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	return nil
}

func (m *mockAuditRepo) FindByEntity(ctx context.Context, entity string, entityID uint) ([]models.AuditLog, error) {
	return m.mockFindByEntity(ctx, entity, entityID)
}

// testEnv wires real services over the mocks
type testEnv struct {
	plans        *mockPlanRepo
	installments *mockInstallmentRepo
	ledger       *mockLedgerRepo
	rates        *mockRateRepo
	audits       *mockAuditRepo
	worker       *jobs.Worker
	store        *storage.LocalStorage
	handlers     *Handlers
	router       *gin.Engine
}

func newTestEnv(t *testing.T, rates ...models.InterestRate) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		plans:        &mockPlanRepo{},
		installments: &mockInstallmentRepo{},
		ledger:       &mockLedgerRepo{},
		rates:        &mockRateRepo{rows: rates},
		audits:       &mockAuditRepo{},
		worker:       jobs.NewWorker(1),
	}

	m := metrics.New()
	resolver := amortization.NewResolver(env.rates)
	auditSvc := services.NewAuditService(env.audits, env.worker)
	svcs := &services.Services{
		Plan:    services.NewPlanService(mockTx{}, env.plans, env.ledger, resolver, auditSvc, m, 2),
		Payment: services.NewPaymentService(mockTx{}, env.installments, env.ledger, auditSvc, m),
		Rate:    services.NewRateService(env.rates, resolver),
		Export:  services.NewExportService(env.plans, 2),
		Audit:   auditSvc,
	}
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	env.store = store
	env.handlers = NewHandlers(svcs, store, nil, nil, env.worker)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", uint(7))
		c.Next()
	})
	r.POST("/plans/preview", env.handlers.Plan.Preview)
	r.POST("/cases/:case_id/plan", env.handlers.Plan.Upsert)
	r.GET("/cases/:case_id/plan", env.handlers.Plan.ShowByCase)
	r.POST("/plans/:plan_id/close", env.handlers.Plan.Close)
	r.POST("/plans/:plan_id/reopen", env.handlers.Plan.Reopen)
	r.POST("/plans/:plan_id/enter_principal", env.handlers.Plan.EnterPrincipal)
	r.DELETE("/plans/:plan_id", env.handlers.Plan.Delete)
	r.GET("/plans/:plan_id/export", env.handlers.Plan.Export)
	r.GET("/plans/:plan_id/audits", env.handlers.Plan.Audits)
	r.POST("/installments/:installment_id/pay", env.handlers.Installment.Pay)
	r.POST("/installments/:installment_id/reverse", env.handlers.Installment.Reverse)
	r.POST("/installments/:installment_id/receipt", env.handlers.Installment.UploadReceipt)
	r.GET("/installments/:installment_id/receipt", env.handlers.Installment.DownloadReceipt)
	r.GET("/rates", env.handlers.Rate.Index)
	r.GET("/rates/resolve", env.handlers.Rate.Resolve)
	env.router = r
	return env
}

func (env *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	env.worker.Wait()
	return w
}

func decodeBody(w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func storedPlan(id uint, status string) *models.AmortizationPlan {
	return &models.AmortizationPlan{
		ID:                 id,
		CaseID:             3,
		InitialPrincipal:   decimal.RequireFromString("3000"),
		InstallmentCount:   3,
		StartDate:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:             status,
		AmortizationMethod: models.MethodItalian,
		Capitalization:     models.CapitalizationNone,
		Installments: []models.Installment{
			{ID: 31, PlanID: id, Number: 1, Amount: decimal.RequireFromString("1000"), PrincipalShare: decimal.RequireFromString("1000"), InterestShare: decimal.Zero, DueDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			{ID: 32, PlanID: id, Number: 2, Amount: decimal.RequireFromString("1000"), PrincipalShare: decimal.RequireFromString("1000"), InterestShare: decimal.Zero, DueDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
			{ID: 33, PlanID: id, Number: 3, Amount: decimal.RequireFromString("1000"), PrincipalShare: decimal.RequireFromString("1000"), InterestShare: decimal.Zero, DueDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		},
	}
}

func rateRow(id uint, rateType, pct string, from time.Time, to *time.Time) models.InterestRate {
	return models.InterestRate{ID: id, Type: rateType, Percentage: decimal.RequireFromString(pct), ValidFrom: from, ValidTo: to}
}
