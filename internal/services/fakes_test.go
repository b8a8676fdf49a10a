package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/sjperalta/pratiche-api/internal/amortization"
	"github.com/sjperalta/pratiche-api/internal/metrics"
	"github.com/sjperalta/pratiche-api/internal/models"
	"github.com/sjperalta/pratiche-api/internal/repository"
	apperrors "github.com/sjperalta/pratiche-api/pkg/errors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func day(y, m, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

func dayPtr(y, m, d int) *civil.Date {
	v := day(y, m, d)
	return &v
}

func strPtr(s string) *string {
	return &s
}

// passthroughTx runs the unit of work without a database
type passthroughTx struct {
	calls int
}

func (t *passthroughTx) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

// memoryStore keeps plans and installments in memory and hands out copies
type memoryStore struct {
	mu           sync.Mutex
	nextPlan     uint
	nextInst     uint
	plans        map[uint]models.AmortizationPlan
	installments map[uint]models.Installment
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		plans:        map[uint]models.AmortizationPlan{},
		installments: map[uint]models.Installment{},
	}
}

func (s *memoryStore) planWithInstallments(p models.AmortizationPlan) *models.AmortizationPlan {
	p.Installments = nil
	for _, inst := range s.installments {
		if inst.PlanID == p.ID {
			p.Installments = append(p.Installments, inst)
		}
	}
	sort.Slice(p.Installments, func(i, j int) bool { return p.Installments[i].Number < p.Installments[j].Number })
	return &p
}

type planStore struct {
	*memoryStore
}

func (s planStore) FindByID(ctx context.Context, id uint) (*models.AmortizationPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, apperrors.NotFound("plan", id)
	}
	return &p, nil
}

func (s planStore) FindByIDWithInstallments(ctx context.Context, id uint) (*models.AmortizationPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, apperrors.NotFound("plan", id)
	}
	return s.planWithInstallments(p), nil
}

func (s planStore) FindByCaseID(ctx context.Context, caseID uint) (*models.AmortizationPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.plans {
		if p.CaseID == caseID {
			return s.planWithInstallments(p), nil
		}
	}
	return nil, apperrors.NotFound("plan for case", caseID)
}

func (s planStore) ReplaceForCase(ctx context.Context, plan *models.AmortizationPlan) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var replaced uint
	for id, p := range s.plans {
		if p.CaseID == plan.CaseID {
			replaced = id
			s.deleteLocked(id)
		}
	}

	s.nextPlan++
	plan.ID = s.nextPlan
	for i := range plan.Installments {
		s.nextInst++
		plan.Installments[i].ID = s.nextInst
		plan.Installments[i].PlanID = plan.ID
		s.installments[s.nextInst] = plan.Installments[i]
	}
	stored := *plan
	stored.Installments = nil
	s.plans[plan.ID] = stored
	return replaced, nil
}

func (s planStore) UpdateLifecycle(ctx context.Context, plan *models.AmortizationPlan, fromStatus string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.plans[plan.ID]
	if !ok {
		return apperrors.NotFound("plan", plan.ID)
	}
	if stored.Status != fromStatus {
		return apperrors.StateConflict(stored.Status, "plan changed concurrently")
	}
	stored.Status = plan.Status
	stored.ClosureDate = plan.ClosureDate
	stored.RecoveredAmount = plan.RecoveredAmount
	stored.Notes = plan.Notes
	s.plans[plan.ID] = stored
	return nil
}

func (s planStore) MarkPrincipalEntered(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.plans[id]
	if stored.PrincipalEntered {
		return apperrors.StateConflict("principal_entered", "principal already entered")
	}
	stored.PrincipalEntered = true
	s.plans[id] = stored
	return nil
}

func (s planStore) Delete(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[id]; !ok {
		return apperrors.NotFound("plan", id)
	}
	s.deleteLocked(id)
	return nil
}

func (s *memoryStore) deleteLocked(planID uint) {
	for id, inst := range s.installments {
		if inst.PlanID == planID {
			delete(s.installments, id)
		}
	}
	delete(s.plans, planID)
}

type installmentStore struct {
	*memoryStore
}

func (s installmentStore) FindByID(ctx context.Context, id uint) (*models.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.installments[id]
	if !ok {
		return nil, apperrors.NotFound("installment", id)
	}
	plan := s.plans[inst.PlanID]
	inst.Plan = &plan
	return &inst, nil
}

func (s installmentStore) FindByPlanID(ctx context.Context, planID uint) ([]models.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.plans[planID]
	return s.planWithInstallments(p).Installments, nil
}

func (s installmentStore) SavePayment(ctx context.Context, inst *models.Installment) error {
	return s.write(inst, false)
}

func (s installmentStore) ClearPayment(ctx context.Context, inst *models.Installment) error {
	return s.write(inst, true)
}

func (s installmentStore) write(inst *models.Installment, expectPaid bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.installments[inst.ID]
	if !ok {
		return apperrors.NotFound("installment", inst.ID)
	}
	if stored.Paid != expectPaid {
		return apperrors.StateConflict(stored.Status(), "installment changed concurrently")
	}
	updated := *inst
	updated.Plan = nil
	s.installments[inst.ID] = updated
	return nil
}

// memoryLedger is an in-memory case ledger
type memoryLedger struct {
	repository.LedgerRepository
	mu        sync.Mutex
	nextID    uint
	entries   map[uint]models.LedgerEntry
	createErr error
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{entries: map[uint]models.LedgerEntry{}}
}

func (l *memoryLedger) Create(ctx context.Context, entry *models.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createErr != nil {
		return l.createErr
	}
	l.nextID++
	entry.ID = l.nextID
	l.entries[entry.ID] = *entry
	return nil
}

func (l *memoryLedger) Delete(ctx context.Context, id uint) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[id]; !ok {
		return apperrors.NotFound("ledger entry", id)
	}
	delete(l.entries, id)
	return nil
}

func (l *memoryLedger) SumByCaseAndKind(ctx context.Context, caseID uint, kind string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := decimal.Zero
	for _, e := range l.entries {
		if e.CaseID == caseID && e.Kind == kind {
			total = total.Add(e.Amount)
		}
	}
	return total, nil
}

func (l *memoryLedger) byKind(kind string) []models.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range l.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// stubRates serves a fixed rate table
type stubRates struct {
	rows  []models.InterestRate
	calls int
}

func (s *stubRates) FindCandidates(ctx context.Context, rateType string, ref civil.Date) ([]models.InterestRate, error) {
	s.calls++
	var out []models.InterestRate
	for _, r := range s.rows {
		if r.Type == rateType && !civil.DateOf(r.ValidFrom).After(ref) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubRates) List(ctx context.Context, rateType string) ([]models.InterestRate, error) {
	var out []models.InterestRate
	for _, r := range s.rows {
		if rateType == "" || r.Type == rateType {
			out = append(out, r)
		}
	}
	return out, nil
}

// recordingAudit keeps audit calls for assertions
type recordingAudit struct {
	mu      sync.Mutex
	actions []string
	actors  []uint
}

func (a *recordingAudit) Record(ctx context.Context, action, entity string, entityID uint, details string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
	a.actors = append(a.actors, ActorFrom(ctx))
}

// fixture wires the services over in-memory fakes
type fixture struct {
	store    *memoryStore
	ledger   *memoryLedger
	rates    *stubRates
	audit    *recordingAudit
	metrics  *metrics.Metrics
	tx       *passthroughTx
	plans    *PlanService
	payments *PaymentService
	now      time.Time
}

func newFixture(rates ...models.InterestRate) *fixture {
	f := &fixture{
		store:   newMemoryStore(),
		ledger:  newMemoryLedger(),
		rates:   &stubRates{rows: rates},
		audit:   &recordingAudit{},
		metrics: metrics.New(),
		tx:      &passthroughTx{},
		now:     time.Date(2024, 9, 15, 10, 30, 0, 0, time.UTC),
	}

	resolver := amortization.NewResolver(f.rates)
	f.plans = NewPlanService(f.tx, planStore{f.store}, f.ledger, resolver, f.audit, f.metrics, 2)
	f.plans.now = func() time.Time { return f.now }
	f.payments = NewPaymentService(f.tx, installmentStore{f.store}, f.ledger, f.audit, f.metrics)
	return f
}

func rate(id uint, rateType, pct string, from civil.Date, to *civil.Date) models.InterestRate {
	r := models.InterestRate{ID: id, Type: rateType, Percentage: dec(pct), ValidFrom: from.In(time.UTC)}
	if to != nil {
		t := to.In(time.UTC)
		r.ValidTo = &t
	}
	return r
}

func scenarioBParams() PlanParams {
	start := day(2024, 1, 1)
	return PlanParams{
		Principal:         dec("12000"),
		InstallmentCount:  12,
		StartDate:         start,
		Method:            models.MethodItalian,
		InterestStartDate: &start,
		Interest:          amortization.FixedRate{Rate: dec("6")},
	}
}
