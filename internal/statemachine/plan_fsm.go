package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/sjperalta/pratiche-api/internal/models"
	apperrors "github.com/sjperalta/pratiche-api/pkg/errors"
)

// Plan outcomes accepted by Close
const (
	OutcomePositive = "positive"
	OutcomeNegative = "negative"
)

// PlanFSM wraps an amortization plan with its state machine
type PlanFSM struct {
	plan *models.AmortizationPlan
	fsm  *fsm.FSM
}

// NewPlanFSM creates a new plan state machine. Suspended plans have no
// transitions.
func NewPlanFSM(plan *models.AmortizationPlan) *PlanFSM {
	pfsm := &PlanFSM{
		plan: plan,
	}

	closed := []string{models.PlanStatusClosedPositive, models.PlanStatusClosedNegative}

	pfsm.fsm = fsm.NewFSM(
		plan.Status,
		fsm.Events{
			// active → closed_positive
			{Name: "close_positive", Src: []string{models.PlanStatusActive}, Dst: models.PlanStatusClosedPositive},

			// active → closed_negative
			{Name: "close_negative", Src: []string{models.PlanStatusActive}, Dst: models.PlanStatusClosedNegative},

			// closed_* → active
			{Name: "reopen", Src: closed, Dst: models.PlanStatusActive},
		},
		fsm.Callbacks{},
	)

	return pfsm
}

// Close transitions an active plan to the closed state matching outcome
func (p *PlanFSM) Close(ctx context.Context, outcome string) error {
	var event string
	switch outcome {
	case OutcomePositive:
		event = "close_positive"
	case OutcomeNegative:
		event = "close_negative"
	default:
		return apperrors.Validation("outcome must be %q or %q", OutcomePositive, OutcomeNegative)
	}

	if !p.plan.MayClose() {
		return apperrors.StateConflict(p.plan.Status, "plan cannot be closed in current state")
	}

	if err := p.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("failed to close plan: %w", err)
	}

	p.plan.Status = p.fsm.Current()
	return nil
}

// Reopen transitions a closed plan back to active
func (p *PlanFSM) Reopen(ctx context.Context) error {
	if !p.plan.MayReopen() {
		return apperrors.StateConflict(p.plan.Status, "plan cannot be reopened in current state")
	}

	if err := p.fsm.Event(ctx, "reopen"); err != nil {
		return fmt.Errorf("failed to reopen plan: %w", err)
	}

	p.plan.Status = p.fsm.Current()
	return nil
}

// Current returns the current state
func (p *PlanFSM) Current() string {
	return p.fsm.Current()
}

// Can checks if a transition is possible
func (p *PlanFSM) Can(event string) bool {
	return p.fsm.Can(event)
}
