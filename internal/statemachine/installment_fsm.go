package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/sjperalta/pratiche-api/internal/models"
	apperrors "github.com/sjperalta/pratiche-api/pkg/errors"
)

// InstallmentFSM wraps an installment's paid flag with its state machine
type InstallmentFSM struct {
	installment *models.Installment
	fsm         *fsm.FSM
}

// NewInstallmentFSM creates a new installment state machine
func NewInstallmentFSM(installment *models.Installment) *InstallmentFSM {
	ifsm := &InstallmentFSM{
		installment: installment,
	}

	ifsm.fsm = fsm.NewFSM(
		installment.Status(),
		fsm.Events{
			// unpaid → paid
			{Name: "pay", Src: []string{models.InstallmentStatusUnpaid}, Dst: models.InstallmentStatusPaid},

			// paid → unpaid (storno)
			{Name: "reverse", Src: []string{models.InstallmentStatusPaid}, Dst: models.InstallmentStatusUnpaid},
		},
		fsm.Callbacks{},
	)

	return ifsm
}

// Pay marks the installment paid
func (i *InstallmentFSM) Pay(ctx context.Context) error {
	if !i.installment.MayPay() {
		return apperrors.StateConflict(i.installment.Status(), "installment %d is already paid", i.installment.Number)
	}

	if err := i.fsm.Event(ctx, "pay"); err != nil {
		return fmt.Errorf("failed to pay installment: %w", err)
	}

	i.installment.Paid = i.fsm.Current() == models.InstallmentStatusPaid
	return nil
}

// Reverse marks the installment unpaid again
func (i *InstallmentFSM) Reverse(ctx context.Context) error {
	if !i.installment.MayReverse() {
		return apperrors.StateConflict(i.installment.Status(), "installment %d is not paid", i.installment.Number)
	}

	if err := i.fsm.Event(ctx, "reverse"); err != nil {
		return fmt.Errorf("failed to reverse installment: %w", err)
	}

	i.installment.Paid = i.fsm.Current() == models.InstallmentStatusPaid
	return nil
}

// Current returns the current state
func (i *InstallmentFSM) Current() string {
	return i.fsm.Current()
}
