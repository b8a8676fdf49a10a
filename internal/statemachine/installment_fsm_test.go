package statemachine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjperalta/pratiche-api/internal/models"
	apperrors "github.com/sjperalta/pratiche-api/pkg/errors"
)

func TestInstallmentFSM_PayReverse(t *testing.T) {
	ctx := context.Background()
	inst := &models.Installment{Number: 3}
	ifsm := NewInstallmentFSM(inst)

	require.NoError(t, ifsm.Pay(ctx))
	assert.True(t, inst.Paid)
	assert.Equal(t, models.InstallmentStatusPaid, ifsm.Current())

	require.NoError(t, ifsm.Reverse(ctx))
	assert.False(t, inst.Paid)
	assert.Equal(t, models.InstallmentStatusUnpaid, ifsm.Current())
}

func TestInstallmentFSM_Guards(t *testing.T) {
	ctx := context.Background()

	paid := &models.Installment{Number: 1, Paid: true}
	err := NewInstallmentFSM(paid).Pay(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrStateConflict))
	assert.Equal(t, models.InstallmentStatusPaid, apperrors.CurrentState(err))

	unpaid := &models.Installment{Number: 2}
	err = NewInstallmentFSM(unpaid).Reverse(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrStateConflict))
	assert.Equal(t, models.InstallmentStatusUnpaid, apperrors.CurrentState(err))
}
