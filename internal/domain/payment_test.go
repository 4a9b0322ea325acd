package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmTransitionsPendingExactlyOnce(t *testing.T) {
	now := time.Now()
	payment := Payment{UserID: 1, Amount: 100, Status: PaymentStatusPending}

	require.NoError(t, payment.Confirm(now))

	assert.Equal(t, PaymentStatusConfirmed, payment.Status)
	require.NotNil(t, payment.ConfirmedAt)
	assert.Equal(t, now, *payment.ConfirmedAt)
}

func TestConfirmTransitionsAutoStatus(t *testing.T) {
	payment := Payment{UserID: 1, Amount: 100, Status: PaymentStatusAuto}

	require.NoError(t, payment.Confirm(time.Now()))

	assert.Equal(t, PaymentStatusConfirmed, payment.Status)
}

// A second confirmation must be rejected so the credit is never applied
// twice. The original flow silently double-credited here.
func TestConfirmRejectsAlreadyConfirmed(t *testing.T) {
	first := time.Now()
	payment := Payment{UserID: 1, Amount: 100, Status: PaymentStatusAuto}
	require.NoError(t, payment.Confirm(first))

	err := payment.Confirm(first.Add(time.Minute))

	assert.ErrorIs(t, err, ErrPaymentAlreadyConfirmed)
	assert.Equal(t, PaymentStatusConfirmed, payment.Status)
	require.NotNil(t, payment.ConfirmedAt)
	assert.Equal(t, first, *payment.ConfirmedAt) // timestamp unchanged
}
