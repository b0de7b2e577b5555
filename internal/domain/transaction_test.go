package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianpay/reconciler/internal/money"
)

func usd(t *testing.T, units int64) money.Money {
	t.Helper()
	m, err := money.FromMinorUnit(units, "USD")
	require.NoError(t, err)
	return m
}

func authorizedTransaction(t *testing.T, units int64) *Transaction {
	t.Helper()
	txn, err := NewTransaction("pay_001", "mer_001", "stripe", usd(t, units))
	require.NoError(t, err)
	require.NoError(t, txn.Confirm())
	require.NoError(t, txn.StartProcessing())
	require.NoError(t, txn.Authorize())
	return txn
}

func TestNewTransaction(t *testing.T) {
	txn, err := NewTransaction("pay_001", "mer_001", "stripe", usd(t, 5000))
	require.NoError(t, err)

	assert.Equal(t, PaymentRequiresPaymentMethod, txn.Status)
	assert.True(t, txn.Captured.IsZero())
	assert.Nil(t, txn.AuthorizedAt)

	_, err = NewTransaction("", "mer_001", "stripe", usd(t, 5000))
	assert.Error(t, err)
}

func TestAuthorizeStampsTimestamp(t *testing.T) {
	txn := authorizedTransaction(t, 5000)
	assert.Equal(t, PaymentRequiresCapture, txn.Status)
	require.NotNil(t, txn.AuthorizedAt)
	assert.False(t, txn.AuthorizedAt.Before(txn.CreatedAt))
}

func TestFullCapture(t *testing.T) {
	txn := authorizedTransaction(t, 5000)

	require.NoError(t, txn.Capture(usd(t, 5000)))
	assert.Equal(t, PaymentSucceeded, txn.Status)
	assert.True(t, txn.Captured.Equals(txn.Amount))
	assert.NotNil(t, txn.CapturedAt)
}

func TestPartialCapture(t *testing.T) {
	txn := authorizedTransaction(t, 5000)

	require.NoError(t, txn.Capture(usd(t, 2000)))
	assert.Equal(t, PaymentPartiallyCapturedAndCapturable, txn.Status)

	remaining, err := txn.RemainingCapturable()
	require.NoError(t, err)
	assert.Equal(t, int64(3000), remaining.MinorUnits())

	// capture the rest
	require.NoError(t, txn.Capture(usd(t, 3000)))
	assert.Equal(t, PaymentSucceeded, txn.Status)
}

func TestPartialCaptureThenClose(t *testing.T) {
	txn := authorizedTransaction(t, 5000)

	require.NoError(t, txn.Capture(usd(t, 2000)))
	require.NoError(t, txn.CompleteCapture())
	assert.Equal(t, PaymentPartiallyCaptured, txn.Status)
	assert.True(t, txn.Status.IsTerminal())
}

func TestCaptureExceedingAuthorization(t *testing.T) {
	txn := authorizedTransaction(t, 5000)

	err := txn.Capture(usd(t, 6000))
	assert.ErrorIs(t, err, ErrCaptureExceedsAuth)
	// entity unchanged
	assert.Equal(t, PaymentRequiresCapture, txn.Status)
	assert.True(t, txn.Captured.IsZero())
}

func TestIllegalTransitionLeavesEntityUnchanged(t *testing.T) {
	txn, err := NewTransaction("pay_002", "mer_001", "adyen", usd(t, 1000))
	require.NoError(t, err)

	err = txn.Capture(usd(t, 1000)) // cannot capture before authorization
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, PaymentRequiresPaymentMethod, txn.Status)
	assert.Nil(t, txn.CapturedAt)
}

func TestCancelAndFail(t *testing.T) {
	txn := authorizedTransaction(t, 1000)
	require.NoError(t, txn.Cancel())
	assert.Equal(t, PaymentCancelled, txn.Status)
	assert.NotNil(t, txn.CancelledAt)

	err := txn.MarkFailed("connector declined")
	assert.ErrorIs(t, err, ErrInvalidTransition, "cancelled is terminal")

	other, err := NewTransaction("pay_003", "mer_001", "stripe", usd(t, 1000))
	require.NoError(t, err)
	require.NoError(t, other.Confirm())
	require.NoError(t, other.StartProcessing())
	require.NoError(t, other.MarkFailed("card declined"))
	assert.Equal(t, PaymentFailed, other.Status)
	assert.Equal(t, "card declined", other.FailureReason)
	assert.NotNil(t, other.FailedAt)
}
