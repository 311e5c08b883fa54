package gateway

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athathco/athath-backend/pkg/enums"
)

func authorizeParams(token string, autoCapture bool) AuthorizeParams {
	return AuthorizeParams{
		OrderID:        uuid.New(),
		CustomerID:     uuid.New(),
		SourceToken:    token,
		Amount:         55000,
		Currency:       enums.CurrencyAED,
		IdempotencyKey: NewIdempotencyKey("pay"),
		AutoCapture:    autoCapture,
	}
}

func TestSimulatorAutoCapture(t *testing.T) {
	t.Parallel()

	sim := NewSimulator()
	result, err := sim.AuthorizePayment(context.Background(), authorizeParams("cnon:card-ok", true))
	require.NoError(t, err)
	assert.Equal(t, StatusCaptured, result.Status)
	assert.Equal(t, int64(55000), result.Amount)
	assert.NotEmpty(t, result.ProviderRef)

	looked, err := sim.Lookup(context.Background(), result.ProviderRef)
	require.NoError(t, err)
	assert.Equal(t, StatusCaptured, looked.Status)
}

func TestSimulatorAuthorizeThenCapture(t *testing.T) {
	t.Parallel()

	sim := NewSimulator()
	result, err := sim.AuthorizePayment(context.Background(), authorizeParams("cnon:card-ok", false))
	require.NoError(t, err)
	assert.Equal(t, StatusAuthorized, result.Status)

	captured, err := sim.Capture(context.Background(), CaptureParams{
		ProviderRef:    result.ProviderRef,
		IdempotencyKey: NewIdempotencyKey("cap"),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCaptured, captured.Status)

	_, err = sim.Capture(context.Background(), CaptureParams{
		ProviderRef:    result.ProviderRef,
		IdempotencyKey: NewIdempotencyKey("cap"),
	})
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrAlreadyCaptured, code)
}

func TestSimulatorMagicTokens(t *testing.T) {
	t.Parallel()

	sim := NewSimulator()
	cases := map[string]ErrorCode{
		"tok_declined":           ErrDeclined,
		"tok_expired_card":       ErrExpiredCard,
		"tok_insufficient_funds": ErrInsufficientFunds,
		"tok_invalid_token":      ErrInvalidToken,
		"tok_processing_error":   ErrProcessingError,
		"tok_network_error":      ErrNetworkError,
	}
	for token, want := range cases {
		_, err := sim.AuthorizePayment(context.Background(), authorizeParams(token, true))
		code, ok := CodeOf(err)
		require.True(t, ok, "token %s", token)
		assert.Equal(t, want, code, "token %s", token)
	}
}

func TestSimulatorIdempotentReplay(t *testing.T) {
	t.Parallel()

	sim := NewSimulator()
	params := authorizeParams("cnon:card-ok", true)

	first, err := sim.AuthorizePayment(context.Background(), params)
	require.NoError(t, err)

	second, err := sim.AuthorizePayment(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, first.ProviderRef, second.ProviderRef)
}

func TestSimulatorRefundCaps(t *testing.T) {
	t.Parallel()

	sim := NewSimulator()
	result, err := sim.AuthorizePayment(context.Background(), authorizeParams("cnon:card-ok", true))
	require.NoError(t, err)

	refund, err := sim.Refund(context.Background(), RefundParams{
		ProviderRef:    result.ProviderRef,
		Amount:         30000,
		Currency:       enums.CurrencyAED,
		IdempotencyKey: NewIdempotencyKey("ref"),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, refund.Status)

	// Anything past the captured amount is rejected.
	_, err = sim.Refund(context.Background(), RefundParams{
		ProviderRef:    result.ProviderRef,
		Amount:         30000,
		Currency:       enums.CurrencyAED,
		IdempotencyKey: NewIdempotencyKey("ref"),
	})
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrNotRefundable, code)

	// The remainder still goes through and flips the payment to refunded.
	_, err = sim.Refund(context.Background(), RefundParams{
		ProviderRef:    result.ProviderRef,
		Amount:         25000,
		Currency:       enums.CurrencyAED,
		IdempotencyKey: NewIdempotencyKey("ref"),
	})
	require.NoError(t, err)

	looked, err := sim.Lookup(context.Background(), result.ProviderRef)
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, looked.Status)
}

func TestSimulatorRefundUncaptured(t *testing.T) {
	t.Parallel()

	sim := NewSimulator()
	result, err := sim.AuthorizePayment(context.Background(), authorizeParams("cnon:card-ok", false))
	require.NoError(t, err)

	_, err = sim.Refund(context.Background(), RefundParams{
		ProviderRef:    result.ProviderRef,
		Amount:         100,
		Currency:       enums.CurrencyAED,
		IdempotencyKey: NewIdempotencyKey("ref"),
	})
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrNotRefundable, code)
}

func TestSimulatorLookupUnknown(t *testing.T) {
	t.Parallel()

	sim := NewSimulator()
	_, err := sim.Lookup(context.Background(), "sim_missing")
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrNotFound, code)
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	retryable := []ErrorCode{ErrNetworkError, ErrProcessingError}
	for _, code := range retryable {
		assert.True(t, NewError(code, "x").Retryable(), "code %s", code)
		assert.False(t, NewError(code, "x").IsDecline(), "code %s", code)
	}

	declines := []ErrorCode{ErrDeclined, ErrExpiredCard, ErrInsufficientFunds, ErrInvalidToken}
	for _, code := range declines {
		assert.True(t, NewError(code, "x").IsDecline(), "code %s", code)
		assert.False(t, NewError(code, "x").Retryable(), "code %s", code)
	}
}
