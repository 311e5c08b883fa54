package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	sqcore "github.com/square/square-go-sdk/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athathco/athath-backend/pkg/config"
	"github.com/athathco/athath-backend/pkg/enums"
	"github.com/athathco/athath-backend/pkg/logger"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	client, err := NewClient(context.Background(), config.GatewayConfig{
		AccessToken: "sandbox-test-token",
		LocationID:  "L1",
		BaseURL:     baseURL,
	}, logg)
	require.NoError(t, err)
	return client
}

func providerError(status int, body string) error {
	return sqcore.NewAPIError(status, errors.New(body))
}

func TestMapGatewayErrorKnownCode(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "https://gateway.invalid")
	err := client.mapGatewayError(providerError(http.StatusPaymentRequired,
		`{"errors":[{"category":"PAYMENT_METHOD_ERROR","code":"CARD_EXPIRED"}]}`), "authorize payment")

	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrExpiredCard, code)
}

func TestMapGatewayErrorUnknownCardCode(t *testing.T) {
	t.Parallel()

	// A card-category failure the mapping table does not list still comes
	// back as a decline, never as a retryable processor fault.
	client := newTestClient(t, "https://gateway.invalid")
	err := client.mapGatewayError(providerError(http.StatusPaymentRequired,
		`{"errors":[{"category":"PAYMENT_METHOD_ERROR","code":"PAN_FAILURE"}]}`), "authorize payment")

	var typed *Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, ErrDeclined, typed.Code)
	assert.True(t, typed.IsDecline())
	assert.False(t, typed.Retryable())
}

func TestMapGatewayErrorServerFault(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "https://gateway.invalid")
	err := client.mapGatewayError(providerError(http.StatusInternalServerError,
		`{"errors":[{"category":"API_ERROR","code":"INTERNAL_SERVER_ERROR"}]}`), "capture payment")

	var typed *Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, ErrProcessingError, typed.Code)
	assert.True(t, typed.Retryable())
}

func TestMapGatewayErrorTransport(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, "https://gateway.invalid")
	err := client.mapGatewayError(errors.New("connection reset by peer"), "authorize payment")

	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrNetworkError, code)
}

func TestRefundReturnsRefundReference(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"refund":{"id":"ref_123","status":"COMPLETED","payment_id":"pay_456"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	result, err := client.Refund(context.Background(), RefundParams{
		ProviderRef:    "pay_456",
		Amount:         12500,
		Currency:       enums.CurrencyAED,
		IdempotencyKey: NewIdempotencyKey("refund"),
	})
	require.NoError(t, err)

	// The reference is the refund's own id, what a later lookup needs.
	assert.Equal(t, "ref_123", result.RefundRef)
	assert.Equal(t, StatusRefunded, result.Status)
}
