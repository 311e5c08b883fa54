package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/athathco/athath-backend/pkg/config"
	"github.com/athathco/athath-backend/pkg/logger"
)

const (
	productionBaseURL = "https://connect.squareup.com"
)

var (
	errAccessTokenRequired = errors.New("gateway access token is required")
	errLoggerRequired      = errors.New("gateway logger is required")
)

// declineCodes maps the processor's card failure codes onto the normalized
// taxonomy. Anything absent falls through to the HTTP-status mapping.
var declineCodes = map[sq.ErrorCode]ErrorCode{
	sq.ErrorCodeGenericDecline:        ErrDeclined,
	sq.ErrorCodeCvvFailure:            ErrDeclined,
	sq.ErrorCodeInvalidAccount:        ErrDeclined,
	sq.ErrorCodeTransactionLimit:      ErrDeclined,
	sq.ErrorCodeCardNotSupported:      ErrDeclined,
	sq.ErrorCodeCardExpired:           ErrExpiredCard,
	sq.ErrorCodeInvalidExpiration:     ErrExpiredCard,
	sq.ErrorCodeInsufficientFunds:     ErrInsufficientFunds,
	sq.ErrorCodeInvalidCard:           ErrInvalidToken,
	sq.ErrorCodeCardTokenExpired:      ErrInvalidToken,
	sq.ErrorCodeCardTokenUsed:         ErrInvalidToken,
	sq.ErrorCodePaymentNotRefundable:  ErrNotRefundable,
	sq.ErrorCodeRefundAlreadyPending:  ErrAlreadyRefunded,
	sq.ErrorCodeIdempotencyKeyReused:  ErrProcessingError,
}

// Client talks to the Square payments API with centralized auth, logging,
// idempotency, and error normalization.
type Client struct {
	sdk        *sqclient.Client
	locationID string
	baseURL    string
	logger     *logger.Logger
}

var _ Gateway = (*Client)(nil)

// NewClient initializes the Square-backed gateway and validates credentials.
func NewClient(ctx context.Context, cfg config.GatewayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}

	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, errAccessTokenRequired
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = productionBaseURL
	}

	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURL),
		sqoption.WithToken(accessToken),
	)

	c := &Client{
		sdk:        sdk,
		locationID: strings.TrimSpace(cfg.LocationID),
		baseURL:    baseURL,
		logger:     logg,
	}

	logg.Info(ctx, "payment gateway client initialized")
	return c, nil
}

// NewIdempotencyKey returns a unique key for gateway operations.
func NewIdempotencyKey(prefix string) string {
	key := strings.TrimSpace(prefix)
	if key == "" {
		key = "athath"
	}
	return fmt.Sprintf("%s-%s", key, uuid.NewString())
}

// AuthorizePayment charges or holds the given source token.
func (c *Client) AuthorizePayment(ctx context.Context, params AuthorizeParams) (*PaymentResult, error) {
	req, err := buildCreatePaymentRequest(c.locationID, params)
	if err != nil {
		return nil, err
	}
	c.log(ctx, "request", "authorize_payment", map[string]any{
		"order_id":     params.OrderID.String(),
		"amount":       params.Amount,
		"currency":     params.Currency.String(),
		"auto_capture": params.AutoCapture,
		"source":       redactToken(params.SourceToken),
	})

	resp, err := c.sdk.Payments.Create(ctx, req)
	if err != nil {
		c.log(ctx, "error", "authorize_payment", map[string]any{"error": err.Error()})
		return nil, c.mapGatewayError(err, "authorize payment")
	}

	result := paymentResultFrom(resp.GetPayment())
	c.log(ctx, "response", "authorize_payment", map[string]any{
		"provider_ref": result.ProviderRef,
		"status":       string(result.Status),
	})
	return result, nil
}

// Capture completes a previously authorized payment.
func (c *Client) Capture(ctx context.Context, params CaptureParams) (*PaymentResult, error) {
	if params.ProviderRef == "" {
		return nil, NewError(ErrNotFound, "provider ref is required")
	}
	req := &sq.CompletePaymentRequest{PaymentID: params.ProviderRef}
	c.log(ctx, "request", "capture_payment", map[string]any{"provider_ref": params.ProviderRef})

	resp, err := c.sdk.Payments.Complete(ctx, req)
	if err != nil {
		c.log(ctx, "error", "capture_payment", map[string]any{"error": err.Error()})
		return nil, c.mapGatewayError(err, "capture payment")
	}

	result := paymentResultFrom(resp.GetPayment())
	c.log(ctx, "response", "capture_payment", map[string]any{
		"provider_ref": result.ProviderRef,
		"status":       string(result.Status),
	})
	return result, nil
}

// Refund reverses all or part of a captured payment.
func (c *Client) Refund(ctx context.Context, params RefundParams) (*RefundResult, error) {
	req, err := buildRefundPaymentRequest(params)
	if err != nil {
		return nil, err
	}
	c.log(ctx, "request", "refund_payment", map[string]any{
		"provider_ref": params.ProviderRef,
		"amount":       params.Amount,
		"currency":     params.Currency.String(),
	})

	resp, err := c.sdk.Refunds.RefundPayment(ctx, req)
	if err != nil {
		c.log(ctx, "error", "refund_payment", map[string]any{"error": err.Error()})
		return nil, c.mapGatewayError(err, "refund payment")
	}

	refund := resp.GetRefund()
	result := &RefundResult{
		RefundRef: refund.GetID(),
		Status:    refundStatusFrom(stringValue(refund.GetStatus())),
	}
	c.log(ctx, "response", "refund_payment", map[string]any{
		"refund_ref": result.RefundRef,
		"status":     string(result.Status),
	})
	return result, nil
}

// Lookup fetches the provider's current view of a payment.
func (c *Client) Lookup(ctx context.Context, providerRef string) (*PaymentResult, error) {
	if providerRef == "" {
		return nil, NewError(ErrNotFound, "provider ref is required")
	}
	req := &sq.GetPaymentsRequest{PaymentID: providerRef}
	c.log(ctx, "request", "lookup_payment", map[string]any{"provider_ref": providerRef})

	resp, err := c.sdk.Payments.Get(ctx, req)
	if err != nil {
		c.log(ctx, "error", "lookup_payment", map[string]any{"error": err.Error()})
		return nil, c.mapGatewayError(err, "lookup payment")
	}

	result := paymentResultFrom(resp.GetPayment())
	c.log(ctx, "response", "lookup_payment", map[string]any{
		"provider_ref": result.ProviderRef,
		"status":       string(result.Status),
	})
	return result, nil
}

func paymentResultFrom(payment *sq.Payment) *PaymentResult {
	if payment == nil {
		return &PaymentResult{Status: StatusPending}
	}
	result := &PaymentResult{
		ProviderRef: stringValue(payment.GetID()),
		Status:      paymentStatusFrom(stringValue(payment.GetStatus())),
	}
	if money := payment.GetAmountMoney(); money != nil {
		if money.Amount != nil {
			result.Amount = *money.Amount
		}
		if money.Currency != nil {
			result.Currency = enumsCurrency(string(*money.Currency))
		}
	}
	return result
}

func paymentStatusFrom(raw string) Status {
	switch strings.ToUpper(raw) {
	case "APPROVED":
		return StatusAuthorized
	case "COMPLETED":
		return StatusCaptured
	case "CANCELED", "FAILED":
		return StatusFailed
	default:
		return StatusPending
	}
}

func refundStatusFrom(raw string) Status {
	switch strings.ToUpper(raw) {
	case "COMPLETED":
		return StatusRefunded
	case "REJECTED", "FAILED":
		return StatusFailed
	default:
		return StatusPending
	}
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("gateway %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("gateway %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "nonce", "token", "cvv", "cvc", "secret", "email", "phone"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func (c *Client) mapGatewayError(err error, op string) error {
	if err == nil {
		return nil
	}
	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return WrapError(ErrNetworkError, fmt.Sprintf("%s failed", op), err)
	}

	var decline *sq.Error
	for _, sqErr := range extractProviderErrors(apiErr) {
		if sqErr == nil {
			continue
		}
		if code, ok := declineCodes[sqErr.Code]; ok {
			return WrapError(code, string(sqErr.Code), err)
		}
		if decline == nil && sqErr.Category == sq.ErrorCategoryPaymentMethodError {
			decline = sqErr
		}
	}
	// Card failures the lookup table does not know are still declines, not
	// processor faults.
	if decline != nil {
		return WrapError(ErrDeclined, string(decline.Code), err)
	}

	switch {
	case apiErr.StatusCode == http.StatusNotFound:
		return WrapError(ErrNotFound, fmt.Sprintf("%s failed", op), err)
	case apiErr.StatusCode >= 500:
		return WrapError(ErrProcessingError, fmt.Sprintf("%s failed", op), err)
	default:
		return WrapError(ErrProcessingError, fmt.Sprintf("%s failed", op), err)
	}
}

func extractProviderErrors(apiErr *sqcore.APIError) []*sq.Error {
	if apiErr == nil {
		return nil
	}
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	raw := strings.TrimSpace(inner.Error())
	if raw == "" {
		return nil
	}
	var payload struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	return payload.Errors
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
