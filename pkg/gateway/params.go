package gateway

import (
	"fmt"

	sq "github.com/square/square-go-sdk"

	"github.com/athathco/athath-backend/pkg/enums"
)

func buildCreatePaymentRequest(locationID string, params AuthorizeParams) (*sq.CreatePaymentRequest, error) {
	if params.SourceToken == "" {
		return nil, NewError(ErrInvalidToken, "source token is required")
	}
	if params.Amount <= 0 {
		return nil, NewError(ErrProcessingError, "amount must be positive")
	}
	if params.IdempotencyKey == "" {
		return nil, NewError(ErrProcessingError, "idempotency key is required")
	}

	req := &sq.CreatePaymentRequest{
		IdempotencyKey: params.IdempotencyKey,
		SourceID:       params.SourceToken,
		AmountMoney:    moneyPtr(params.Amount, params.Currency),
		Autocomplete:   boolPtr(params.AutoCapture),
		ReferenceID:    ptrString(params.OrderID.String()),
	}
	if locationID != "" {
		req.LocationID = ptrString(locationID)
	}
	if params.Note != "" {
		req.Note = ptrString(params.Note)
	}
	return req, nil
}

func buildRefundPaymentRequest(params RefundParams) (*sq.RefundPaymentRequest, error) {
	if params.ProviderRef == "" {
		return nil, NewError(ErrNotFound, "provider ref is required")
	}
	if params.Amount <= 0 {
		return nil, NewError(ErrProcessingError, "refund amount must be positive")
	}
	if params.IdempotencyKey == "" {
		return nil, NewError(ErrProcessingError, "idempotency key is required")
	}

	req := &sq.RefundPaymentRequest{
		IdempotencyKey: params.IdempotencyKey,
		PaymentID:      ptrString(params.ProviderRef),
		AmountMoney:    moneyPtr(params.Amount, params.Currency),
	}
	if params.Reason != "" {
		req.Reason = ptrString(params.Reason)
	}
	return req, nil
}

func moneyPtr(amount int64, currency enums.Currency) *sq.Money {
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}

func ptrString(value string) *string { return &value }

func int64Ptr(value int64) *int64 { return &value }

func boolPtr(value bool) *bool { return &value }

func currencyPtr(currency enums.Currency) *sq.Currency {
	c := sq.Currency(currency.String())
	return &c
}

func enumsCurrency(raw string) enums.Currency {
	if parsed, err := enums.ParseCurrency(raw); err == nil {
		return parsed
	}
	return enums.Currency(raw)
}

func redactToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return fmt.Sprintf("%s****%s", token[:4], token[len(token)-4:])
}
