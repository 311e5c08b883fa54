package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/athathco/athath-backend/pkg/enums"
)

// ErrorCode is the closed set of failure reasons a gateway call can report.
// Callers branch on the code, never on provider-specific strings.
type ErrorCode string

const (
	ErrDeclined          ErrorCode = "DECLINED"
	ErrExpiredCard       ErrorCode = "EXPIRED_CARD"
	ErrInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	ErrInvalidToken      ErrorCode = "INVALID_TOKEN"
	ErrProcessingError   ErrorCode = "PROCESSING_ERROR"
	ErrNetworkError      ErrorCode = "NETWORK_ERROR"
	ErrNotFound          ErrorCode = "NOT_FOUND"
	ErrNotCapturable     ErrorCode = "NOT_CAPTURABLE"
	ErrNotRefundable     ErrorCode = "NOT_REFUNDABLE"
	ErrAlreadyCaptured   ErrorCode = "ALREADY_CAPTURED"
	ErrAlreadyRefunded   ErrorCode = "ALREADY_REFUNDED"
)

// Error carries a normalized gateway failure. Detail keeps the provider's
// original message for logs; it must never be shown to customers.
type Error struct {
	Code   ErrorCode
	Detail string
	cause  error
}

func NewError(code ErrorCode, detail string) *Error {
	return &Error{Code: code, Detail: detail}
}

func WrapError(code ErrorCode, detail string, cause error) *Error {
	return &Error{Code: code, Detail: detail, cause: cause}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Retryable reports whether retrying the same call can plausibly succeed.
func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	return e.Code == ErrNetworkError || e.Code == ErrProcessingError
}

// IsDecline reports whether the code represents a card decline, meaning the
// attempt reached the processor and was refused on card grounds.
func (e *Error) IsDecline() bool {
	if e == nil {
		return false
	}
	switch e.Code {
	case ErrDeclined, ErrExpiredCard, ErrInsufficientFunds, ErrInvalidToken:
		return true
	}
	return false
}

// CodeOf extracts the gateway error code from an error chain.
func CodeOf(err error) (ErrorCode, bool) {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Code, true
	}
	return "", false
}

// Status is the normalized state of a payment or refund at the provider.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAuthorized Status = "authorized"
	StatusCaptured   Status = "captured"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
)

// AuthorizeParams describes a charge attempt. When AutoCapture is set the
// provider captures in the same call; otherwise the hold must be completed
// with Capture.
type AuthorizeParams struct {
	OrderID        uuid.UUID
	CustomerID     uuid.UUID
	SourceToken    string
	Amount         int64
	Currency       enums.Currency
	IdempotencyKey string
	AutoCapture    bool
	Note           string
}

// PaymentResult is the provider's view of a payment.
type PaymentResult struct {
	ProviderRef string
	Status      Status
	Amount      int64
	Currency    enums.Currency
}

// CaptureParams completes a previously authorized payment.
type CaptureParams struct {
	ProviderRef    string
	IdempotencyKey string
}

// RefundParams reverses all or part of a captured payment.
type RefundParams struct {
	ProviderRef    string
	Amount         int64
	Currency       enums.Currency
	IdempotencyKey string
	Reason         string
}

// RefundResult is the provider's view of a refund.
type RefundResult struct {
	RefundRef string
	Status    Status
}

// Gateway is the card processor abstraction the settlement flow depends on.
// Implementations must be safe for concurrent use.
type Gateway interface {
	AuthorizePayment(ctx context.Context, params AuthorizeParams) (*PaymentResult, error)
	Capture(ctx context.Context, params CaptureParams) (*PaymentResult, error)
	Refund(ctx context.Context, params RefundParams) (*RefundResult, error)
	Lookup(ctx context.Context, providerRef string) (*PaymentResult, error)
}
