package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Simulator is an in-process gateway used in dev environments and tests. It
// honors idempotency keys and recognizes magic source tokens to force
// specific failure codes, e.g. "tok_declined" or "tok_insufficient_funds".
type Simulator struct {
	mu       sync.Mutex
	payments map[string]*simPayment
	byKey    map[string]string
	refunds  map[string]string
}

type simPayment struct {
	result   PaymentResult
	refunded int64
}

var _ Gateway = (*Simulator)(nil)

// NewSimulator returns an empty simulator.
func NewSimulator() *Simulator {
	return &Simulator{
		payments: make(map[string]*simPayment),
		byKey:    make(map[string]string),
		refunds:  make(map[string]string),
	}
}

// failure tokens follow the pattern tok_<lowercased error code>.
func failureCodeForToken(token string) (ErrorCode, bool) {
	suffix, ok := strings.CutPrefix(token, "tok_")
	if !ok {
		return "", false
	}
	code := ErrorCode(strings.ToUpper(suffix))
	switch code {
	case ErrDeclined, ErrExpiredCard, ErrInsufficientFunds, ErrInvalidToken,
		ErrProcessingError, ErrNetworkError:
		return code, true
	}
	return "", false
}

// AuthorizePayment simulates a charge or hold.
func (s *Simulator) AuthorizePayment(_ context.Context, params AuthorizeParams) (*PaymentResult, error) {
	if params.SourceToken == "" {
		return nil, NewError(ErrInvalidToken, "source token is required")
	}
	if params.Amount <= 0 {
		return nil, NewError(ErrProcessingError, "amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ref, ok := s.byKey[params.IdempotencyKey]; ok && params.IdempotencyKey != "" {
		existing := s.payments[ref].result
		return &existing, nil
	}

	if code, ok := failureCodeForToken(params.SourceToken); ok {
		return nil, NewError(code, fmt.Sprintf("simulated %s", code))
	}

	status := StatusAuthorized
	if params.AutoCapture {
		status = StatusCaptured
	}
	ref := "sim_" + uuid.NewString()
	payment := &simPayment{result: PaymentResult{
		ProviderRef: ref,
		Status:      status,
		Amount:      params.Amount,
		Currency:    params.Currency,
	}}
	s.payments[ref] = payment
	if params.IdempotencyKey != "" {
		s.byKey[params.IdempotencyKey] = ref
	}
	result := payment.result
	return &result, nil
}

// Capture completes a simulated hold.
func (s *Simulator) Capture(_ context.Context, params CaptureParams) (*PaymentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payment, ok := s.payments[params.ProviderRef]
	if !ok {
		return nil, NewError(ErrNotFound, "unknown payment")
	}
	switch payment.result.Status {
	case StatusAuthorized:
		payment.result.Status = StatusCaptured
	case StatusCaptured:
		return nil, NewError(ErrAlreadyCaptured, "payment already captured")
	default:
		return nil, NewError(ErrNotCapturable, fmt.Sprintf("payment is %s", payment.result.Status))
	}
	result := payment.result
	return &result, nil
}

// Refund reverses part or all of a simulated captured payment.
func (s *Simulator) Refund(_ context.Context, params RefundParams) (*RefundResult, error) {
	if params.Amount <= 0 {
		return nil, NewError(ErrProcessingError, "refund amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ref, ok := s.refunds[params.IdempotencyKey]; ok && params.IdempotencyKey != "" {
		return &RefundResult{RefundRef: ref, Status: StatusRefunded}, nil
	}

	payment, ok := s.payments[params.ProviderRef]
	if !ok {
		return nil, NewError(ErrNotFound, "unknown payment")
	}
	if payment.result.Status != StatusCaptured && payment.result.Status != StatusRefunded {
		return nil, NewError(ErrNotRefundable, fmt.Sprintf("payment is %s", payment.result.Status))
	}
	if payment.refunded+params.Amount > payment.result.Amount {
		return nil, NewError(ErrNotRefundable, "refund exceeds captured amount")
	}

	payment.refunded += params.Amount
	if payment.refunded == payment.result.Amount {
		payment.result.Status = StatusRefunded
	}
	ref := "simref_" + uuid.NewString()
	if params.IdempotencyKey != "" {
		s.refunds[params.IdempotencyKey] = ref
	}
	return &RefundResult{RefundRef: ref, Status: StatusRefunded}, nil
}

// Lookup returns the simulator's view of a payment.
func (s *Simulator) Lookup(_ context.Context, providerRef string) (*PaymentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payment, ok := s.payments[providerRef]
	if !ok {
		return nil, NewError(ErrNotFound, "unknown payment")
	}
	result := payment.result
	return &result, nil
}
