package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/athathco/athath-backend/internal/analytics"
	"github.com/athathco/athath-backend/internal/commission"
	"github.com/athathco/athath-backend/internal/inventory"
	"github.com/athathco/athath-backend/pkg/db"
	"github.com/athathco/athath-backend/pkg/db/models"
	"github.com/athathco/athath-backend/pkg/enums"
	pkgerrors "github.com/athathco/athath-backend/pkg/errors"
	"github.com/athathco/athath-backend/pkg/gateway"
	"github.com/athathco/athath-backend/pkg/logger"
	"github.com/athathco/athath-backend/pkg/metrics"
	"github.com/athathco/athath-backend/pkg/pagination"
)

// Service drives the settlement lifecycle: payment processing, cancellation,
// refunds, fulfillment transitions, and reconciliation of payments that were
// interrupted mid-flight.
type Service struct {
	client      *db.Client
	repo        *Repo
	inventory   *inventory.Repo
	commissions *commission.Service
	gw          gateway.Gateway
	tracker     *analytics.Tracker
	events      EventPublisher
	settlement  *metrics.SettlementMetrics
	logg        *logger.Logger
}

func NewService(
	client *db.Client,
	repo *Repo,
	inventoryRepo *inventory.Repo,
	commissions *commission.Service,
	gw gateway.Gateway,
	tracker *analytics.Tracker,
	events EventPublisher,
	settlement *metrics.SettlementMetrics,
	logg *logger.Logger,
) *Service {
	return &Service{
		client:      client,
		repo:        repo,
		inventory:   inventoryRepo,
		commissions: commissions,
		gw:          gw,
		tracker:     tracker,
		events:      events,
		settlement:  settlement,
		logg:        logg,
	}
}

// OutcomeKind classifies how a payment attempt ended. Declines and retryable
// interruptions are outcomes, not errors: the order remains payable.
type OutcomeKind string

const (
	OutcomeCaptured  OutcomeKind = "captured"
	OutcomeDeclined  OutcomeKind = "declined"
	OutcomeRetryable OutcomeKind = "retryable"
)

// PaymentOutcome is the result of one ProcessPayment call.
type PaymentOutcome struct {
	Kind        OutcomeKind
	Payment     *models.Payment
	FailureCode string
}

// ProcessPaymentInput carries everything needed to attempt a charge.
type ProcessPaymentInput struct {
	OrderID        uuid.UUID
	CustomerID     uuid.UUID
	SourceToken    string
	Method         enums.PaymentMethod
	IdempotencyKey string
}

// ProcessPayment charges the customer for a pending order. The gateway call
// happens outside any transaction; the payment row is written first so a
// crash between charge and settle is visible to reconciliation.
func (s *Service) ProcessPayment(ctx context.Context, input ProcessPaymentInput) (*PaymentOutcome, error) {
	if input.SourceToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source token is required")
	}
	if input.Method == "" {
		input.Method = enums.PaymentMethodCard
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.Method))
	}

	// The key lookup runs before any state check so a retry of a payment that
	// already settled gets its recorded outcome back, not a conflict.
	key := input.IdempotencyKey
	if key == "" {
		key = gateway.NewIdempotencyKey("pay")
	} else if existing, err := s.repo.GetPaymentByKey(ctx, key); err == nil {
		return s.outcomeFromPayment(existing), nil
	}

	order, err := s.repo.GetForCustomer(ctx, input.OrderID, input.CustomerID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPendingPayment {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is %s, expected %s", order.Status, enums.OrderStatusPendingPayment)).
			WithDetails(map[string]any{"status": order.Status})
	}

	payment := &models.Payment{
		OrderID:        order.ID,
		Status:         enums.PaymentStatusPending,
		Method:         input.Method,
		Amount:         order.TotalAmount,
		Currency:       order.Currency,
		IdempotencyKey: key,
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		if db.IsUniqueViolation(err, "idx_payments_idempotency_key") || db.IsUniqueViolation(err, "idempotency_key") {
			if existing, lookupErr := s.repo.GetPaymentByKey(ctx, key); lookupErr == nil {
				return s.outcomeFromPayment(existing), nil
			}
		}
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	start := time.Now()
	result, gwErr := s.gw.AuthorizePayment(ctx, gateway.AuthorizeParams{
		OrderID:        order.ID,
		CustomerID:     order.CustomerID,
		SourceToken:    input.SourceToken,
		Amount:         order.TotalAmount,
		Currency:       order.Currency,
		IdempotencyKey: key,
		AutoCapture:    true,
		Note:           fmt.Sprintf("athath order %s", order.ID),
	})
	s.settlement.ObserveGatewayCall("authorize", time.Since(start))

	if gwErr != nil {
		return s.handleAuthorizeFailure(ctx, order, payment, gwErr)
	}

	return s.handleAuthorizeSuccess(ctx, order, payment, result)
}

func (s *Service) handleAuthorizeFailure(ctx context.Context, order *models.Order, payment *models.Payment, gwErr error) (*PaymentOutcome, error) {
	var typed *gateway.Error
	if !errors.As(gwErr, &typed) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, gwErr, "gateway call failed")
	}

	if typed.Retryable() {
		// The charge may have gone through on the provider side. Leave the
		// payment pending for reconciliation to settle, recording why the
		// attempt was interrupted.
		if err := s.repo.UpdatePayment(ctx, payment.ID, map[string]any{
			"failure_code":   string(typed.Code),
			"failure_detail": typed.Detail,
		}); err != nil {
			return nil, err
		}
		payment.FailureCode = string(typed.Code)
		payment.FailureDetail = typed.Detail
		s.settlement.IncPaymentAttempt("retryable")
		s.logg.Warn(ctx, "gateway call interrupted, payment left pending")
		return &PaymentOutcome{Kind: OutcomeRetryable, Payment: payment, FailureCode: string(typed.Code)}, nil
	}

	updates := map[string]any{
		"status":         enums.PaymentStatusFailed,
		"failure_code":   string(typed.Code),
		"failure_detail": typed.Detail,
	}
	if err := s.repo.UpdatePayment(ctx, payment.ID, updates); err != nil {
		return nil, err
	}
	payment.Status = enums.PaymentStatusFailed
	payment.FailureCode = string(typed.Code)
	payment.FailureDetail = typed.Detail

	s.settlement.IncPaymentAttempt("declined")
	s.tracker.Track(ctx, analytics.EventPaymentOutcome, analytics.PaymentOutcomePayload{
		OrderID:     order.ID,
		PaymentID:   payment.ID,
		Outcome:     string(OutcomeDeclined),
		FailureCode: string(typed.Code),
		Amount:      payment.Amount,
		Currency:    payment.Currency.String(),
	})

	if typed.IsDecline() {
		return &PaymentOutcome{Kind: OutcomeDeclined, Payment: payment, FailureCode: string(typed.Code)}, nil
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, typed, "gateway rejected payment")
}

func (s *Service) handleAuthorizeSuccess(ctx context.Context, order *models.Order, payment *models.Payment, result *gateway.PaymentResult) (*PaymentOutcome, error) {
	switch result.Status {
	case gateway.StatusCaptured:
		if err := s.settle(ctx, order, payment, result.ProviderRef); err != nil {
			return nil, err
		}
		return &PaymentOutcome{Kind: OutcomeCaptured, Payment: payment}, nil

	case gateway.StatusAuthorized:
		now := time.Now().UTC()
		if err := s.repo.UpdatePayment(ctx, payment.ID, map[string]any{
			"status":        enums.PaymentStatusAuthorized,
			"gateway_ref":   result.ProviderRef,
			"authorized_at": &now,
		}); err != nil {
			return nil, err
		}
		payment.Status = enums.PaymentStatusAuthorized
		payment.GatewayRef = result.ProviderRef

		start := time.Now()
		captured, err := s.gw.Capture(ctx, gateway.CaptureParams{
			ProviderRef:    result.ProviderRef,
			IdempotencyKey: gateway.NewIdempotencyKey("cap"),
		})
		s.settlement.ObserveGatewayCall("capture", time.Since(start))
		if err != nil {
			// Funds are held but not captured. Reconciliation retries; the
			// customer is told to wait rather than charge again.
			s.settlement.IncPaymentAttempt("retryable")
			s.logg.Warn(ctx, "capture failed after authorization, payment left authorized")
			return &PaymentOutcome{Kind: OutcomeRetryable, Payment: payment}, nil
		}
		if captured.Status != gateway.StatusCaptured {
			return &PaymentOutcome{Kind: OutcomeRetryable, Payment: payment}, nil
		}
		if err := s.settle(ctx, order, payment, result.ProviderRef); err != nil {
			return nil, err
		}
		return &PaymentOutcome{Kind: OutcomeCaptured, Payment: payment}, nil

	default:
		if err := s.repo.UpdatePayment(ctx, payment.ID, map[string]any{
			"gateway_ref": result.ProviderRef,
		}); err != nil {
			return nil, err
		}
		payment.GatewayRef = result.ProviderRef
		s.settlement.IncPaymentAttempt("retryable")
		return &PaymentOutcome{Kind: OutcomeRetryable, Payment: payment}, nil
	}
}

// settle marks the payment captured, moves the order to paid, and posts
// commissions, all in one transaction.
func (s *Service) settle(ctx context.Context, order *models.Order, payment *models.Payment, providerRef string) error {
	now := time.Now().UTC()
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdatePayment(ctx, payment.ID, map[string]any{
			"status":      enums.PaymentStatusCaptured,
			"gateway_ref": providerRef,
			"captured_at": &now,
		}); err != nil {
			return err
		}
		if err := repo.TransitionStatus(ctx, order.ID,
			[]enums.OrderStatus{enums.OrderStatusPendingPayment}, enums.OrderStatusPaid); err != nil {
			return err
		}
		_, err := s.commissions.Post(ctx, tx, order)
		return err
	})
	if err != nil {
		return err
	}

	payment.Status = enums.PaymentStatusCaptured
	payment.GatewayRef = providerRef
	payment.CapturedAt = &now
	order.Status = enums.OrderStatusPaid

	s.settlement.IncPaymentAttempt("captured")
	s.tracker.Track(ctx, analytics.EventPaymentOutcome, analytics.PaymentOutcomePayload{
		OrderID:   order.ID,
		PaymentID: payment.ID,
		Outcome:   string(OutcomeCaptured),
		Amount:    payment.Amount,
		Currency:  payment.Currency.String(),
	})
	s.publishEvent(ctx, OrderEvent{
		Event:      EventOrderPaid,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Status:     order.Status.String(),
		Amount:     order.TotalAmount,
		Currency:   order.Currency.String(),
	})
	return nil
}

func (s *Service) outcomeFromPayment(payment *models.Payment) *PaymentOutcome {
	switch payment.Status {
	case enums.PaymentStatusCaptured, enums.PaymentStatusRefunded:
		return &PaymentOutcome{Kind: OutcomeCaptured, Payment: payment}
	case enums.PaymentStatusFailed:
		return &PaymentOutcome{Kind: OutcomeDeclined, Payment: payment, FailureCode: payment.FailureCode}
	default:
		return &PaymentOutcome{Kind: OutcomeRetryable, Payment: payment}
	}
}

var cancellableStatuses = []enums.OrderStatus{
	enums.OrderStatusDraft,
	enums.OrderStatusPendingPayment,
	enums.OrderStatusPaid,
	enums.OrderStatusProcessing,
}

// Cancel stops an order before shipment. Reserved stock is released, and if
// money was captured it is refunded in full through the refund primitive.
func (s *Service) Cancel(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.GetForCustomer(ctx, orderID, customerID)
	if err != nil {
		return nil, err
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.TransitionStatus(ctx, order.ID, cancellableStatuses, enums.OrderStatusCancelled); err != nil {
			return err
		}
		inv := s.inventory.WithTx(tx)
		for _, item := range order.LineItems {
			if err := inv.Release(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	order.Status = enums.OrderStatusCancelled

	// Money back, if any was taken. The order keeps its cancelled status.
	if captured, err := s.repo.CapturedPayment(ctx, order.ID); err == nil {
		remaining := captured.Amount - captured.RefundedAmount
		if remaining > 0 {
			if _, err := s.refund(ctx, order, captured, remaining, "order cancelled", false); err != nil {
				return nil, err
			}
		}
	}

	s.publishEvent(ctx, OrderEvent{
		Event:      EventOrderCancelled,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Status:     order.Status.String(),
		Amount:     order.TotalAmount,
		Currency:   order.Currency.String(),
	})
	return order, nil
}

// RefundInput describes a refund request against a settled order.
type RefundInput struct {
	OrderID uuid.UUID
	Amount  int64
	Reason  string
}

var refundableStatuses = map[enums.OrderStatus]bool{
	enums.OrderStatusPaid:       true,
	enums.OrderStatusProcessing: true,
	enums.OrderStatusShipped:    true,
	enums.OrderStatusDelivered:  true,
	enums.OrderStatusDisputed:   true,
}

// Refund reverses part or all of an order's captured payment. Every refund,
// whatever triggered it, flows through here so commission adjustment and
// order bookkeeping can never be skipped.
func (s *Service) Refund(ctx context.Context, input RefundInput) (*models.Order, error) {
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	order, err := s.repo.Get(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !refundableStatuses[order.Status] {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is %s and cannot be refunded", order.Status))
	}

	payment, err := s.repo.CapturedPayment(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	return s.refund(ctx, order, payment, input.Amount, input.Reason, true)
}

func (s *Service) refund(ctx context.Context, order *models.Order, payment *models.Payment, amount int64, reason string, markRefunded bool) (*models.Order, error) {
	remaining := payment.Amount - payment.RefundedAmount
	if amount > remaining {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("refund %d exceeds remaining captured amount %d", amount, remaining)).
			WithDetails(map[string]any{"remaining": remaining})
	}

	start := time.Now()
	_, err := s.gw.Refund(ctx, gateway.RefundParams{
		ProviderRef:    payment.GatewayRef,
		Amount:         amount,
		Currency:       payment.Currency,
		IdempotencyKey: gateway.NewIdempotencyKey("ref"),
		Reason:         reason,
	})
	s.settlement.ObserveGatewayCall("refund", time.Since(start))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway refund failed")
	}

	fullyRefunded := payment.RefundedAmount+amount >= payment.Amount
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		updates := map[string]any{
			"refunded_amount": gorm.Expr("refunded_amount + ?", amount),
		}
		if fullyRefunded {
			updates["status"] = enums.PaymentStatusRefunded
		}
		if err := repo.UpdatePayment(ctx, payment.ID, updates); err != nil {
			return err
		}
		if err := repo.AddRefund(ctx, order.ID, amount); err != nil {
			return err
		}
		if err := s.commissions.AdjustForRefund(ctx, tx, order, amount); err != nil {
			return err
		}
		if markRefunded && order.RefundAmount+amount >= order.TotalAmount {
			if err := repo.TransitionStatus(ctx, order.ID,
				statusKeys(refundableStatuses), enums.OrderStatusRefunded); err != nil {
				return err
			}
			order.Status = enums.OrderStatusRefunded
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	payment.RefundedAmount += amount
	if fullyRefunded {
		payment.Status = enums.PaymentStatusRefunded
	}
	order.RefundAmount += amount

	s.settlement.IncRefundsPosted()
	s.tracker.Track(ctx, analytics.EventRefundIssued, analytics.RefundIssuedPayload{
		OrderID:  order.ID,
		Amount:   amount,
		Currency: order.Currency.String(),
		Reason:   reason,
	})
	s.publishEvent(ctx, OrderEvent{
		Event:      EventOrderRefunded,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Status:     order.Status.String(),
		Amount:     amount,
		Currency:   order.Currency.String(),
	})
	return order, nil
}

func statusKeys(set map[enums.OrderStatus]bool) []enums.OrderStatus {
	keys := make([]enums.OrderStatus, 0, len(set))
	for status := range set {
		keys = append(keys, status)
	}
	return keys
}

// MarkProcessing moves a paid order into fulfillment.
func (s *Service) MarkProcessing(ctx context.Context, orderID uuid.UUID) error {
	return s.repo.TransitionStatus(ctx, orderID,
		[]enums.OrderStatus{enums.OrderStatusPaid}, enums.OrderStatusProcessing)
}

// MarkShipped burns the reserved stock and announces the shipment.
func (s *Service) MarkShipped(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.TransitionStatus(ctx, orderID,
			[]enums.OrderStatus{enums.OrderStatusProcessing}, enums.OrderStatusShipped); err != nil {
			return err
		}
		inv := s.inventory.WithTx(tx)
		for _, item := range order.LineItems {
			if err := inv.Commit(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publishEvent(ctx, OrderEvent{
		Event:      EventOrderShipped,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Status:     enums.OrderStatusShipped.String(),
		Amount:     order.TotalAmount,
		Currency:   order.Currency.String(),
	})
	return nil
}

// MarkDelivered completes fulfillment.
func (s *Service) MarkDelivered(ctx context.Context, orderID uuid.UUID) error {
	return s.repo.TransitionStatus(ctx, orderID,
		[]enums.OrderStatus{enums.OrderStatusShipped}, enums.OrderStatusDelivered)
}

// Get returns an order scoped to its owner.
func (s *Service) Get(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error) {
	return s.repo.GetForCustomer(ctx, orderID, customerID)
}

// List returns the customer's orders, optionally narrowed to one status.
func (s *Service) List(ctx context.Context, customerID uuid.UUID, status *enums.OrderStatus, params pagination.Params) ([]models.Order, string, error) {
	return s.repo.ListByCustomer(ctx, customerID, status, params)
}

// EnsureCommissions backfills commission postings for a settled order. The
// worker runs it on order.paid events as a second pass behind the capture
// transaction; posting is idempotent, so replays report false and change
// nothing. Returns true when rows were actually written.
func (s *Service) EnsureCommissions(ctx context.Context, orderID uuid.UUID) (bool, error) {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return false, err
	}
	switch order.Status {
	case enums.OrderStatusPaid, enums.OrderStatusProcessing,
		enums.OrderStatusShipped, enums.OrderStatusDelivered:
	default:
		return false, nil
	}

	posted := false
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		result, err := s.commissions.Post(ctx, tx, order)
		if err != nil {
			return err
		}
		posted = !result.AlreadyPosted
		return nil
	})
	if err != nil {
		return false, err
	}
	if posted {
		s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "commissions backfilled")
	}
	return posted, nil
}

// ReconcilePendingPayments settles payments that were interrupted between the
// gateway call and the local settle. It asks the provider for the truth and
// replays the missing half of the flow.
func (s *Service) ReconcilePendingPayments(ctx context.Context, olderThan time.Duration, batchSize int) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	payments, err := s.repo.ListStalePendingPayments(ctx, cutoff, batchSize)
	if err != nil {
		return 0, err
	}

	var errs error
	settled := 0
	for i := range payments {
		payment := payments[i]
		ctx := s.logg.WithOrderID(ctx, payment.OrderID.String())

		didSettle, err := s.reconcilePayment(ctx, &payment)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("payment %s: %w", payment.ID, err))
			continue
		}
		if didSettle {
			settled++
		}
	}

	reportCtx := s.logg.WithFields(ctx, map[string]any{
		"candidates": len(payments),
		"settled":    settled,
	})
	s.logg.Info(reportCtx, "payment reconcile loop complete")
	return settled, errs
}

// reconcilePayment settles one stale payment against the gateway's view.
// Returns true when the order was settled.
func (s *Service) reconcilePayment(ctx context.Context, payment *models.Payment) (bool, error) {
	order, err := s.repo.Get(ctx, payment.OrderID)
	if err != nil {
		return false, fmt.Errorf("loading order: %w", err)
	}
	if order.Status != enums.OrderStatusPendingPayment {
		return false, nil
	}

	// No gateway ref means the authorize call never came back; there is
	// nothing to look up. Past the stale window the attempt is failed and the
	// order stays payable.
	if payment.GatewayRef == "" {
		failureCode := payment.FailureCode
		if failureCode == "" {
			failureCode = string(gateway.ErrProcessingError)
		}
		if err := s.repo.UpdatePayment(ctx, payment.ID, map[string]any{
			"status":         enums.PaymentStatusFailed,
			"failure_code":   failureCode,
			"failure_detail": "authorize returned no gateway ref before the stale window",
		}); err != nil {
			return false, fmt.Errorf("failing refless payment: %w", err)
		}
		return false, nil
	}

	result, err := s.gw.Lookup(ctx, payment.GatewayRef)
	if err != nil {
		if code, ok := gateway.CodeOf(err); ok && code == gateway.ErrNotFound {
			if err := s.repo.UpdatePayment(ctx, payment.ID, map[string]any{
				"status":         enums.PaymentStatusFailed,
				"failure_code":   string(gateway.ErrNotFound),
				"failure_detail": "payment unknown to gateway",
			}); err != nil {
				return false, fmt.Errorf("failing orphan payment: %w", err)
			}
			return false, nil
		}
		return false, fmt.Errorf("gateway lookup: %w", err)
	}

	switch result.Status {
	case gateway.StatusCaptured:
		if err := s.settle(ctx, order, payment, result.ProviderRef); err != nil {
			return false, fmt.Errorf("settling payment: %w", err)
		}
		return true, nil
	case gateway.StatusAuthorized:
		if _, err := s.gw.Capture(ctx, gateway.CaptureParams{
			ProviderRef:    payment.GatewayRef,
			IdempotencyKey: gateway.NewIdempotencyKey("cap"),
		}); err != nil {
			return false, fmt.Errorf("capturing payment: %w", err)
		}
		if err := s.settle(ctx, order, payment, result.ProviderRef); err != nil {
			return false, fmt.Errorf("settling captured payment: %w", err)
		}
		return true, nil
	case gateway.StatusFailed:
		if err := s.repo.UpdatePayment(ctx, payment.ID, map[string]any{
			"status":       enums.PaymentStatusFailed,
			"failure_code": string(gateway.ErrDeclined),
		}); err != nil {
			return false, fmt.Errorf("failing payment: %w", err)
		}
	}
	return false, nil
}
