package orders

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athathco/athath-backend/internal/analytics"
	"github.com/athathco/athath-backend/internal/commission"
	"github.com/athathco/athath-backend/internal/inventory"
	"github.com/athathco/athath-backend/pkg/config"
	"github.com/athathco/athath-backend/pkg/db"
	"github.com/athathco/athath-backend/pkg/db/models"
	"github.com/athathco/athath-backend/pkg/enums"
	pkgerrors "github.com/athathco/athath-backend/pkg/errors"
	"github.com/athathco/athath-backend/pkg/gateway"
	"github.com/athathco/athath-backend/pkg/logger"
	"github.com/athathco/athath-backend/pkg/pagination"
)

type testEnv struct {
	client      *db.Client
	svc         *Service
	repo        *Repo
	commissions *commission.Service
	sim         *gateway.Simulator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	client, err := db.New(context.Background(), config.DBConfig{DSN: dsn, Driver: "sqlite"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.DB().AutoMigrate(
		&models.Retailer{},
		&models.Product{},
		&models.Order{},
		&models.OrderLineItem{},
		&models.Payment{},
		&models.Commission{},
		&models.LedgerEntry{},
	))

	logg := logger.New(logger.Options{ServiceName: "orders-test"})
	repo := NewRepo(client.DB())
	commissions := commission.NewService(commission.NewRepo(client.DB()), logg, 1200)
	sim := gateway.NewSimulator()
	svc := NewService(
		client,
		repo,
		inventory.NewRepo(client.DB()),
		commissions,
		sim,
		analytics.NewTracker(nil, logg),
		nil,
		nil,
		logg,
	)
	return &testEnv{client: client, svc: svc, repo: repo, commissions: commissions, sim: sim}
}

func seedRetailer(t *testing.T, env *testEnv) *models.Retailer {
	t.Helper()

	retailer := &models.Retailer{
		Name:              "Dune Living",
		Email:             uuid.NewString() + "@retailer.test",
		CommissionRateBps: 1200,
		Active:            true,
	}
	require.NoError(t, env.client.DB().Create(retailer).Error)
	return retailer
}

func seedReservedProduct(t *testing.T, env *testEnv, retailerID uuid.UUID, reserved int64) *models.Product {
	t.Helper()

	product := &models.Product{
		RetailerID:   retailerID,
		Name:         "Camel Leather Ottoman",
		SKU:          "SKU-" + uuid.NewString(),
		PriceAmount:  20000,
		Currency:     enums.CurrencyAED,
		Status:       enums.ProductStatusActive,
		AvailableQty: 10,
		ReservedQty:  reserved,
	}
	require.NoError(t, env.client.DB().Create(product).Error)
	return product
}

// seedPendingOrder creates a pending-payment order with one line and the
// matching stock reservation, as checkout would have left it.
func seedPendingOrder(t *testing.T, env *testEnv, retailerID uuid.UUID, qty int64) *models.Order {
	t.Helper()

	product := seedReservedProduct(t, env, retailerID, qty)
	total := product.PriceAmount * qty
	order := &models.Order{
		CustomerID:  uuid.New(),
		CartID:      uuid.New(),
		Status:      enums.OrderStatusPendingPayment,
		Currency:    enums.CurrencyAED,
		ItemsAmount: total,
		TotalAmount: total,
		LineItems: []models.OrderLineItem{{
			ProductID:  product.ID,
			RetailerID: retailerID,
			Name:       product.Name,
			SKU:        product.SKU,
			UnitPrice:  product.PriceAmount,
			Quantity:   qty,
			Subtotal:   total,
		}},
	}
	require.NoError(t, env.client.DB().Create(order).Error)
	return order
}

func payOrder(t *testing.T, env *testEnv, order *models.Order) *PaymentOutcome {
	t.Helper()

	outcome, err := env.svc.ProcessPayment(context.Background(), ProcessPaymentInput{
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		SourceToken: "cnon:card-ok",
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeCaptured, outcome.Kind)
	return outcome
}

func loadOrder(t *testing.T, env *testEnv, id uuid.UUID) *models.Order {
	t.Helper()

	var order models.Order
	require.NoError(t, env.client.DB().First(&order, "id = ?", id).Error)
	return &order
}

func loadPayment(t *testing.T, env *testEnv, id uuid.UUID) *models.Payment {
	t.Helper()

	var payment models.Payment
	require.NoError(t, env.client.DB().First(&payment, "id = ?", id).Error)
	return &payment
}

func TestProcessPaymentCaptured(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	retailer := seedRetailer(t, env)
	order := seedPendingOrder(t, env, retailer.ID, 2)

	outcome := payOrder(t, env, order)

	payment := loadPayment(t, env, outcome.Payment.ID)
	assert.Equal(t, enums.PaymentStatusCaptured, payment.Status)
	assert.NotEmpty(t, payment.GatewayRef)
	assert.NotNil(t, payment.CapturedAt)

	assert.Equal(t, enums.OrderStatusPaid, loadOrder(t, env, order.ID).Status)

	// Commission settled in the same transaction: 40000 * 1200 / 10000.
	balance, err := env.commissions.Balance(context.Background(), retailer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4800), balance)
}

func TestProcessPaymentDeclined(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	retailer := seedRetailer(t, env)
	order := seedPendingOrder(t, env, retailer.ID, 1)

	outcome, err := env.svc.ProcessPayment(context.Background(), ProcessPaymentInput{
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		SourceToken: "tok_declined",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeclined, outcome.Kind)
	assert.Equal(t, string(gateway.ErrDeclined), outcome.FailureCode)

	payment := loadPayment(t, env, outcome.Payment.ID)
	assert.Equal(t, enums.PaymentStatusFailed, payment.Status)

	// A decline leaves the order payable.
	assert.Equal(t, enums.OrderStatusPendingPayment, loadOrder(t, env, order.ID).Status)
	payOrder(t, env, order)
	assert.Equal(t, enums.OrderStatusPaid, loadOrder(t, env, order.ID).Status)
}

func TestProcessPaymentRetryable(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	retailer := seedRetailer(t, env)
	order := seedPendingOrder(t, env, retailer.ID, 1)

	outcome, err := env.svc.ProcessPayment(context.Background(), ProcessPaymentInput{
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		SourceToken: "tok_network_error",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeRetryable, outcome.Kind)

	// The attempt stays pending for reconciliation, not failed, but the
	// failure code is recorded so reconciliation knows what happened.
	payment := loadPayment(t, env, outcome.Payment.ID)
	assert.Equal(t, enums.PaymentStatusPending, payment.Status)
	assert.Equal(t, string(gateway.ErrNetworkError), payment.FailureCode)
	assert.Equal(t, enums.OrderStatusPendingPayment, loadOrder(t, env, order.ID).Status)
}

func TestProcessPaymentIdempotentReplay(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	retailer := seedRetailer(t, env)
	order := seedPendingOrder(t, env, retailer.ID, 1)
	key := gateway.NewIdempotencyKey("pay")

	first, err := env.svc.ProcessPayment(context.Background(), ProcessPaymentInput{
		OrderID:        order.ID,
		CustomerID:     order.CustomerID,
		SourceToken:    "cnon:card-ok",
		IdempotencyKey: key,
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeCaptured, first.Kind)

	// A retry with the same key returns the recorded outcome. The order is
	// already paid, so this must short-circuit before the state check.
	second, err := env.svc.ProcessPayment(context.Background(), ProcessPaymentInput{
		OrderID:        order.ID,
		CustomerID:     order.CustomerID,
		SourceToken:    "cnon:card-ok",
		IdempotencyKey: key,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCaptured, second.Kind)
	assert.Equal(t, first.Payment.ID, second.Payment.ID)

	var count int64
	require.NoError(t, env.client.DB().Model(&models.Payment{}).
		Where("order_id = ?", order.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestProcessPaymentWrongState(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	retailer := seedRetailer(t, env)
	order := seedPendingOrder(t, env, retailer.ID, 1)
	payOrder(t, env, order)

	_, err := env.svc.ProcessPayment(context.Background(), ProcessPaymentInput{
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		SourceToken: "cnon:card-ok",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestProcessPaymentRequiresToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	_, err := env.svc.ProcessPayment(context.Background(), ProcessPaymentInput{
		OrderID:    uuid.New(),
		CustomerID: uuid.New(),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCancelReleasesStock(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	retailer := seedRetailer(t, env)
	order := seedPendingOrder(t, env, retailer.ID, 3)

	cancelled, err := env.svc.Cancel(context.Background(), order.ID, order.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)

	var product models.Product
	require.NoError(t, env.client.DB().First(&product, "id = ?", order.LineItems[0].ProductID).Error)
	assert.Equal(t, int64(13), product.AvailableQty)
	assert.Equal(t, int64(0), product.ReservedQty)
}

func TestCancelPaidOrderRefunds(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	retailer := seedRetailer(t, env)
	order := seedPendingOrder(t, env, retailer.ID, 1)
	outcome := payOrder(t, env, order)

	cancelled, err := env.svc.Cancel(context.Background(), order.ID, order.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)

	payment := loadPayment(t, env, outcome.Payment.ID)
	assert.Equal(t, enums.PaymentStatusRefunded, payment.Status)
	assert.Equal(t, payment.Amount, payment.RefundedAmount)

	// The commission posted at settle is fully reversed.
	balance, err := env.commissions.Balance(context.Background(), retailer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	// Cancelled, not refunded: cancellation is the terminal status here.
	assert.Equal(t, enums.OrderStatusCancelled, loadOrder(t, env, order.ID).Status)
}

func TestCancelShippedOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	retailer := seedRetailer(t, env)
	order := seedPendingOrder(t, env, retailer.ID, 1)
	payOrder(t, env, order)
	require.NoError(t, env.svc.MarkProcessing(context.Background(), order.ID))
	require.NoError(t, env.svc.MarkShipped(context.Background(), order.ID))

	_, err := env.svc.Cancel(context.Background(), order.ID, order.CustomerID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestRefundPartialThenFull(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	retailer := seedRetailer(t, env)
	order := seedPendingOrder(t, env, retailer.ID, 2) // 40000 total
	outcome := payOrder(t, env, order)

	partial, err := env.svc.Refund(context.Background(), RefundInput{
		OrderID: order.ID,
		Amount:  15000,
		Reason:  "scratched surface",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, partial.Status)
	assert.Equal(t, int64(15000), partial.RefundAmount)

	full, err := env.svc.Refund(context.Background(), RefundInput{
		OrderID: order.ID,
		Amount:  25000,
		Reason:  "customer returned item",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusRefunded, full.Status)

	payment := loadPayment(t, env, outcome.Payment.ID)
	assert.Equal(t, enums.PaymentStatusRefunded, payment.Status)
	assert.Equal(t, int64(40000), payment.RefundedAmount)

	balance, err := env.commissions.Balance(context.Background(), retailer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestRefundExceedsRemaining(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	retailer := seedRetailer(t, env)
	order := seedPendingOrder(t, env, retailer.ID, 1) // 20000 total
	payOrder(t, env, order)

	_, err := env.svc.Refund(context.Background(), RefundInput{
		OrderID: order.ID,
		Amount:  20001,
		Reason:  "too much",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestRefundUnpaidOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	retailer := seedRetailer(t, env)
	order := seedPendingOrder(t, env, retailer.ID, 1)

	_, err := env.svc.Refund(context.Background(), RefundInput{
		OrderID: order.ID,
		Amount:  100,
		Reason:  "nothing captured",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestFulfillmentCommitsStock(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	retailer := seedRetailer(t, env)
	order := seedPendingOrder(t, env, retailer.ID, 2)
	payOrder(t, env, order)

	require.NoError(t, env.svc.MarkProcessing(context.Background(), order.ID))
	require.NoError(t, env.svc.MarkShipped(context.Background(), order.ID))

	var product models.Product
	require.NoError(t, env.client.DB().First(&product, "id = ?", order.LineItems[0].ProductID).Error)
	assert.Equal(t, int64(10), product.AvailableQty)
	assert.Equal(t, int64(0), product.ReservedQty)

	require.NoError(t, env.svc.MarkDelivered(context.Background(), order.ID))
	assert.Equal(t, enums.OrderStatusDelivered, loadOrder(t, env, order.ID).Status)
}

func TestListFiltersByStatus(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	retailer := seedRetailer(t, env)
	paid := seedPendingOrder(t, env, retailer.ID, 1)
	pending := seedPendingOrder(t, env, retailer.ID, 1)

	// Same customer owns both orders.
	require.NoError(t, env.client.DB().Model(&models.Order{}).
		Where("id = ?", pending.ID).
		Update("customer_id", paid.CustomerID).Error)
	payOrder(t, env, paid)

	all, _, err := env.svc.List(context.Background(), paid.CustomerID, nil, pagination.Params{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, order := range all {
		assert.NotEmpty(t, order.Reference)
		assert.True(t, strings.HasPrefix(order.Reference, "ATH-"), order.Reference)
	}

	status := enums.OrderStatusPendingPayment
	filtered, _, err := env.svc.List(context.Background(), paid.CustomerID, &status, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, pending.ID, filtered[0].ID)
}

func TestReconcileSettlesInterruptedPayment(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	retailer := seedRetailer(t, env)
	order := seedPendingOrder(t, env, retailer.ID, 1)

	// The provider captured the charge, but the process died before the local
	// settle. All that's left behind is a stale pending payment with a ref.
	result, err := env.sim.AuthorizePayment(context.Background(), gateway.AuthorizeParams{
		OrderID:        order.ID,
		CustomerID:     order.CustomerID,
		SourceToken:    "cnon:card-ok",
		Amount:         order.TotalAmount,
		Currency:       order.Currency,
		IdempotencyKey: gateway.NewIdempotencyKey("pay"),
		AutoCapture:    true,
	})
	require.NoError(t, err)

	stale := &models.Payment{
		OrderID:        order.ID,
		Status:         enums.PaymentStatusPending,
		Method:         enums.PaymentMethodCard,
		Amount:         order.TotalAmount,
		Currency:       order.Currency,
		GatewayRef:     result.ProviderRef,
		IdempotencyKey: gateway.NewIdempotencyKey("pay"),
		CreatedAt:      time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, env.client.DB().Create(stale).Error)

	settled, err := env.svc.ReconcilePendingPayments(context.Background(), 10*time.Minute, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)

	assert.Equal(t, enums.OrderStatusPaid, loadOrder(t, env, order.ID).Status)
	assert.Equal(t, enums.PaymentStatusCaptured, loadPayment(t, env, stale.ID).Status)

	balance, err := env.commissions.Balance(context.Background(), retailer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2400), balance)
}

func TestReconcileFailsOrphanPayment(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	retailer := seedRetailer(t, env)
	order := seedPendingOrder(t, env, retailer.ID, 1)

	orphan := &models.Payment{
		OrderID:        order.ID,
		Status:         enums.PaymentStatusPending,
		Method:         enums.PaymentMethodCard,
		Amount:         order.TotalAmount,
		Currency:       order.Currency,
		GatewayRef:     "sim_missing",
		IdempotencyKey: gateway.NewIdempotencyKey("pay"),
		CreatedAt:      time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, env.client.DB().Create(orphan).Error)

	settled, err := env.svc.ReconcilePendingPayments(context.Background(), 10*time.Minute, 50)
	require.NoError(t, err)
	assert.Equal(t, 0, settled)

	got := loadPayment(t, env, orphan.ID)
	assert.Equal(t, enums.PaymentStatusFailed, got.Status)
	assert.Equal(t, string(gateway.ErrNotFound), got.FailureCode)

	// The order remains payable once the orphan is put down.
	assert.Equal(t, enums.OrderStatusPendingPayment, loadOrder(t, env, order.ID).Status)
}

func TestReconcileFailsPaymentWithoutGatewayRef(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	retailer := seedRetailer(t, env)
	order := seedPendingOrder(t, env, retailer.ID, 1)

	outcome, err := env.svc.ProcessPayment(context.Background(), ProcessPaymentInput{
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		SourceToken: "tok_network_error",
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeRetryable, outcome.Kind)
	require.Empty(t, loadPayment(t, env, outcome.Payment.ID).GatewayRef)

	// Age the attempt past the stale window.
	require.NoError(t, env.client.DB().Model(&models.Payment{}).
		Where("id = ?", outcome.Payment.ID).
		Update("created_at", time.Now().UTC().Add(-time.Hour)).Error)

	settled, err := env.svc.ReconcilePendingPayments(context.Background(), 10*time.Minute, 50)
	require.NoError(t, err)
	assert.Equal(t, 0, settled)

	// With no ref to look up, the attempt is failed and the order stays
	// payable instead of lingering pending forever.
	got := loadPayment(t, env, outcome.Payment.ID)
	assert.Equal(t, enums.PaymentStatusFailed, got.Status)
	assert.Equal(t, string(gateway.ErrNetworkError), got.FailureCode)
	assert.Equal(t, enums.OrderStatusPendingPayment, loadOrder(t, env, order.ID).Status)
}

func TestCancelDraftOrder(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	retailer := seedRetailer(t, env)
	order := seedPendingOrder(t, env, retailer.ID, 1)
	require.NoError(t, env.client.DB().Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("status", enums.OrderStatusDraft).Error)

	cancelled, err := env.svc.Cancel(context.Background(), order.ID, order.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)

	var product models.Product
	require.NoError(t, env.client.DB().First(&product, "id = ?", order.LineItems[0].ProductID).Error)
	assert.Equal(t, int64(11), product.AvailableQty)
	assert.Equal(t, int64(0), product.ReservedQty)
}

func TestEnsureCommissionsBackfills(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	retailer := seedRetailer(t, env)
	order := seedPendingOrder(t, env, retailer.ID, 1)

	// Not yet settled: nothing to post.
	posted, err := env.svc.EnsureCommissions(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, posted)

	// A paid order with no commission rows gets them backfilled once.
	require.NoError(t, env.client.DB().Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("status", enums.OrderStatusPaid).Error)

	posted, err = env.svc.EnsureCommissions(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, posted)

	balance, err := env.commissions.Balance(context.Background(), retailer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2400), balance)

	posted, err = env.svc.EnsureCommissions(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, posted)
}
