package checkout

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athathco/athath-backend/internal/analytics"
	"github.com/athathco/athath-backend/internal/cart"
	"github.com/athathco/athath-backend/internal/inventory"
	"github.com/athathco/athath-backend/internal/orders"
	"github.com/athathco/athath-backend/pkg/config"
	"github.com/athathco/athath-backend/pkg/db"
	"github.com/athathco/athath-backend/pkg/db/models"
	"github.com/athathco/athath-backend/pkg/enums"
	pkgerrors "github.com/athathco/athath-backend/pkg/errors"
	"github.com/athathco/athath-backend/pkg/logger"
)

func newTestClient(t *testing.T) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	client, err := db.New(context.Background(), config.DBConfig{DSN: dsn, Driver: "sqlite"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.DB().AutoMigrate(
		&models.Retailer{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderLineItem{},
		&models.Payment{},
	))
	return client
}

func newTestService(t *testing.T, client *db.Client) *Service {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "checkout-test"})
	return NewService(
		client,
		cart.NewRepo(client.DB()),
		orders.NewRepo(client.DB()),
		inventory.NewRepo(client.DB()),
		analytics.NewTracker(nil, logg),
		DeliveryPolicy{FlatFee: 5000, FreeThreshold: 50000},
		nil,
		logg,
	)
}

func seedProduct(t *testing.T, client *db.Client, price, available int64) *models.Product {
	t.Helper()

	product := &models.Product{
		RetailerID:   uuid.New(),
		Name:         "Oud Side Table",
		SKU:          "SKU-" + uuid.NewString(),
		PriceAmount:  price,
		Currency:     enums.CurrencyAED,
		Status:       enums.ProductStatusActive,
		AvailableQty: available,
	}
	require.NoError(t, client.DB().Create(product).Error)
	return product
}

func seedCart(t *testing.T, client *db.Client, customerID uuid.UUID, items map[uuid.UUID]int64) *models.Cart {
	t.Helper()

	activeCart := &models.Cart{CustomerID: customerID, Status: enums.CartStatusActive}
	require.NoError(t, client.DB().Create(activeCart).Error)
	for productID, qty := range items {
		require.NoError(t, client.DB().Create(&models.CartItem{
			CartID:    activeCart.ID,
			ProductID: productID,
			Quantity:  qty,
		}).Error)
	}
	return activeCart
}

func checkoutInput(customerID uuid.UUID) CreateOrderInput {
	return CreateOrderInput{
		CustomerID:      customerID,
		ShippingAddress: "Villa 12, Al Wasl Road, Dubai",
	}
}

func TestCreateOrderChargesDelivery(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	svc := newTestService(t, client)
	customerID := uuid.New()
	product := seedProduct(t, client, 16000, 10)
	seedCart(t, client, customerID, map[uuid.UUID]int64{product.ID: 3})

	order, err := svc.CreateOrder(context.Background(), checkoutInput(customerID))
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPendingPayment, order.Status)
	assert.Equal(t, int64(48000), order.ItemsAmount)
	assert.Equal(t, int64(5000), order.DeliveryFee)
	assert.Equal(t, int64(53000), order.TotalAmount)
	require.Len(t, order.LineItems, 1)
	assert.Equal(t, int64(16000), order.LineItems[0].UnitPrice)
	assert.Equal(t, int64(48000), order.LineItems[0].Subtotal)

	// Stock moved to reserved.
	var got models.Product
	require.NoError(t, client.DB().First(&got, "id = ?", product.ID).Error)
	assert.Equal(t, int64(7), got.AvailableQty)
	assert.Equal(t, int64(3), got.ReservedQty)
}

func TestCreateOrderFreeDelivery(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	svc := newTestService(t, client)
	customerID := uuid.New()
	product := seedProduct(t, client, 25000, 5)
	seedCart(t, client, customerID, map[uuid.UUID]int64{product.ID: 2})

	order, err := svc.CreateOrder(context.Background(), checkoutInput(customerID))
	require.NoError(t, err)

	assert.Equal(t, int64(50000), order.ItemsAmount)
	assert.Equal(t, int64(0), order.DeliveryFee)
	assert.Equal(t, int64(50000), order.TotalAmount)
}

func TestCreateOrderSnapshotsShippingDetails(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	svc := newTestService(t, client)
	customerID := uuid.New()
	product := seedProduct(t, client, 16000, 10)
	seedCart(t, client, customerID, map[uuid.UUID]int64{product.ID: 1})

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:      customerID,
		ShippingAddress: "  Apartment 804, Marina Gate, Dubai  ",
		Notes:           "leave with concierge",
	})
	require.NoError(t, err)
	assert.Equal(t, "Apartment 804, Marina Gate, Dubai", order.ShippingAddress)
	assert.Equal(t, "leave with concierge", order.Notes)

	var stored models.Order
	require.NoError(t, client.DB().First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, "Apartment 804, Marina Gate, Dubai", stored.ShippingAddress)
	assert.Equal(t, "leave with concierge", stored.Notes)
}

func TestCreateOrderRequiresShippingAddress(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	svc := newTestService(t, client)
	customerID := uuid.New()
	product := seedProduct(t, client, 16000, 10)
	seedCart(t, client, customerID, map[uuid.UUID]int64{product.ID: 1})

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:      customerID,
		ShippingAddress: "   ",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCreateOrderEmptyCart(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	svc := newTestService(t, client)
	customerID := uuid.New()
	seedCart(t, client, customerID, nil)

	_, err := svc.CreateOrder(context.Background(), checkoutInput(customerID))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeEmptyCart, typed.Code())
}

func TestCreateOrderInsufficientStockRollsBack(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	svc := newTestService(t, client)
	customerID := uuid.New()
	plentiful := seedProduct(t, client, 10000, 10)
	scarce := seedProduct(t, client, 10000, 1)
	seedCart(t, client, customerID, map[uuid.UUID]int64{
		plentiful.ID: 2,
		scarce.ID:    5,
	})

	_, err := svc.CreateOrder(context.Background(), checkoutInput(customerID))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	// Nothing was reserved, no order exists, and the cart is still active.
	var got models.Product
	require.NoError(t, client.DB().First(&got, "id = ?", plentiful.ID).Error)
	assert.Equal(t, int64(10), got.AvailableQty)
	assert.Equal(t, int64(0), got.ReservedQty)

	var orderCount int64
	require.NoError(t, client.DB().Model(&models.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(0), orderCount)

	var activeCart models.Cart
	require.NoError(t, client.DB().First(&activeCart, "customer_id = ?", customerID).Error)
	assert.Equal(t, enums.CartStatusActive, activeCart.Status)
}

func TestCartIsSingleUse(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	svc := newTestService(t, client)
	customerID := uuid.New()
	product := seedProduct(t, client, 10000, 10)
	seedCart(t, client, customerID, map[uuid.UUID]int64{product.ID: 1})

	_, err := svc.CreateOrder(context.Background(), checkoutInput(customerID))
	require.NoError(t, err)

	// The cart converted; there is no active cart left to check out.
	_, err = svc.CreateOrder(context.Background(), checkoutInput(customerID))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestDeliveryPolicyFee(t *testing.T) {
	t.Parallel()

	policy := DeliveryPolicy{FlatFee: 5000, FreeThreshold: 50000}
	assert.Equal(t, int64(5000), policy.Fee(0))
	assert.Equal(t, int64(5000), policy.Fee(49999))
	assert.Equal(t, int64(0), policy.Fee(50000))
	assert.Equal(t, int64(0), policy.Fee(120000))

	noThreshold := DeliveryPolicy{FlatFee: 5000}
	assert.Equal(t, int64(5000), noThreshold.Fee(1000000))
}
