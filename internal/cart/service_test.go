package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athathco/athath-backend/internal/catalog"
	"github.com/athathco/athath-backend/pkg/config"
	"github.com/athathco/athath-backend/pkg/db"
	"github.com/athathco/athath-backend/pkg/db/models"
	"github.com/athathco/athath-backend/pkg/enums"
	pkgerrors "github.com/athathco/athath-backend/pkg/errors"
	"github.com/athathco/athath-backend/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *db.Client) {
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
	))

	logg := logger.New(logger.Options{ServiceName: "cart-test"})
	svc := NewService(client, NewRepo(client.DB()), catalog.NewRepo(client.DB()), logg)
	return svc, client
}

func seedProduct(t *testing.T, client *db.Client, status enums.ProductStatus) *models.Product {
	t.Helper()

	product := &models.Product{
		RetailerID:   uuid.New(),
		Name:         "Cedar Wardrobe",
		SKU:          "SKU-" + uuid.NewString(),
		PriceAmount:  89000,
		Currency:     enums.CurrencyAED,
		Status:       status,
		AvailableQty: 4,
	}
	require.NoError(t, client.DB().Create(product).Error)
	return product
}

func TestGetOrCreateReturnsSameCart(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	customerID := uuid.New()

	first, err := svc.GetOrCreate(context.Background(), customerID)
	require.NoError(t, err)
	assert.Equal(t, enums.CartStatusActive, first.Status)

	second, err := svc.GetOrCreate(context.Background(), customerID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestSetItemAddsAndUpdates(t *testing.T) {
	t.Parallel()

	svc, client := newTestService(t)
	customerID := uuid.New()
	product := seedProduct(t, client, enums.ProductStatusActive)

	updated, err := svc.SetItem(context.Background(), customerID, product.ID, 2)
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, int64(2), updated.Items[0].Quantity)

	// Setting again replaces the quantity rather than adding to it.
	updated, err = svc.SetItem(context.Background(), customerID, product.ID, 5)
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, int64(5), updated.Items[0].Quantity)
}

func TestSetItemZeroRemovesLine(t *testing.T) {
	t.Parallel()

	svc, client := newTestService(t)
	customerID := uuid.New()
	product := seedProduct(t, client, enums.ProductStatusActive)

	_, err := svc.SetItem(context.Background(), customerID, product.ID, 3)
	require.NoError(t, err)

	updated, err := svc.SetItem(context.Background(), customerID, product.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, updated.Items)
}

func TestSetItemNegativeQuantity(t *testing.T) {
	t.Parallel()

	svc, client := newTestService(t)
	product := seedProduct(t, client, enums.ProductStatusActive)

	_, err := svc.SetItem(context.Background(), uuid.New(), product.ID, -1)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestSetItemInactiveProduct(t *testing.T) {
	t.Parallel()

	svc, client := newTestService(t)
	product := seedProduct(t, client, enums.ProductStatusArchived)

	_, err := svc.SetItem(context.Background(), uuid.New(), product.ID, 1)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeProductUnavailable, typed.Code())
}

func TestSetItemUnknownProduct(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	_, err := svc.SetItem(context.Background(), uuid.New(), uuid.New(), 1)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestClearEmptiesCart(t *testing.T) {
	t.Parallel()

	svc, client := newTestService(t)
	customerID := uuid.New()
	first := seedProduct(t, client, enums.ProductStatusActive)
	second := seedProduct(t, client, enums.ProductStatusActive)

	_, err := svc.SetItem(context.Background(), customerID, first.ID, 2)
	require.NoError(t, err)
	loaded, err := svc.SetItem(context.Background(), customerID, second.ID, 1)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 2)

	cleared, err := svc.Clear(context.Background(), customerID)
	require.NoError(t, err)
	assert.Equal(t, loaded.ID, cleared.ID)
	assert.Empty(t, cleared.Items)
	assert.Equal(t, enums.CartStatusActive, cleared.Status)

	// Clearing an already-empty cart is a quiet no-op.
	again, err := svc.Clear(context.Background(), customerID)
	require.NoError(t, err)
	assert.Empty(t, again.Items)
}
