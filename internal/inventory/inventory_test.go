package inventory

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/athathco/athath-backend/pkg/db/models"
	"github.com/athathco/athath-backend/pkg/enums"
	pkgerrors "github.com/athathco/athath-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Retailer{}, &models.Product{}))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, available int64, status enums.ProductStatus) *models.Product {
	t.Helper()

	product := &models.Product{
		RetailerID:   uuid.New(),
		Name:         "Walnut Coffee Table",
		SKU:          "SKU-" + uuid.NewString(),
		PriceAmount:  12000,
		Currency:     enums.CurrencyAED,
		Status:       status,
		AvailableQty: available,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func loadProduct(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Product {
	t.Helper()

	var product models.Product
	require.NoError(t, db.First(&product, "id = ?", id).Error)
	return &product
}

func TestReserveMovesStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepo(db)
	product := seedProduct(t, db, 5, enums.ProductStatusActive)

	require.NoError(t, repo.Reserve(context.Background(), product.ID, 3))

	got := loadProduct(t, db, product.ID)
	assert.Equal(t, int64(2), got.AvailableQty)
	assert.Equal(t, int64(3), got.ReservedQty)
}

func TestReserveInsufficientStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepo(db)
	product := seedProduct(t, db, 2, enums.ProductStatusActive)

	err := repo.Reserve(context.Background(), product.ID, 3)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	// Nothing moved.
	got := loadProduct(t, db, product.ID)
	assert.Equal(t, int64(2), got.AvailableQty)
	assert.Equal(t, int64(0), got.ReservedQty)
}

func TestReserveInactiveProduct(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepo(db)
	product := seedProduct(t, db, 10, enums.ProductStatusArchived)

	err := repo.Reserve(context.Background(), product.ID, 1)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeProductUnavailable, typed.Code())
}

func TestReserveUnknownProduct(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepo(db)

	err := repo.Reserve(context.Background(), uuid.New(), 1)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestReserveRejectsNonPositiveQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepo(db)
	product := seedProduct(t, db, 5, enums.ProductStatusActive)

	for _, qty := range []int64{0, -1} {
		err := repo.Reserve(context.Background(), product.ID, qty)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed, "qty %d", qty)
		assert.Equal(t, pkgerrors.CodeValidation, typed.Code(), "qty %d", qty)
	}
}

func TestReleaseReturnsStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepo(db)
	product := seedProduct(t, db, 5, enums.ProductStatusActive)
	require.NoError(t, repo.Reserve(context.Background(), product.ID, 4))

	require.NoError(t, repo.Release(context.Background(), product.ID, 4))

	got := loadProduct(t, db, product.ID)
	assert.Equal(t, int64(5), got.AvailableQty)
	assert.Equal(t, int64(0), got.ReservedQty)
}

func TestReleaseMoreThanReserved(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepo(db)
	product := seedProduct(t, db, 5, enums.ProductStatusActive)
	require.NoError(t, repo.Reserve(context.Background(), product.ID, 2))

	err := repo.Release(context.Background(), product.ID, 3)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestCommitBurnsReserved(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	repo := NewRepo(db)
	product := seedProduct(t, db, 5, enums.ProductStatusActive)
	require.NoError(t, repo.Reserve(context.Background(), product.ID, 3))

	require.NoError(t, repo.Commit(context.Background(), product.ID, 3))

	got := loadProduct(t, db, product.ID)
	assert.Equal(t, int64(2), got.AvailableQty)
	assert.Equal(t, int64(0), got.ReservedQty)

	err := repo.Commit(context.Background(), product.ID, 1)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}
