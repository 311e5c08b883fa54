package commission

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
	"github.com/athathco/athath-backend/pkg/logger"
	"github.com/athathco/athath-backend/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Retailer{},
		&models.Order{},
		&models.OrderLineItem{},
		&models.Commission{},
		&models.LedgerEntry{},
	))
	return db
}

func newTestService(db *gorm.DB) *Service {
	logg := logger.New(logger.Options{ServiceName: "commission-test"})
	return NewService(NewRepo(db), logg, 1200)
}

func seedRetailer(t *testing.T, db *gorm.DB, rateBps int64) *models.Retailer {
	t.Helper()

	retailer := &models.Retailer{
		Name:              "Majlis Furnishings",
		Email:             uuid.NewString() + "@retailer.test",
		CommissionRateBps: rateBps,
		Active:            true,
	}
	require.NoError(t, db.Create(retailer).Error)
	return retailer
}

func seedOrder(t *testing.T, db *gorm.DB, total int64, lines []models.OrderLineItem) *models.Order {
	t.Helper()

	order := &models.Order{
		CustomerID:  uuid.New(),
		CartID:      uuid.New(),
		Status:      enums.OrderStatusPaid,
		Currency:    enums.CurrencyAED,
		ItemsAmount: total,
		TotalAmount: total,
		LineItems:   lines,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestPostFloorsPerRetailer(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(db)
	retailerA := seedRetailer(t, db, 500)
	retailerB := seedRetailer(t, db, 1200)

	// 10001 * 500 / 10000 = 500.05 floors to 500.
	order := seedOrder(t, db, 10001+20000, []models.OrderLineItem{
		{ProductID: uuid.New(), RetailerID: retailerA.ID, Name: "Oak Shelf", SKU: "A-1", UnitPrice: 10001, Quantity: 1, Subtotal: 10001},
		{ProductID: uuid.New(), RetailerID: retailerB.ID, Name: "Velvet Sofa", SKU: "B-1", UnitPrice: 10000, Quantity: 2, Subtotal: 20000},
	})

	result, err := svc.Post(context.Background(), db, order)
	require.NoError(t, err)
	assert.False(t, result.AlreadyPosted)
	require.Len(t, result.Posted, 2)

	byRetailer := map[uuid.UUID]models.Commission{}
	for _, c := range result.Posted {
		byRetailer[c.RetailerID] = c
	}
	assert.Equal(t, int64(500), byRetailer[retailerA.ID].Amount)
	assert.Equal(t, int64(500), byRetailer[retailerA.ID].RateBps)
	assert.Equal(t, int64(9501), byRetailer[retailerA.ID].NetAmount)
	assert.Equal(t, int64(2400), byRetailer[retailerB.ID].Amount)
	assert.Equal(t, int64(17600), byRetailer[retailerB.ID].NetAmount)

	var entries []models.LedgerEntry
	require.NoError(t, db.Find(&entries, "order_id = ?", order.ID).Error)
	assert.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, enums.LedgerEntryTypeCommission, entry.EntryType)
	}
}

func TestPostDefaultRateForUnknownRetailer(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(db)

	// No retailer row at all: the configured default applies.
	ghost := uuid.New()
	order := seedOrder(t, db, 10000, []models.OrderLineItem{
		{ProductID: uuid.New(), RetailerID: ghost, Name: "Teak Bench", SKU: "G-1", UnitPrice: 10000, Quantity: 1, Subtotal: 10000},
	})

	result, err := svc.Post(context.Background(), db, order)
	require.NoError(t, err)
	require.Len(t, result.Posted, 1)
	assert.Equal(t, int64(1200), result.Posted[0].RateBps)
	assert.Equal(t, int64(1200), result.Posted[0].Amount)
}

func TestPostIsIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(db)
	retailer := seedRetailer(t, db, 1200)
	order := seedOrder(t, db, 50000, []models.OrderLineItem{
		{ProductID: uuid.New(), RetailerID: retailer.ID, Name: "Marble Console", SKU: "M-1", UnitPrice: 50000, Quantity: 1, Subtotal: 50000},
	})

	first, err := svc.Post(context.Background(), db, order)
	require.NoError(t, err)
	assert.False(t, first.AlreadyPosted)

	second, err := svc.Post(context.Background(), db, order)
	require.NoError(t, err)
	assert.True(t, second.AlreadyPosted)
	assert.Empty(t, second.Posted)

	var commissions []models.Commission
	require.NoError(t, db.Find(&commissions, "order_id = ?", order.ID).Error)
	assert.Len(t, commissions, 1)

	var entries []models.LedgerEntry
	require.NoError(t, db.Find(&entries, "order_id = ?", order.ID).Error)
	assert.Len(t, entries, 1)
}

func TestAdjustForRefundProportional(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(db)
	retailer := seedRetailer(t, db, 1200)
	order := seedOrder(t, db, 55000, []models.OrderLineItem{
		{ProductID: uuid.New(), RetailerID: retailer.ID, Name: "Linen Armchair", SKU: "L-1", UnitPrice: 55000, Quantity: 1, Subtotal: 55000},
	})

	_, err := svc.Post(context.Background(), db, order)
	require.NoError(t, err)

	// Commission is 6600 on a 48400 net; refunding half the order halves both.
	require.NoError(t, svc.AdjustForRefund(context.Background(), db, order, 27500))

	var adjusted models.Commission
	require.NoError(t, db.First(&adjusted, "order_id = ?", order.ID).Error)
	assert.Equal(t, int64(3300), adjusted.Amount)
	assert.Equal(t, int64(24200), adjusted.NetAmount)

	balance, err := svc.Balance(context.Background(), retailer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6600-3300), balance)

	var refundEntries []models.LedgerEntry
	require.NoError(t, db.Find(&refundEntries,
		"order_id = ? AND entry_type = ?", order.ID, enums.LedgerEntryTypeRefund).Error)
	require.Len(t, refundEntries, 1)
	assert.Equal(t, int64(-3300), refundEntries[0].Amount)
}

func TestAdjustForRefundCapped(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(db)
	retailer := seedRetailer(t, db, 1200)
	order := seedOrder(t, db, 10000, []models.OrderLineItem{
		{ProductID: uuid.New(), RetailerID: retailer.ID, Name: "Rattan Stool", SKU: "R-1", UnitPrice: 10000, Quantity: 1, Subtotal: 10000},
	})

	_, err := svc.Post(context.Background(), db, order)
	require.NoError(t, err)

	// Three 40% adjustments would overshoot the 1200 commission; the last is
	// capped and a fourth is a no-op.
	for range 3 {
		require.NoError(t, svc.AdjustForRefund(context.Background(), db, order, 4000))
	}
	require.NoError(t, svc.AdjustForRefund(context.Background(), db, order, 2000))

	balance, err := svc.Balance(context.Background(), retailer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	var drained models.Commission
	require.NoError(t, db.First(&drained, "order_id = ?", order.ID).Error)
	assert.Equal(t, int64(0), drained.Amount)
	assert.Equal(t, int64(0), drained.NetAmount)
}

func TestLedgerPagination(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(db)
	retailer := seedRetailer(t, db, 1200)

	for i := range 5 {
		order := seedOrder(t, db, 10000, []models.OrderLineItem{
			{ProductID: uuid.New(), RetailerID: retailer.ID, Name: "Bookcase", SKU: fmt.Sprintf("B-%d", i), UnitPrice: 10000, Quantity: 1, Subtotal: 10000},
		})
		_, err := svc.Post(context.Background(), db, order)
		require.NoError(t, err)
	}

	entries, next, err := svc.Ledger(context.Background(), retailer.ID, pagination.Params{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	require.NotEmpty(t, next)

	rest, _, err := svc.Ledger(context.Background(), retailer.ID, pagination.Params{Limit: 3, Cursor: next})
	require.NoError(t, err)
	assert.Len(t, rest, 2)
}
