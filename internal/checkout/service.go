package checkout

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/athathco/athath-backend/internal/analytics"
	"github.com/athathco/athath-backend/internal/cart"
	"github.com/athathco/athath-backend/internal/inventory"
	"github.com/athathco/athath-backend/internal/orders"
	"github.com/athathco/athath-backend/pkg/db"
	"github.com/athathco/athath-backend/pkg/db/models"
	"github.com/athathco/athath-backend/pkg/enums"
	pkgerrors "github.com/athathco/athath-backend/pkg/errors"
	"github.com/athathco/athath-backend/pkg/logger"
	"github.com/athathco/athath-backend/pkg/metrics"
)

// DeliveryPolicy computes the delivery fee for an items subtotal. Orders at
// or above FreeThreshold ship free.
type DeliveryPolicy struct {
	FlatFee       int64
	FreeThreshold int64
}

// Fee returns the delivery fee in fils for the given items subtotal.
func (p DeliveryPolicy) Fee(itemsAmount int64) int64 {
	if p.FreeThreshold > 0 && itemsAmount >= p.FreeThreshold {
		return 0
	}
	return p.FlatFee
}

// Service converts carts into orders: prices are snapshotted, stock is
// reserved, and the cart is retired, all atomically.
type Service struct {
	client    *db.Client
	carts     *cart.Repo
	orders    *orders.Repo
	inventory *inventory.Repo
	tracker   *analytics.Tracker
	delivery  DeliveryPolicy
	metrics   *metrics.SettlementMetrics
	logg      *logger.Logger
}

func NewService(
	client *db.Client,
	cartRepo *cart.Repo,
	orderRepo *orders.Repo,
	inventoryRepo *inventory.Repo,
	tracker *analytics.Tracker,
	delivery DeliveryPolicy,
	settlement *metrics.SettlementMetrics,
	logg *logger.Logger,
) *Service {
	return &Service{
		client:    client,
		carts:     cartRepo,
		orders:    orderRepo,
		inventory: inventoryRepo,
		tracker:   tracker,
		delivery:  delivery,
		metrics:   settlement,
		logg:      logg,
	}
}

// CreateOrderInput carries the checkout details snapshotted onto the order.
type CreateOrderInput struct {
	CustomerID      uuid.UUID
	ShippingAddress string
	Notes           string
}

// CreateOrder turns the customer's active cart into a pending-payment order.
// The whole conversion runs in one transaction: if any line cannot be
// reserved, nothing is reserved and the cart stays active.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	shippingAddress := strings.TrimSpace(input.ShippingAddress)
	if shippingAddress == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}
	customerID := input.CustomerID

	activeCart, err := s.carts.GetActive(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(activeCart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart has no items")
	}

	var order *models.Order
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.carts.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)
		inv := s.inventory.WithTx(tx)

		var itemsAmount int64
		lineItems := make([]models.OrderLineItem, 0, len(activeCart.Items))
		for _, item := range activeCart.Items {
			product := item.Product
			if product == nil {
				return pkgerrors.New(pkgerrors.CodeInternal, "cart item missing product")
			}
			if product.Status != enums.ProductStatusActive {
				return pkgerrors.New(pkgerrors.CodeProductUnavailable,
					"product is no longer purchasable").
					WithDetails(map[string]any{"product_id": product.ID})
			}
			if err := inv.Reserve(ctx, product.ID, item.Quantity); err != nil {
				return err
			}

			subtotal := product.PriceAmount * item.Quantity
			itemsAmount += subtotal
			lineItems = append(lineItems, models.OrderLineItem{
				ProductID:  product.ID,
				RetailerID: product.RetailerID,
				Name:       product.Name,
				SKU:        product.SKU,
				UnitPrice:  product.PriceAmount,
				Quantity:   item.Quantity,
				Subtotal:   subtotal,
			})
		}

		deliveryFee := s.delivery.Fee(itemsAmount)
		order = &models.Order{
			CustomerID:      customerID,
			CartID:          activeCart.ID,
			Status:          enums.OrderStatusPendingPayment,
			ShippingAddress: shippingAddress,
			Notes:           strings.TrimSpace(input.Notes),
			Currency:        enums.CurrencyAED,
			ItemsAmount:     itemsAmount,
			DeliveryFee:     deliveryFee,
			TotalAmount:     itemsAmount + deliveryFee,
			LineItems:       lineItems,
		}
		if err := orderRepo.Create(ctx, order); err != nil {
			return err
		}

		return cartRepo.MarkConverted(ctx, activeCart.ID)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOrdersCreated()
	s.tracker.Track(ctx, analytics.EventOrderCreated, analytics.OrderCreatedPayload{
		OrderID:     order.ID,
		CustomerID:  customerID,
		ItemsAmount: order.ItemsAmount,
		DeliveryFee: order.DeliveryFee,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency.String(),
		LineCount:   len(order.LineItems),
	})
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "order created from cart")
	return order, nil
}
