package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/athathco/athath-backend/internal/catalog"
	"github.com/athathco/athath-backend/pkg/db"
	"github.com/athathco/athath-backend/pkg/db/models"
	"github.com/athathco/athath-backend/pkg/enums"
	pkgerrors "github.com/athathco/athath-backend/pkg/errors"
	"github.com/athathco/athath-backend/pkg/logger"
	"gorm.io/gorm"
)

// Service manages the customer's cart ahead of checkout.
type Service struct {
	client  *db.Client
	repo    *Repo
	catalog *catalog.Repo
	logg    *logger.Logger
}

func NewService(client *db.Client, repo *Repo, catalogRepo *catalog.Repo, logg *logger.Logger) *Service {
	return &Service{
		client:  client,
		repo:    repo,
		catalog: catalogRepo,
		logg:    logg,
	}
}

// GetOrCreate returns the customer's active cart, creating one when missing.
func (s *Service) GetOrCreate(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.GetActive(ctx, customerID)
	if err == nil {
		return cart, nil
	}
	var typed *pkgerrors.Error
	if !errors.As(err, &typed) || typed.Code() != pkgerrors.CodeNotFound {
		return nil, err
	}
	return s.repo.Create(ctx, customerID)
}

// SetItem sets a product quantity in the customer's active cart. The product
// must exist and be active; quantity zero removes the line.
func (s *Service) SetItem(ctx context.Context, customerID, productID uuid.UUID, quantity int64) (*models.Cart, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}

	if quantity > 0 {
		product, err := s.catalog.Get(ctx, productID)
		if err != nil {
			return nil, err
		}
		if product.Status != enums.ProductStatusActive {
			return nil, pkgerrors.New(pkgerrors.CodeProductUnavailable, "product is not purchasable")
		}
	}

	cart, err := s.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).UpsertItem(ctx, cart.ID, productID, quantity)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, cart.ID)
}

// Clear empties the customer's active cart in one sweep. The cart itself
// survives and stays usable.
func (s *Service) Clear(ctx context.Context, customerID uuid.UUID) (*models.Cart, error) {
	cart, err := s.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).ClearItems(ctx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, cart.ID)
}
