package disputes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/athathco/athath-backend/pkg/db/models"
	"github.com/athathco/athath-backend/pkg/enums"
	pkgerrors "github.com/athathco/athath-backend/pkg/errors"
	"github.com/athathco/athath-backend/pkg/pagination"
)

// Repo persists dispute tickets and their message threads.
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// WithTx returns a copy of the repo bound to the given transaction.
func (r *Repo) WithTx(tx *gorm.DB) *Repo {
	return &Repo{db: tx}
}

// Create persists a new ticket.
func (r *Repo) Create(ctx context.Context, ticket *models.DisputeTicket) error {
	if err := r.db.WithContext(ctx).Create(ticket).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating dispute ticket")
	}
	return nil
}

// Get loads a ticket with its messages.
func (r *Repo) Get(ctx context.Context, id uuid.UUID) (*models.DisputeTicket, error) {
	var ticket models.DisputeTicket
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&ticket, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("dispute %s not found", id))
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading dispute ticket")
	}
	return &ticket, nil
}

// OpenTicketForOrder returns the order's non-terminal ticket, if any.
func (r *Repo) OpenTicketForOrder(ctx context.Context, orderID uuid.UUID) (*models.DisputeTicket, error) {
	var ticket models.DisputeTicket
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status NOT IN ?", orderID,
			[]enums.DisputeStatus{enums.DisputeStatusResolved, enums.DisputeStatusClosed}).
		First(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading open dispute")
	}
	return &ticket, nil
}

// List returns tickets newest-first with cursor pagination, optionally
// filtered by customer and status.
func (r *Repo) List(ctx context.Context, customerID *uuid.UUID, status *enums.DisputeStatus, params pagination.Params) ([]models.DisputeTicket, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	query := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if customerID != nil {
		query = query.Where("customer_id = ?", *customerID)
	}
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if cursor != nil {
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var tickets []models.DisputeTicket
	if err := query.Find(&tickets).Error; err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing disputes")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(tickets) > limit {
		tickets = tickets[:limit]
		last := tickets[len(tickets)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return tickets, next, nil
}

// UpdateStatus moves a ticket between non-terminal statuses.
func (r *Repo) UpdateStatus(ctx context.Context, ticketID uuid.UUID, from []enums.DisputeStatus, to enums.DisputeStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.DisputeTicket{}).
		Where("id = ? AND status IN ?", ticketID, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "updating dispute status")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("dispute %s cannot transition to %s", ticketID, to))
	}
	return nil
}

// Resolve stamps the resolution onto the ticket.
func (r *Repo) Resolve(ctx context.Context, ticketID uuid.UUID, resolution enums.DisputeResolution, refundAmount int64, resolvedBy uuid.UUID) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.DisputeTicket{}).
		Where("id = ? AND status NOT IN ?", ticketID,
			[]enums.DisputeStatus{enums.DisputeStatusResolved, enums.DisputeStatusClosed}).
		Updates(map[string]any{
			"status":        enums.DisputeStatusResolved,
			"resolution":    resolution,
			"refund_amount": refundAmount,
			"resolved_by":   resolvedBy,
			"resolved_at":   &now,
			"updated_at":    now,
		})
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "resolving dispute")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "dispute already resolved")
	}
	return nil
}

// AddMessage appends to the ticket's thread.
func (r *Repo) AddMessage(ctx context.Context, message *models.DisputeMessage) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adding dispute message")
	}
	return nil
}
