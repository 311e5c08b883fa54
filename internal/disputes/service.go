package disputes

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/athathco/athath-backend/internal/analytics"
	"github.com/athathco/athath-backend/internal/orders"
	"github.com/athathco/athath-backend/pkg/db"
	"github.com/athathco/athath-backend/pkg/db/models"
	"github.com/athathco/athath-backend/pkg/enums"
	pkgerrors "github.com/athathco/athath-backend/pkg/errors"
	"github.com/athathco/athath-backend/pkg/logger"
	"github.com/athathco/athath-backend/pkg/pagination"
)

// disputableStatuses are the order states a customer may raise a ticket from:
// money has been captured and the order is not already terminal.
var disputableStatuses = map[enums.OrderStatus]bool{
	enums.OrderStatusPaid:       true,
	enums.OrderStatusProcessing: true,
	enums.OrderStatusShipped:    true,
	enums.OrderStatusDelivered:  true,
}

// Service runs the dispute workflow from ticket creation through resolution.
// Resolutions that move money delegate to the orders refund primitive so
// commission adjustment is never bypassed.
type Service struct {
	client    *db.Client
	repo      *Repo
	orderRepo *orders.Repo
	orderSvc  *orders.Service
	tracker   *analytics.Tracker
	logg      *logger.Logger
}

func NewService(
	client *db.Client,
	repo *Repo,
	orderRepo *orders.Repo,
	orderSvc *orders.Service,
	tracker *analytics.Tracker,
	logg *logger.Logger,
) *Service {
	return &Service{
		client:    client,
		repo:      repo,
		orderRepo: orderRepo,
		orderSvc:  orderSvc,
		tracker:   tracker,
		logg:      logg,
	}
}

// Create opens a ticket against the customer's order and freezes the order in
// the disputed state. One open ticket per order. The reason is the ticket
// headline; the optional description becomes the opening thread message.
func (s *Service) Create(ctx context.Context, orderID, customerID uuid.UUID, reason, description string) (*models.DisputeTicket, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}
	description = strings.TrimSpace(description)

	order, err := s.orderRepo.GetForCustomer(ctx, orderID, customerID)
	if err != nil {
		return nil, err
	}
	if !disputableStatuses[order.Status] {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order is %s and cannot be disputed", order.Status))
	}

	if existing, err := s.repo.OpenTicketForOrder(ctx, orderID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeDuplicateDispute,
			"order already has an open dispute").
			WithDetails(map[string]any{"ticket_id": existing.ID})
	}

	ticket := &models.DisputeTicket{
		OrderID:     orderID,
		CustomerID:  customerID,
		Status:      enums.DisputeStatusOpen,
		PriorStatus: order.Status,
		Reason:      reason,
	}
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orderRepo.WithTx(tx).TransitionStatus(ctx, orderID,
			[]enums.OrderStatus{order.Status}, enums.OrderStatusDisputed); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Create(ctx, ticket); err != nil {
			if db.IsUniqueViolation(err, "idx_dispute_tickets_open_order") {
				return pkgerrors.New(pkgerrors.CodeDuplicateDispute, "order already has an open dispute")
			}
			return err
		}
		body := reason
		if description != "" {
			body = description
		}
		message := &models.DisputeMessage{
			TicketID: ticket.ID,
			AuthorID: customerID,
			Role:     enums.ActorRoleCustomer,
			Body:     body,
		}
		return s.repo.WithTx(tx).AddMessage(ctx, message)
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(ctx, "dispute opened")
	return ticket, nil
}

// AddMessage appends to a ticket's thread. Customers may only post on their
// own tickets; terminal tickets are read-only.
func (s *Service) AddMessage(ctx context.Context, ticketID, authorID uuid.UUID, role enums.ActorRole, body string) (*models.DisputeMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid actor role %q", role))
	}

	ticket, err := s.repo.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "dispute is closed")
	}
	if role == enums.ActorRoleCustomer && ticket.CustomerID != authorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not your dispute")
	}

	message := &models.DisputeMessage{
		TicketID: ticketID,
		AuthorID: authorID,
		Role:     role,
		Body:     body,
	}
	if err := s.repo.AddMessage(ctx, message); err != nil {
		return nil, err
	}
	return message, nil
}

// UpdateStatus moves a ticket between working statuses. Resolution goes
// through Resolve, never through here.
func (s *Service) UpdateStatus(ctx context.Context, ticketID uuid.UUID, to enums.DisputeStatus) error {
	if !to.IsValid() || to.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid target status %q", to))
	}
	return s.repo.UpdateStatus(ctx, ticketID,
		[]enums.DisputeStatus{
			enums.DisputeStatusOpen,
			enums.DisputeStatusInProgress,
			enums.DisputeStatusWaitingOnCustomer,
		}, to)
}

// ResolveInput describes an admin decision on a ticket.
type ResolveInput struct {
	TicketID     uuid.UUID
	ResolvedBy   uuid.UUID
	Resolution   enums.DisputeResolution
	RefundAmount int64
	Notes        string
}

// Resolve applies the decision: full refunds push the order to refunded,
// partial refunds settle it back to paid, replacements send it to fulfillment,
// and rejections close it out as delivered. Every branch leaves a system
// message on the thread recording the outcome.
func (s *Service) Resolve(ctx context.Context, input ResolveInput) (*models.DisputeTicket, error) {
	if !input.Resolution.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("invalid resolution %q", input.Resolution))
	}

	ticket, err := s.repo.Get(ctx, input.TicketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "dispute already resolved")
	}

	order, err := s.orderRepo.Get(ctx, ticket.OrderID)
	if err != nil {
		return nil, err
	}

	refundAmount := int64(0)
	switch input.Resolution {
	case enums.DisputeResolutionFullRefund:
		payment, err := s.orderRepo.CapturedPayment(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		refundAmount = payment.Amount - payment.RefundedAmount
		if refundAmount <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment already fully refunded")
		}
	case enums.DisputeResolutionPartialRefund:
		if input.RefundAmount <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount is required for a partial refund")
		}
		refundAmount = input.RefundAmount
	}

	if refundAmount > 0 {
		reason := fmt.Sprintf("dispute %s: %s", ticket.ID, input.Resolution)
		if _, err := s.orderSvc.Refund(ctx, orders.RefundInput{
			OrderID: order.ID,
			Amount:  refundAmount,
			Reason:  reason,
		}); err != nil {
			return nil, err
		}
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Resolve(ctx, ticket.ID, input.Resolution, refundAmount, input.ResolvedBy); err != nil {
			return err
		}
		message := &models.DisputeMessage{
			TicketID: ticket.ID,
			AuthorID: input.ResolvedBy,
			Role:     enums.ActorRoleSystem,
			Body:     resolutionMessage(input.Resolution, refundAmount, input.Notes),
		}
		if err := repo.AddMessage(ctx, message); err != nil {
			return err
		}
		return s.restoreOrderStatus(ctx, tx, ticket, input.Resolution)
	})
	if err != nil {
		return nil, err
	}

	s.tracker.Track(ctx, analytics.EventDisputeResolved, analytics.DisputeResolvedPayload{
		TicketID:   ticket.ID,
		OrderID:    ticket.OrderID,
		Resolution: input.Resolution.String(),
		Refund:     refundAmount,
	})

	return s.repo.Get(ctx, ticket.ID)
}

// resolutionMessage renders the system note appended to the thread when a
// ticket is resolved.
func resolutionMessage(resolution enums.DisputeResolution, refundAmount int64, notes string) string {
	body := fmt.Sprintf("dispute resolved: %s", resolution)
	if refundAmount > 0 {
		body += fmt.Sprintf(", refunded %d", refundAmount)
	}
	if notes = strings.TrimSpace(notes); notes != "" {
		body += "\n" + notes
	}
	return body
}

func (s *Service) restoreOrderStatus(ctx context.Context, tx *gorm.DB, ticket *models.DisputeTicket, resolution enums.DisputeResolution) error {
	orderRepo := s.orderRepo.WithTx(tx)
	from := []enums.OrderStatus{enums.OrderStatusDisputed}

	var target enums.OrderStatus
	switch resolution {
	case enums.DisputeResolutionFullRefund:
		target = enums.OrderStatusRefunded
	case enums.DisputeResolutionReplacement:
		target = enums.OrderStatusProcessing
	case enums.DisputeResolutionPartialRefund:
		// Money moved but the order survives; it settles back to paid no
		// matter where the dispute froze it.
		target = enums.OrderStatusPaid
	default:
		// Rejected: the complaint did not stand, the order is treated as
		// delivered.
		target = enums.OrderStatusDelivered
	}

	err := orderRepo.TransitionStatus(ctx, ticket.OrderID, from, target)
	if err != nil {
		// A full refund may have already moved the order out of disputed
		// through the refund primitive.
		if pe := pkgerrors.As(err); pe != nil && pe.Code() == pkgerrors.CodeStateConflict &&
			resolution == enums.DisputeResolutionFullRefund {
			return nil
		}
		return err
	}
	return nil
}

// Get returns a ticket with its thread.
func (s *Service) Get(ctx context.Context, ticketID uuid.UUID) (*models.DisputeTicket, error) {
	return s.repo.Get(ctx, ticketID)
}

// List returns tickets for admin review or a customer's own view.
func (s *Service) List(ctx context.Context, customerID *uuid.UUID, status *enums.DisputeStatus, params pagination.Params) ([]models.DisputeTicket, string, error) {
	return s.repo.List(ctx, customerID, status, params)
}
