package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bloomlink/bloomlink-backend/internal/commission"
	"github.com/bloomlink/bloomlink-backend/internal/scoring"
	"github.com/bloomlink/bloomlink-backend/pkg/config"
	"github.com/bloomlink/bloomlink-backend/pkg/db/models"
	"github.com/bloomlink/bloomlink-backend/pkg/enums"
	pkgerrors "github.com/bloomlink/bloomlink-backend/pkg/errors"
	"github.com/bloomlink/bloomlink-backend/pkg/outbox"
	"github.com/bloomlink/bloomlink-backend/pkg/outbox/payloads"
)

// Volume discounts look at the store's completed volume over a trailing
// month, independent of the scoring metrics window.
const trailingMonth = 30 * 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type storeFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

type commissionCalculator interface {
	Compute(order models.Order, store models.Store, trailingMonthOrders int) commission.Split
}

// Service defines order-level operations beyond repository reads.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Assign(ctx context.Context, input AssignInput) error
	Transition(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error)
	Complete(ctx context.Context, orderID uuid.UUID, deliveredAt time.Time) (*models.Order, error)
	MetricsForStore(ctx context.Context, storeID uuid.UUID, now time.Time) (scoring.StoreMetrics, error)
}

type service struct {
	repo     Repository
	stores   storeFinder
	tx       txRunner
	outbox   outboxPublisher
	calc     commissionCalculator
	cfg      config.AssignmentConfig
	validate *validator.Validate
}

// CreateInput captures a new delivery request. The area is kept as entered;
// canonicalization happens when the order is matched against stores.
type CreateInput struct {
	Province         string                `validate:"required"`
	City             string                `validate:"required"`
	District         *string               `validate:"omitempty,min=1"`
	Category         enums.ProductCategory `validate:"required"`
	SubtotalKRW      int                   `validate:"gte=0"`
	AdditionalFeeKRW int                   `validate:"gte=0"`
	DeliverBy        *time.Time
}

// AssignInput routes an order to the store the assignment pass selected.
type AssignInput struct {
	OrderID uuid.UUID
	StoreID uuid.UUID
	Score   int
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, stores storeFinder, tx txRunner, ob outboxPublisher, calc commissionCalculator, cfg config.AssignmentConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if stores == nil {
		return nil, fmt.Errorf("store finder required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if calc == nil {
		return nil, fmt.Errorf("commission calculator required")
	}
	return &service{
		repo:     repo,
		stores:   stores,
		tx:       tx,
		outbox:   ob,
		calc:     calc,
		cfg:      cfg,
		validate: validator.New(),
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order input")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown product category %q", input.Category))
	}

	order := &models.Order{
		Province:         input.Province,
		City:             input.City,
		District:         input.District,
		Category:         input.Category,
		PriceKRW:         input.SubtotalKRW + input.AdditionalFeeKRW,
		Status:           enums.OrderStatusPending,
		SubtotalKRW:      input.SubtotalKRW,
		AdditionalFeeKRW: input.AdditionalFeeKRW,
		TotalKRW:         input.SubtotalKRW + input.AdditionalFeeKRW,
		DeliverBy:        input.DeliverBy,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
	}
	return order, nil
}

// Assign claims the order for one store. The claim is a conditional update;
// when it touches zero rows the order either no longer exists or another
// store already holds it, and the caller gets the matching code.
func (s *service) Assign(ctx context.Context, input AssignInput) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		affected, err := repo.AssignReceiverStore(ctx, input.OrderID, input.StoreID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assigning receiver store")
		}
		if affected == 0 {
			if _, err := repo.FindByID(ctx, input.OrderID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
			}
			return pkgerrors.New(pkgerrors.CodeAlreadyAssigned, "order already assigned to another store")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderAssigned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   input.OrderID,
			Version:       1,
			Data: payloads.OrderAssignedEvent{
				OrderID:         input.OrderID,
				ReceiverStoreID: input.StoreID,
				Score:           input.Score,
				AssignedAt:      time.Now().UTC(),
			},
		})
	})
}

// Transition moves the order along the delivery flow. Completion goes through
// Complete instead so the commission split is applied atomically.
func (s *service) Transition(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	if next == enums.OrderStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "completion requires a delivery timestamp")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
		}
		if !order.Status.CanTransitionTo(next) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot transition order from %s to %s", order.Status, next))
		}

		updates := map[string]any{"status": next}
		if next == enums.OrderStatusAccepted {
			now := time.Now().UTC()
			updates["accepted_at"] = now
			order.AcceptedAt = &now
		}
		if err := repo.UpdateFields(ctx, orderID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
		}
		order.Status = next
		updated = order
		return nil
	})
	return updated, err
}

// Complete finishes a delivering order and stamps the commission split onto
// its payment fields.
func (s *service) Complete(ctx context.Context, orderID uuid.UUID, deliveredAt time.Time) (*models.Order, error) {
	var completed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusCompleted) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot complete order in status %s", order.Status))
		}
		if order.ReceiverStoreID == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no receiver store")
		}

		store, err := s.stores.FindByID(ctx, *order.ReceiverStoreID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading receiver store")
		}

		trailing, err := repo.CountCompletedByReceiverSince(ctx, store.ID, deliveredAt.Add(-trailingMonth))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting trailing orders")
		}

		split := s.calc.Compute(*order, *store, trailing)
		now := deliveredAt.UTC()
		updates := map[string]any{
			"status":         enums.OrderStatusCompleted,
			"delivered_at":   now,
			"completed_at":   now,
			"commission_krw": split.CommissionKRW,
			"total_krw":      order.SubtotalKRW + order.AdditionalFeeKRW,
		}
		if err := repo.UpdateFields(ctx, orderID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "completing order")
		}

		order.Status = enums.OrderStatusCompleted
		order.DeliveredAt = &now
		order.CompletedAt = &now
		order.CommissionKRW = split.CommissionKRW
		order.TotalKRW = order.SubtotalKRW + order.AdditionalFeeKRW
		completed = order
		return nil
	})
	return completed, err
}

// MetricsForStore derives the scoring inputs from the store's orders inside
// the configured trailing window.
func (s *service) MetricsForStore(ctx context.Context, storeID uuid.UUID, now time.Time) (scoring.StoreMetrics, error) {
	since := now.Add(-time.Duration(s.cfg.MetricsWindowDays) * 24 * time.Hour)
	windowOrders, err := s.repo.ListByReceiverSince(ctx, storeID, since)
	if err != nil {
		return scoring.StoreMetrics{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order history")
	}
	return ComputeStoreMetrics(windowOrders), nil
}
