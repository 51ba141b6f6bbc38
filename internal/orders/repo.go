package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bloomlink/bloomlink-backend/pkg/db/models"
	"github.com/bloomlink/bloomlink-backend/pkg/enums"
)

// Repository defines persistence for orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	AssignReceiverStore(ctx context.Context, orderID, storeID uuid.UUID) (int64, error)
	UpdateFields(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	ListByReceiverSince(ctx context.Context, storeID uuid.UUID, since time.Time) ([]models.Order, error)
	CountCompletedByReceiverSince(ctx context.Context, storeID uuid.UUID, since time.Time) (int, error)
	ListCompletedUnsettled(ctx context.Context, storeID uuid.UUID) ([]models.Order, error)
	ListStoreIDsWithUnsettledOrders(ctx context.Context) ([]uuid.UUID, error)
	ListBySettlementID(ctx context.Context, settlementID uuid.UUID) ([]models.Order, error)
	SetSettlementID(ctx context.Context, orderIDs []uuid.UUID, settlementID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx rebinds the repository to the provided transaction.
func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// AssignReceiverStore sets the receiver store only when no store holds the
// order yet. The conditional WHERE clause is the atomicity guarantee: two
// concurrent assignments cannot both match receiver_store_id IS NULL.
// Returns the number of rows updated (0 means the order was missing or
// already assigned; the caller distinguishes the two).
func (r *repository) AssignReceiverStore(ctx context.Context, orderID, storeID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND receiver_store_id IS NULL", orderID).
		Update("receiver_store_id", storeID)
	return res.RowsAffected, res.Error
}

func (r *repository) UpdateFields(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

// ListByReceiverSince returns the orders routed to a store created at or
// after the cutoff, used to derive the per-pass store metrics.
func (r *repository) ListByReceiverSince(ctx context.Context, storeID uuid.UUID, since time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("receiver_store_id = ? AND created_at >= ?", storeID, since).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

// CountCompletedByReceiverSince returns the store's completed-order count
// since the cutoff, used for the trailing-month volume discount lookup.
func (r *repository) CountCompletedByReceiverSince(ctx context.Context, storeID uuid.UUID, since time.Time) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("receiver_store_id = ? AND status = ? AND completed_at >= ?",
			storeID, enums.OrderStatusCompleted, since).
		Count(&count).Error
	return int(count), err
}

// ListCompletedUnsettled returns a store's completed orders that are not yet
// grouped into any settlement batch, oldest first.
func (r *repository) ListCompletedUnsettled(ctx context.Context, storeID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("receiver_store_id = ? AND status = ? AND settlement_id IS NULL",
			storeID, enums.OrderStatusCompleted).
		Order("completed_at ASC").
		Find(&orders).Error
	return orders, err
}

// ListStoreIDsWithUnsettledOrders returns every store holding at least one
// completed order outside a settlement batch.
func (r *repository) ListStoreIDsWithUnsettledOrders(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Distinct("receiver_store_id").
		Where("status = ? AND settlement_id IS NULL AND receiver_store_id IS NOT NULL",
			enums.OrderStatusCompleted).
		Pluck("receiver_store_id", &ids).Error
	return ids, err
}

// ListBySettlementID returns the orders grouped into one settlement batch.
func (r *repository) ListBySettlementID(ctx context.Context, settlementID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("settlement_id = ?", settlementID).
		Order("completed_at ASC").
		Find(&orders).Error
	return orders, err
}

// SetSettlementID stamps the batch id onto the provided orders.
func (r *repository) SetSettlementID(ctx context.Context, orderIDs []uuid.UUID, settlementID uuid.UUID) error {
	if len(orderIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id IN ?", orderIDs).
		Update("settlement_id", settlementID).Error
}
