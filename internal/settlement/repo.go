package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bloomlink/bloomlink-backend/pkg/db/models"
	"github.com/bloomlink/bloomlink-backend/pkg/enums"
)

// Repository defines persistence for settlement batches.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, batch *models.SettlementBatch) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.SettlementBatch, error)
	FindByStorePeriod(ctx context.Context, storeID uuid.UUID, periodStart, periodEnd time.Time) (*models.SettlementBatch, error)
	FindPendingByStore(ctx context.Context, storeID uuid.UUID) (*models.SettlementBatch, error)
	UpdateFields(ctx context.Context, batchID uuid.UUID, updates map[string]any) error
	ListByStatus(ctx context.Context, status enums.SettlementStatus) ([]models.SettlementBatch, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a settlement repository bound to the provided database.
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

func (r *repository) Create(ctx context.Context, batch *models.SettlementBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SettlementBatch, error) {
	var batch models.SettlementBatch
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) FindByStorePeriod(ctx context.Context, storeID uuid.UUID, periodStart, periodEnd time.Time) (*models.SettlementBatch, error) {
	var batch models.SettlementBatch
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND period_start = ? AND period_end = ?", storeID, periodStart, periodEnd).
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// FindPendingByStore returns the store's open below-minimum batch, if any.
// At most one exists per store because each pass folds new orders into it
// instead of opening another.
func (r *repository) FindPendingByStore(ctx context.Context, storeID uuid.UUID) (*models.SettlementBatch, error) {
	var batch models.SettlementBatch
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND status = ?", storeID, enums.SettlementStatusPending).
		Order("period_start ASC").
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *repository) UpdateFields(ctx context.Context, batchID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.SettlementBatch{}).
		Where("id = ?", batchID).
		Updates(updates).Error
}

func (r *repository) ListByStatus(ctx context.Context, status enums.SettlementStatus) ([]models.SettlementBatch, error) {
	var batches []models.SettlementBatch
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&batches).Error
	return batches, err
}
