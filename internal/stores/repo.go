package stores

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bloomlink/bloomlink-backend/pkg/db/models"
	"github.com/bloomlink/bloomlink-backend/pkg/enums"
)

// Repository defines persistence for stores and their service areas.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, store *models.Store) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	UpdateFields(ctx context.Context, storeID uuid.UUID, updates map[string]any) error
	ListActive(ctx context.Context) ([]models.Store, error)
	AdjustPointsBalance(ctx context.Context, storeID uuid.UUID, delta int) (int64, error)
	CountServiceAreas(ctx context.Context, storeID uuid.UUID) (int, error)
	AddServiceArea(ctx context.Context, area *models.StoreServiceArea) error
	DeleteServiceArea(ctx context.Context, storeID, areaID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a store repository bound to the provided database.
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

func (r *repository) Create(ctx context.Context, store *models.Store) error {
	return r.db.WithContext(ctx).Create(store).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	err := r.db.WithContext(ctx).
		Preload("ServiceAreas").
		First(&store, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *repository) UpdateFields(ctx context.Context, storeID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("id = ?", storeID).
		Updates(updates).Error
}

// ListActive returns approved stores with their service areas preloaded,
// the candidate pool for eligibility matching.
func (r *repository) ListActive(ctx context.Context) ([]models.Store, error) {
	var result []models.Store
	err := r.db.WithContext(ctx).
		Preload("ServiceAreas").
		Where("status = ?", enums.StoreStatusActive).
		Order("created_at ASC").
		Find(&result).Error
	return result, err
}

// AdjustPointsBalance applies the delta only when the resulting balance stays
// non-negative. Zero rows affected means the store was missing or the debit
// would overdraw; the caller distinguishes the two.
func (r *repository) AdjustPointsBalance(ctx context.Context, storeID uuid.UUID, delta int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("id = ? AND points_balance_krw + ? >= 0", storeID, delta).
		Update("points_balance_krw", gorm.Expr("points_balance_krw + ?", delta))
	return res.RowsAffected, res.Error
}

func (r *repository) CountServiceAreas(ctx context.Context, storeID uuid.UUID) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StoreServiceArea{}).
		Where("store_id = ?", storeID).
		Count(&count).Error
	return int(count), err
}

func (r *repository) AddServiceArea(ctx context.Context, sa *models.StoreServiceArea) error {
	return r.db.WithContext(ctx).Create(sa).Error
}

func (r *repository) DeleteServiceArea(ctx context.Context, storeID, areaID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND store_id = ?", areaID, storeID).
		Delete(&models.StoreServiceArea{})
	return res.RowsAffected, res.Error
}
