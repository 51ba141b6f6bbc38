package stores

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bloomlink/bloomlink-backend/internal/area"
	"github.com/bloomlink/bloomlink-backend/pkg/config"
	"github.com/bloomlink/bloomlink-backend/pkg/db/models"
	"github.com/bloomlink/bloomlink-backend/pkg/enums"
	pkgerrors "github.com/bloomlink/bloomlink-backend/pkg/errors"
)

func setupStoresTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:stores_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	storesTable := `
CREATE TABLE IF NOT EXISTS stores (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  owner_name TEXT,
  phone TEXT,
  email TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  is_open INTEGER NOT NULL DEFAULT 0,
  points_balance_krw INTEGER NOT NULL DEFAULT 0,
  commission_rate REAL,
  categories TEXT,
  approved_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	serviceAreasTable := `
CREATE TABLE IF NOT EXISTS store_service_areas (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  province TEXT NOT NULL,
  city TEXT NOT NULL,
  district TEXT,
  canonical_key TEXT NOT NULL,
  min_price_krw INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  UNIQUE (store_id, canonical_key)
);`
	for _, stmt := range []string{storesTable, serviceAreasTable} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type storesTestTxRunner struct {
	db *gorm.DB
}

func (r storesTestTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error { return fn(tx) })
}

func newStoresTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(
		NewRepository(db),
		storesTestTxRunner{db: db},
		area.NewNormalizer(),
		config.StoresConfig{MaxServiceAreasPerStore: 2},
		nil,
	)
	require.NoError(t, err)
	return svc
}

func registerTestStore(t *testing.T, svc Service) *models.Store {
	t.Helper()

	store, err := svc.Register(context.Background(), RegisterInput{
		Name:       "강남꽃집",
		OwnerName:  "김영희",
		Phone:      "02-555-0101",
		Email:      "owner@gangnam-flowers.kr",
		Categories: []string{string(enums.ProductCategoryCondolenceWreath)},
	})
	require.NoError(t, err)
	return store
}

func TestRegisterStartsPending(t *testing.T) {
	db := setupStoresTestDB(t)
	svc := newStoresTestService(t, db)

	store := registerTestStore(t, svc)
	assert.Equal(t, enums.StoreStatusPending, store.Status)
	assert.False(t, store.IsOpen)
	assert.NotEqual(t, uuid.Nil, store.ID)
}

func TestRegisterRejectsUnknownCategory(t *testing.T) {
	db := setupStoresTestDB(t)
	svc := newStoresTestService(t, db)

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:       "강남꽃집",
		OwnerName:  "김영희",
		Phone:      "02-555-0101",
		Email:      "owner@gangnam-flowers.kr",
		Categories: []string{"떡볶이"},
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestApproveActivatesOnce(t *testing.T) {
	db := setupStoresTestDB(t)
	svc := newStoresTestService(t, db)
	ctx := context.Background()

	store := registerTestStore(t, svc)
	require.NoError(t, svc.Approve(ctx, store.ID))

	reloaded, err := svc.FindByID(ctx, store.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.StoreStatusActive, reloaded.Status)
	assert.NotNil(t, reloaded.ApprovedAt)

	// Approving an active store is a no-op, not an error.
	require.NoError(t, svc.Approve(ctx, store.ID))
}

func TestSetOpenRequiresActiveStore(t *testing.T) {
	db := setupStoresTestDB(t)
	svc := newStoresTestService(t, db)
	ctx := context.Background()

	store := registerTestStore(t, svc)

	err := svc.SetOpen(ctx, store.ID, true)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	require.NoError(t, svc.Approve(ctx, store.ID))
	require.NoError(t, svc.SetOpen(ctx, store.ID, true))
}

func TestSuspendClosesStore(t *testing.T) {
	db := setupStoresTestDB(t)
	svc := newStoresTestService(t, db)
	ctx := context.Background()

	store := registerTestStore(t, svc)
	require.NoError(t, svc.Approve(ctx, store.ID))
	require.NoError(t, svc.SetOpen(ctx, store.ID, true))
	require.NoError(t, svc.Suspend(ctx, store.ID))

	reloaded, err := svc.FindByID(ctx, store.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.StoreStatusSuspended, reloaded.Status)
	assert.False(t, reloaded.IsOpen)
}

func TestAdjustPointsNeverGoesNegative(t *testing.T) {
	db := setupStoresTestDB(t)
	svc := newStoresTestService(t, db)
	ctx := context.Background()

	store := registerTestStore(t, svc)
	require.NoError(t, svc.AdjustPoints(ctx, store.ID, 150000))
	require.NoError(t, svc.AdjustPoints(ctx, store.ID, -100000))

	err := svc.AdjustPoints(ctx, store.ID, -60000)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	reloaded, findErr := svc.FindByID(ctx, store.ID)
	require.NoError(t, findErr)
	assert.Equal(t, 50000, reloaded.PointsBalanceKRW)
}

func TestAdjustPointsMissingStore(t *testing.T) {
	db := setupStoresTestDB(t)
	svc := newStoresTestService(t, db)

	err := svc.AdjustPoints(context.Background(), uuid.New(), 1000)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestSetCommissionRateValidatesRange(t *testing.T) {
	db := setupStoresTestDB(t)
	svc := newStoresTestService(t, db)
	ctx := context.Background()

	store := registerTestStore(t, svc)

	bad := 1.5
	err := svc.SetCommissionRate(ctx, store.ID, &bad)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	rate := 0.2
	require.NoError(t, svc.SetCommissionRate(ctx, store.ID, &rate))
	reloaded, findErr := svc.FindByID(ctx, store.ID)
	require.NoError(t, findErr)
	require.NotNil(t, reloaded.CommissionRate)
	assert.Equal(t, 0.2, *reloaded.CommissionRate)

	// Clearing the override falls back to the platform rate.
	require.NoError(t, svc.SetCommissionRate(ctx, store.ID, nil))
}

func TestAddServiceAreaNormalizesAndDeduplicates(t *testing.T) {
	db := setupStoresTestDB(t)
	svc := newStoresTestService(t, db)
	ctx := context.Background()

	store := registerTestStore(t, svc)

	sa, err := svc.AddServiceArea(ctx, store.ID, ServiceAreaInput{
		Province:    "서울",
		City:        "강남",
		MinPriceKRW: 50000,
	})
	require.NoError(t, err)
	assert.Equal(t, "서울특별시", sa.Province)
	assert.Equal(t, "강남구", sa.City)
	assert.Equal(t, "서울특별시 강남구", sa.CanonicalKey)

	// Same area in full form normalizes to the same canonical key.
	_, err = svc.AddServiceArea(ctx, store.ID, ServiceAreaInput{
		Province: "서울특별시",
		City:     "강남구",
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestAddServiceAreaEnforcesCap(t *testing.T) {
	db := setupStoresTestDB(t)
	svc := newStoresTestService(t, db)
	ctx := context.Background()

	store := registerTestStore(t, svc)

	_, err := svc.AddServiceArea(ctx, store.ID, ServiceAreaInput{Province: "서울", City: "강남"})
	require.NoError(t, err)
	_, err = svc.AddServiceArea(ctx, store.ID, ServiceAreaInput{Province: "서울", City: "마포"})
	require.NoError(t, err)

	_, err = svc.AddServiceArea(ctx, store.ID, ServiceAreaInput{Province: "서울", City: "송파"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestRemoveServiceArea(t *testing.T) {
	db := setupStoresTestDB(t)
	svc := newStoresTestService(t, db)
	ctx := context.Background()

	store := registerTestStore(t, svc)
	sa, err := svc.AddServiceArea(ctx, store.ID, ServiceAreaInput{Province: "부산", City: "해운대"})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveServiceArea(ctx, store.ID, sa.ID))

	err = svc.RemoveServiceArea(ctx, store.ID, sa.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
