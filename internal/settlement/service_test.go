package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bloomlink/bloomlink-backend/internal/orders"
	"github.com/bloomlink/bloomlink-backend/pkg/db/models"
	"github.com/bloomlink/bloomlink-backend/pkg/enums"
	pkgerrors "github.com/bloomlink/bloomlink-backend/pkg/errors"
	"github.com/bloomlink/bloomlink-backend/pkg/outbox"
)

func setupSettlementTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:settlement_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ordersTable := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  province TEXT NOT NULL,
  city TEXT,
  district TEXT,
  category TEXT NOT NULL,
  price_krw INTEGER NOT NULL,
  status TEXT NOT NULL,
  receiver_store_id TEXT,
  subtotal_krw INTEGER NOT NULL DEFAULT 0,
  additional_fee_krw INTEGER NOT NULL DEFAULT 0,
  commission_krw INTEGER NOT NULL DEFAULT 0,
  total_krw INTEGER NOT NULL DEFAULT 0,
  settlement_id TEXT,
  deliver_by DATETIME,
  accepted_at DATETIME,
  delivered_at DATETIME,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	batches := `
CREATE TABLE IF NOT EXISTS settlement_batches (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  period_start DATETIME NOT NULL,
  period_end DATETIME NOT NULL,
  order_count INTEGER NOT NULL DEFAULT 0,
  total_amount_krw INTEGER NOT NULL DEFAULT 0,
  commission_amount_krw INTEGER NOT NULL DEFAULT 0,
  net_amount_krw INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'pending',
  processed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (store_id, period_start, period_end)
);`
	outboxEvents := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	for _, stmt := range []string{ordersTable, batches, outboxEvents} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error { return fn(tx) })
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	scheduler, err := NewScheduler(testSchedulerConfig())
	require.NoError(t, err)

	svc, err := NewService(
		NewRepository(db),
		orders.NewRepository(db),
		testTxRunner{db: db},
		outbox.NewService(outbox.NewRepository(db), nil),
		scheduler,
		testSchedulerConfig(),
		nil,
	)
	require.NoError(t, err)
	return svc
}

func insertCompletedOrder(t *testing.T, db *gorm.DB, storeID uuid.UUID, totalKRW, commissionKRW int, completedAt time.Time) models.Order {
	t.Helper()

	order := models.Order{
		ID:              uuid.New(),
		Province:        "서울특별시",
		City:            "강남구",
		Category:        enums.ProductCategoryCondolenceWreath,
		PriceKRW:        totalKRW,
		Status:          enums.OrderStatusCompleted,
		ReceiverStoreID: &storeID,
		SubtotalKRW:     totalKRW,
		TotalKRW:        totalKRW,
		CommissionKRW:   commissionKRW,
		CompletedAt:     &completedAt,
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

func runAt(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	// Shortly after the Friday 14:00 cutoff.
	return time.Date(2025, 8, 22, 14, 5, 0, 0, loc)
}

func TestRunCreatesAndSubmitsBatch(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	storeID := uuid.New()
	now := runAt(t)
	completed := now.Add(-48 * time.Hour)
	insertCompletedOrder(t, db, storeID, 300000, 75000, completed)
	insertCompletedOrder(t, db, storeID, 200000, 50000, completed.Add(time.Hour))

	result, err := svc.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.BatchesCreated)
	assert.Equal(t, 1, result.Submitted)

	var batch models.SettlementBatch
	require.NoError(t, db.First(&batch, "store_id = ?", storeID).Error)
	assert.Equal(t, 2, batch.OrderCount)
	assert.Equal(t, 500000, batch.TotalAmountKRW)
	assert.Equal(t, 125000, batch.CommissionAmountKRW)
	assert.Equal(t, 375000, batch.NetAmountKRW)
	assert.Equal(t, enums.SettlementStatusProcessing, batch.Status)
	assert.NotNil(t, batch.ProcessedAt)

	var stamped int64
	require.NoError(t, db.Model(&models.Order{}).
		Where("settlement_id = ?", batch.ID).Count(&stamped).Error)
	assert.EqualValues(t, 2, stamped)

	var events int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", enums.EventSettlementBatchCreated, batch.ID).
		Count(&events).Error)
	assert.EqualValues(t, 1, events)
}

func TestRunHoldsBatchBelowMinimum(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	storeID := uuid.New()
	now := runAt(t)
	insertCompletedOrder(t, db, storeID, 60000, 15000, now.Add(-24*time.Hour))

	result, err := svc.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.BatchesCreated)
	assert.Equal(t, 0, result.Submitted)

	var batch models.SettlementBatch
	require.NoError(t, db.First(&batch, "store_id = ?", storeID).Error)
	assert.Equal(t, enums.SettlementStatusPending, batch.Status)
	assert.Equal(t, 45000, batch.NetAmountKRW)
	assert.Nil(t, batch.ProcessedAt)
}

func TestRunTwiceDoesNotDoubleSettle(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	storeID := uuid.New()
	now := runAt(t)
	insertCompletedOrder(t, db, storeID, 300000, 75000, now.Add(-24*time.Hour))

	first, err := svc.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.BatchesCreated)

	second, err := svc.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, second.BatchesCreated)
	assert.Equal(t, 0, second.BatchesMerged)

	var count int64
	require.NoError(t, db.Model(&models.SettlementBatch{}).
		Where("store_id = ?", storeID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRunMergesNewOrdersIntoPendingBatch(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	storeID := uuid.New()
	firstRun := runAt(t)
	insertCompletedOrder(t, db, storeID, 80000, 20000, firstRun.Add(-24*time.Hour))

	result, err := svc.Run(ctx, firstRun)
	require.NoError(t, err)
	require.Equal(t, 1, result.BatchesCreated)
	require.Equal(t, 0, result.Submitted)

	// A week later another below-minimum order folds into the held batch
	// and pushes it over the line.
	secondRun := firstRun.AddDate(0, 0, 7)
	insertCompletedOrder(t, db, storeID, 80000, 20000, secondRun.Add(-24*time.Hour))

	result, err = svc.Run(ctx, secondRun)
	require.NoError(t, err)
	assert.Equal(t, 0, result.BatchesCreated)
	assert.Equal(t, 1, result.BatchesMerged)
	assert.Equal(t, 1, result.Submitted)

	var batches []models.SettlementBatch
	require.NoError(t, db.Where("store_id = ?", storeID).Find(&batches).Error)
	require.Len(t, batches, 1)
	assert.Equal(t, 2, batches[0].OrderCount)
	assert.Equal(t, 120000, batches[0].NetAmountKRW)
	assert.Equal(t, enums.SettlementStatusProcessing, batches[0].Status)

	var stamped int64
	require.NoError(t, db.Model(&models.Order{}).
		Where("settlement_id = ?", batches[0].ID).Count(&stamped).Error)
	assert.EqualValues(t, 2, stamped)
}

func TestConfirmPayout(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	storeID := uuid.New()
	now := runAt(t)
	insertCompletedOrder(t, db, storeID, 300000, 75000, now.Add(-24*time.Hour))

	_, err := svc.Run(ctx, now)
	require.NoError(t, err)

	var batch models.SettlementBatch
	require.NoError(t, db.First(&batch, "store_id = ?", storeID).Error)
	require.Equal(t, enums.SettlementStatusProcessing, batch.Status)

	paidAt := now.Add(2 * time.Hour)
	require.NoError(t, svc.ConfirmPayout(ctx, batch.ID, paidAt))

	require.NoError(t, db.First(&batch, "id = ?", batch.ID).Error)
	assert.Equal(t, enums.SettlementStatusCompleted, batch.Status)

	var events int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).
		Where("event_type = ? AND aggregate_id = ?", enums.EventSettlementBatchPaid, batch.ID).
		Count(&events).Error)
	assert.EqualValues(t, 1, events)

	// Paying twice is a state conflict.
	err = svc.ConfirmPayout(ctx, batch.ID, paidAt)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestSubmitBatchOverride(t *testing.T) {
	db := setupSettlementTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	storeID := uuid.New()
	now := runAt(t)
	insertCompletedOrder(t, db, storeID, 60000, 15000, now.Add(-24*time.Hour))

	_, err := svc.Run(ctx, now)
	require.NoError(t, err)

	var batch models.SettlementBatch
	require.NoError(t, db.First(&batch, "store_id = ?", storeID).Error)
	require.Equal(t, enums.SettlementStatusPending, batch.Status)

	require.NoError(t, svc.SubmitBatch(ctx, batch.ID))
	require.NoError(t, db.First(&batch, "id = ?", batch.ID).Error)
	assert.Equal(t, enums.SettlementStatusProcessing, batch.Status)
}
