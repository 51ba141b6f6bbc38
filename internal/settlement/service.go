package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/bloomlink/bloomlink-backend/internal/orders"
	"github.com/bloomlink/bloomlink-backend/pkg/config"
	dbpkg "github.com/bloomlink/bloomlink-backend/pkg/db"
	"github.com/bloomlink/bloomlink-backend/pkg/db/models"
	"github.com/bloomlink/bloomlink-backend/pkg/enums"
	pkgerrors "github.com/bloomlink/bloomlink-backend/pkg/errors"
	"github.com/bloomlink/bloomlink-backend/pkg/outbox"
	"github.com/bloomlink/bloomlink-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type serviceLogger interface {
	WithStoreID(ctx context.Context, storeID string) context.Context
	WithBatchID(ctx context.Context, batchID string) context.Context
	WithFields(ctx context.Context, fields map[string]any) context.Context
	Info(ctx context.Context, msg string)
	Warn(ctx context.Context, msg string)
	Error(ctx context.Context, msg string, err error)
}

// RunResult summarizes one settlement pass.
type RunResult struct {
	PeriodStart    time.Time
	PeriodEnd      time.Time
	StoresExamined int
	BatchesCreated int
	BatchesMerged  int
	Submitted      int
}

// Service runs the weekly settlement pass and manages batch payout state.
type Service interface {
	Run(ctx context.Context, now time.Time) (*RunResult, error)
	SubmitBatch(ctx context.Context, batchID uuid.UUID) error
	ConfirmPayout(ctx context.Context, batchID uuid.UUID, paidAt time.Time) error
}

type service struct {
	batches   Repository
	orders    orders.Repository
	tx        txRunner
	outbox    outboxPublisher
	scheduler *Scheduler
	cfg       config.SettlementConfig
	logg      serviceLogger
}

// NewService builds a settlement service with the required dependencies.
func NewService(batches Repository, orderRepo orders.Repository, tx txRunner, ob outboxPublisher, scheduler *Scheduler, cfg config.SettlementConfig, logg serviceLogger) (Service, error) {
	if batches == nil {
		return nil, fmt.Errorf("settlement repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if scheduler == nil {
		return nil, fmt.Errorf("scheduler required")
	}
	return &service{
		batches:   batches,
		orders:    orderRepo,
		tx:        tx,
		outbox:    ob,
		scheduler: scheduler,
		cfg:       cfg,
		logg:      logg,
	}, nil
}

// Run settles every store with unsettled completed orders for the most
// recently closed period. A failure on one store is recorded and the pass
// moves on; the combined error carries each store's failure.
func (s *service) Run(ctx context.Context, now time.Time) (*RunResult, error) {
	periodStart, periodEnd := s.scheduler.CurrentPeriod(now)

	storeIDs, err := s.orders.ListStoreIDsWithUnsettledOrders(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing stores with unsettled orders")
	}

	result := &RunResult{
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		StoresExamined: len(storeIDs),
	}

	var runErr error
	for _, storeID := range storeIDs {
		if err := s.settleStore(ctx, result, storeID, periodStart, periodEnd, now); err != nil {
			if s.logg != nil {
				s.logg.Error(s.logg.WithStoreID(ctx, storeID.String()), "store settlement failed", err)
			}
			runErr = multierr.Append(runErr, fmt.Errorf("store %s: %w", storeID, err))
		}
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"period_start":    periodStart,
			"period_end":      periodEnd,
			"stores_examined": result.StoresExamined,
			"batches_created": result.BatchesCreated,
			"batches_merged":  result.BatchesMerged,
			"submitted":       result.Submitted,
		})
		s.logg.Info(logCtx, "settlement pass finished")
	}
	return result, runErr
}

func (s *service) settleStore(ctx context.Context, result *RunResult, storeID uuid.UUID, periodStart, periodEnd, now time.Time) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		batches := s.batches.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		unsettled, err := orderRepo.ListCompletedUnsettled(ctx, storeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing unsettled orders")
		}
		eligible := ordersCompletedBefore(unsettled, periodEnd)
		if len(eligible) == 0 {
			return nil
		}

		// A batch for this exact period that already moved past pending
		// means this run fired twice; leave it alone.
		existing, err := batches.FindByStorePeriod(ctx, storeID, periodStart, periodEnd)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading existing batch")
		}
		if existing != nil && existing.Status != enums.SettlementStatusPending {
			return pkgerrors.New(pkgerrors.CodeSettlementConflict,
				fmt.Sprintf("period already settled with status %s", existing.Status))
		}

		target := existing
		if target == nil {
			// New orders fold into an older still-pending batch instead of
			// opening a second one for the same store.
			target, err = batches.FindPendingByStore(ctx, storeID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading pending batch")
			}
		}

		var total, commissionTotal int
		orderIDs := make([]uuid.UUID, 0, len(eligible))
		for _, o := range eligible {
			total += o.TotalKRW
			commissionTotal += o.CommissionKRW
			orderIDs = append(orderIDs, o.ID)
		}

		if target == nil {
			batch := &models.SettlementBatch{
				StoreID:             storeID,
				PeriodStart:         periodStart,
				PeriodEnd:           periodEnd,
				OrderCount:          len(eligible),
				TotalAmountKRW:      total,
				CommissionAmountKRW: commissionTotal,
				NetAmountKRW:        total - commissionTotal,
				Status:              enums.SettlementStatusPending,
			}
			if err := batches.Create(ctx, batch); err != nil {
				if dbpkg.IsUniqueViolation(err, "ux_settlement_batches_store_period") {
					return pkgerrors.New(pkgerrors.CodeSettlementConflict, "period already settled")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating settlement batch")
			}
			if err := orderRepo.SetSettlementID(ctx, orderIDs, batch.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stamping settlement id")
			}
			result.BatchesCreated++

			submitted := s.maybeSubmit(ctx, batches, batch, now)
			if submitted {
				result.Submitted++
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventSettlementBatchCreated,
				AggregateType: enums.AggregateSettlementBatch,
				AggregateID:   batch.ID,
				Version:       1,
				Data: payloads.SettlementBatchCreatedEvent{
					SettlementID:        batch.ID,
					StoreID:             storeID,
					PeriodStart:         periodStart,
					PeriodEnd:           periodEnd,
					OrderCount:          batch.OrderCount,
					TotalAmountKRW:      batch.TotalAmountKRW,
					CommissionAmountKRW: batch.CommissionAmountKRW,
					NetAmountKRW:        batch.NetAmountKRW,
					Submitted:           submitted,
				},
			})
		}

		// Merge path: extend the open batch through the current period end
		// and add the new orders to its totals.
		target.OrderCount += len(eligible)
		target.TotalAmountKRW += total
		target.CommissionAmountKRW += commissionTotal
		target.NetAmountKRW = target.TotalAmountKRW - target.CommissionAmountKRW
		updates := map[string]any{
			"period_end":            periodEnd,
			"order_count":           target.OrderCount,
			"total_amount_krw":      target.TotalAmountKRW,
			"commission_amount_krw": target.CommissionAmountKRW,
			"net_amount_krw":        target.NetAmountKRW,
		}
		if err := batches.UpdateFields(ctx, target.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merging settlement batch")
		}
		if err := orderRepo.SetSettlementID(ctx, orderIDs, target.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stamping settlement id")
		}
		target.PeriodEnd = periodEnd
		result.BatchesMerged++

		if s.maybeSubmit(ctx, batches, target, now) {
			result.Submitted++
		}
		return nil
	})
}

// maybeSubmit moves a batch to processing when its net amount reaches the
// minimum. Below-minimum batches stay pending and roll into the next pass.
func (s *service) maybeSubmit(ctx context.Context, batches Repository, batch *models.SettlementBatch, now time.Time) bool {
	if batch.NetAmountKRW < s.cfg.MinSettlementAmountKRW {
		if s.logg != nil {
			logCtx := s.logg.WithBatchID(ctx, batch.ID.String())
			logCtx = s.logg.WithFields(logCtx, map[string]any{
				"net_amount_krw": batch.NetAmountKRW,
				"min_amount_krw": s.cfg.MinSettlementAmountKRW,
			})
			s.logg.Info(logCtx, "batch below minimum, held pending")
		}
		return false
	}
	processedAt := now.UTC()
	err := batches.UpdateFields(ctx, batch.ID, map[string]any{
		"status":       enums.SettlementStatusProcessing,
		"processed_at": processedAt,
	})
	if err != nil {
		// Submission is retryable on the next pass; the batch stays pending.
		if s.logg != nil {
			s.logg.Error(s.logg.WithBatchID(ctx, batch.ID.String()), "submitting batch failed", err)
		}
		return false
	}
	batch.Status = enums.SettlementStatusProcessing
	batch.ProcessedAt = &processedAt
	return true
}

// SubmitBatch is the operator override that submits a pending batch even
// when it is below the minimum amount.
func (s *service) SubmitBatch(ctx context.Context, batchID uuid.UUID) error {
	batch, err := s.findBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if batch.Status != enums.SettlementStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("batch in status %s cannot be submitted", batch.Status))
	}
	err = s.batches.UpdateFields(ctx, batchID, map[string]any{
		"status":       enums.SettlementStatusProcessing,
		"processed_at": time.Now().UTC(),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "submitting batch")
	}
	return nil
}

// ConfirmPayout marks a processing batch completed once the payout
// collaborator confirms the transfer.
func (s *service) ConfirmPayout(ctx context.Context, batchID uuid.UUID, paidAt time.Time) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		batches := s.batches.WithTx(tx)

		batch, err := batches.FindByID(ctx, batchID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "settlement batch not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading batch")
		}
		if batch.Status != enums.SettlementStatusProcessing {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("batch in status %s cannot be paid", batch.Status))
		}

		err = batches.UpdateFields(ctx, batchID, map[string]any{
			"status":       enums.SettlementStatusCompleted,
			"processed_at": paidAt.UTC(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "completing batch")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSettlementBatchPaid,
			AggregateType: enums.AggregateSettlementBatch,
			AggregateID:   batch.ID,
			Version:       1,
			Data: payloads.SettlementBatchPaidEvent{
				SettlementID: batch.ID,
				StoreID:      batch.StoreID,
				NetAmountKRW: batch.NetAmountKRW,
				PaidAt:       paidAt.UTC(),
			},
		})
	})
}

func (s *service) findBatch(ctx context.Context, batchID uuid.UUID) (*models.SettlementBatch, error) {
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "settlement batch not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading batch")
	}
	return batch, nil
}

func ordersCompletedBefore(all []models.Order, cutoff time.Time) []models.Order {
	eligible := make([]models.Order, 0, len(all))
	for _, o := range all {
		if o.CompletedAt != nil && o.CompletedAt.Before(cutoff) {
			eligible = append(eligible, o)
		}
	}
	return eligible
}
