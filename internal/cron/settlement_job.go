package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/bloomlink/bloomlink-backend/internal/settlement"
	"github.com/bloomlink/bloomlink-backend/pkg/logger"
)

type settlementRunner interface {
	Run(ctx context.Context, now time.Time) (*settlement.RunResult, error)
}

type cutoffSource interface {
	NextSettlementDate(from time.Time) time.Time
}

// SettlementJobParams configure the weekly settlement job.
type SettlementJobParams struct {
	Logger     *logger.Logger
	Settlement settlementRunner
	Scheduler  cutoffSource

	// Window is how far back a cutoff may lie and still trigger this cycle.
	// It should match the worker's tick interval so exactly one cycle per
	// week sees the cutoff as due.
	Window time.Duration
}

func NewSettlementJob(params SettlementJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	if params.Scheduler == nil {
		return nil, fmt.Errorf("scheduler required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultInterval
	}
	return &settlementJob{
		logg:       params.Logger,
		settlement: params.Settlement,
		scheduler:  params.Scheduler,
		window:     window,
		now:        time.Now,
	}, nil
}

type settlementJob struct {
	logg       *logger.Logger
	settlement settlementRunner
	scheduler  cutoffSource
	window     time.Duration
	now        func() time.Time
}

func (j *settlementJob) Name() string { return "weekly-settlement" }

// Run fires the settlement pass only when a cutoff fell inside the trailing
// window. The worker ticks far more often than settlements happen; every
// other cycle is a no-op.
func (j *settlementJob) Run(ctx context.Context) error {
	now := j.now()
	lastCutoff := j.scheduler.NextSettlementDate(now).Add(-7 * 24 * time.Hour)
	if lastCutoff.Before(now.Add(-j.window)) {
		return nil
	}

	result, err := j.settlement.Run(ctx, now)
	if result != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"period_start":    result.PeriodStart,
			"period_end":      result.PeriodEnd,
			"stores_examined": result.StoresExamined,
			"batches_created": result.BatchesCreated,
			"batches_merged":  result.BatchesMerged,
			"submitted":       result.Submitted,
		})
		j.logg.Info(logCtx, "settlement job finished")
	}
	if err != nil {
		return fmt.Errorf("weekly settlement: %w", err)
	}
	return nil
}
