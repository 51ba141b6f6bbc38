package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bloomlink/bloomlink-backend/internal/settlement"
	"github.com/bloomlink/bloomlink-backend/pkg/config"
	"github.com/bloomlink/bloomlink-backend/pkg/logger"
)

func newSettlementJob(t *testing.T, runner *fakeSettlementRunner) *settlementJob {
	t.Helper()
	scheduler, err := settlement.NewScheduler(config.SettlementConfig{
		Weekday:  5,
		Hour:     14,
		Minute:   0,
		Timezone: "Asia/Seoul",
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	jobIface, err := NewSettlementJob(SettlementJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Settlement: runner,
		Scheduler:  scheduler,
		Window:     time.Hour,
	})
	if err != nil {
		t.Fatalf("NewSettlementJob: %v", err)
	}
	job, ok := jobIface.(*settlementJob)
	if !ok {
		t.Fatalf("expected settlementJob, got %T", jobIface)
	}
	return job
}

func seoulTime(t *testing.T, day, hour, minute int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Fatalf("loading timezone: %v", err)
	}
	return time.Date(2025, 8, day, hour, minute, 0, 0, loc)
}

func TestSettlementJobRunsWhenCutoffIsDue(t *testing.T) {
	runner := &fakeSettlementRunner{}
	job := newSettlementJob(t, runner)
	// 14:30 Friday, half an hour after the cutoff.
	job.now = func() time.Time { return seoulTime(t, 22, 14, 30) }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if runner.called != 1 {
		t.Fatalf("expected settlement run once, got %d", runner.called)
	}
}

func TestSettlementJobSkipsWhenNotDue(t *testing.T) {
	runner := &fakeSettlementRunner{}
	job := newSettlementJob(t, runner)

	cases := []struct {
		name string
		now  time.Time
	}{
		{name: "wednesday", now: seoulTime(t, 20, 14, 30)},
		{name: "friday before cutoff", now: seoulTime(t, 22, 13, 30)},
		{name: "friday well after window", now: seoulTime(t, 22, 16, 30)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job.now = func() time.Time { return tc.now }
			if err := job.Run(context.Background()); err != nil {
				t.Fatalf("Run: %v", err)
			}
		})
	}
	if runner.called != 0 {
		t.Fatalf("expected no settlement runs, got %d", runner.called)
	}
}

func TestSettlementJobPropagatesError(t *testing.T) {
	runner := &fakeSettlementRunner{err: errors.New("boom")}
	job := newSettlementJob(t, runner)
	job.now = func() time.Time { return seoulTime(t, 22, 14, 30) }

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeSettlementRunner struct {
	called int
	err    error
}

func (f *fakeSettlementRunner) Run(ctx context.Context, now time.Time) (*settlement.RunResult, error) {
	f.called++
	if f.err != nil {
		return nil, f.err
	}
	return &settlement.RunResult{StoresExamined: 3, BatchesCreated: 2, Submitted: 1}, nil
}
