package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KotFed0t/stock_ledger/config"
	"github.com/KotFed0t/stock_ledger/internal/service/priceSyncService"
	"github.com/KotFed0t/stock_ledger/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refresherFunc func(ctx context.Context) (priceSyncService.RefreshReport, error)

func (f refresherFunc) RefreshAll(ctx context.Context) (priceSyncService.RefreshReport, error) {
	return f(ctx)
}

type cleanerFunc func(ctx context.Context) error

func (f cleanerFunc) DeleteOldFiles(ctx context.Context) error {
	return f(ctx)
}

func TestTaskWithRecover_SurvivesPanic(t *testing.T) {
	task := taskWithRecover(func(ctx context.Context) error {
		panic("boom")
	}, "panicking")

	assert.NotPanics(t, func() { task(context.Background()) })
}

func TestTaskWithRecover_SetsRequestID(t *testing.T) {
	var rqID string
	task := taskWithRecover(func(ctx context.Context) error {
		rqID = utils.GetRequestIDFromCtx(ctx)
		return errors.New("failed")
	}, "with error")

	task(context.Background())
	assert.NotEmpty(t, rqID)
}

func TestAddPriceRefresh_RunsImmediately(t *testing.T) {
	cfg := &config.Config{Jobs: config.Jobs{PriceRefreshInterval: time.Hour, ReportCleanupCrontab: "0 0 4 * * *"}}

	var runs atomic.Int32
	done := make(chan struct{}, 1)

	s := New()
	s.AddPriceRefresh(cfg, refresherFunc(func(ctx context.Context) (priceSyncService.RefreshReport, error) {
		if runs.Add(1) == 1 {
			done <- struct{}{}
		}
		return priceSyncService.RefreshReport{Failed: []string{"AAPL"}}, nil
	}))
	s.AddExportCleanup(cfg, cleanerFunc(func(ctx context.Context) error { return nil }))
	require.Equal(t, 2, s.JobsCount())

	s.Start()
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("price refresh job did not start")
	}
	assert.Equal(t, int32(1), runs.Load())
}
