package scheduler

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/stock_ledger/config"
	"github.com/KotFed0t/stock_ledger/internal/service/priceSyncService"
	"github.com/KotFed0t/stock_ledger/utils"
)

const (
	PriceRefreshJob  = "refresh holding prices"
	ExportCleanupJob = "delete old exports"
)

type PriceRefresher interface {
	RefreshAll(ctx context.Context) (priceSyncService.RefreshReport, error)
}

type FileCleaner interface {
	DeleteOldFiles(ctx context.Context) error
}

// AddPriceRefresh refreshes prices of all tracked tickers every Jobs.PriceRefreshInterval.
func (s *Scheduler) AddPriceRefresh(cfg *config.Config, refresher PriceRefresher) {
	s.NewIntervalJob(PriceRefreshJob, func(ctx context.Context) error {
		report, err := refresher.RefreshAll(ctx)
		if err != nil {
			return err
		}
		if len(report.Failed) > 0 {
			slog.Warn(
				"some prices were not refreshed",
				slog.String("rqID", utils.GetRequestIDFromCtx(ctx)),
				slog.Any("tickers", report.Failed),
			)
		}
		return nil
	}, cfg.Jobs.PriceRefreshInterval, true)
}

func (s *Scheduler) AddExportCleanup(cfg *config.Config, cleaner FileCleaner) {
	s.NewCrontabJob(ExportCleanupJob, cleaner.DeleteOldFiles, cfg.Jobs.ReportCleanupCrontab, false)
}
