package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KotFed0t/stock_ledger/config"
	"github.com/KotFed0t/stock_ledger/data"
	"github.com/KotFed0t/stock_ledger/data/broker"
	"github.com/KotFed0t/stock_ledger/data/repository/sqlstore"
	"github.com/KotFed0t/stock_ledger/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/stock_ledger/internal/externalApi/exchangeRateApi"
	"github.com/KotFed0t/stock_ledger/internal/externalApi/yahooApi"
	"github.com/KotFed0t/stock_ledger/internal/reportGenerator/xlsxGenerator"
	"github.com/KotFed0t/stock_ledger/internal/scheduler"
	"github.com/KotFed0t/stock_ledger/internal/service/ledgerService"
	"github.com/KotFed0t/stock_ledger/internal/service/priceSyncService"
	"github.com/KotFed0t/stock_ledger/internal/transport/httpapi"
	"github.com/jmoiron/sqlx"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := newDB(cfg)
	defer db.Close()

	store := sqlstore.New(db)

	var priceBroker broker.Broker = broker.NewMemoryBroker()
	if cfg.Redis.Enabled {
		redisClient := data.NewRedisClient(cfg)
		defer redisClient.Close()
		priceBroker = broker.NewRedisBroker(redisClient, cfg.Redis.ChannelPrefix)
	}

	quotesApi := yahooApi.New(cfg)
	ratesApi := exchangeRateApi.New(cfg)

	reportGenerator := xlsxGenerator.New()

	sched := scheduler.New()

	// без облака выгрузка доступна только файлом
	var cloudStorage ledgerService.CloudStorage
	if cfg.GoogleDrive.Enabled {
		drive, err := googleDriveApi.New(ctx, cfg)
		if err != nil {
			slog.Error("can't init google drive, uploads are disabled", slog.String("err", err.Error()))
		} else {
			cloudStorage = drive
			sched.AddExportCleanup(cfg, drive)
		}
	}

	ledgerSrv := ledgerService.New(store, ratesApi, reportGenerator, cloudStorage)
	priceSyncSrv := priceSyncService.New(cfg, quotesApi, store, priceBroker, ratesApi)

	sched.AddPriceRefresh(cfg, priceSyncSrv)
	sched.Start()
	defer sched.Stop()

	server := httpapi.New(cfg, ledgerSrv, priceSyncSrv, priceBroker)
	server.Start()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", slog.String("err", err.Error()))
	}
}

func newDB(cfg *config.Config) *sqlx.DB {
	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		return data.NewPostgresClient(cfg)
	case config.StorageDriverSQLite:
		return data.NewSQLiteClient(cfg.SQLite.Path)
	default:
		slog.Error("unknown storage driver", slog.String("driver", cfg.Storage.Driver))
		os.Exit(1)
		return nil
	}
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
