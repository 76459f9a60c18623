package ledgerService

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/KotFed0t/stock_ledger/data/repository"
	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/internal/service"
	"github.com/shopspring/decimal"
)

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error

	InsertAccount(ctx context.Context, account model.Account) error
	GetAccount(ctx context.Context, accountID string) (model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	UpdateAccountName(ctx context.Context, accountID, name string, updatedAt time.Time) error
	DeleteAccount(ctx context.Context, accountID string) error

	InsertHolding(ctx context.Context, holding model.Holding) error
	GetHolding(ctx context.Context, holdingID string) (model.Holding, error)
	GetHoldingsByAccount(ctx context.Context, accountID string) ([]model.Holding, error)
	UpdateHoldingPosition(ctx context.Context, holdingID string, position model.Position, updatedAt time.Time) error
	UpdateHoldingDisplayName(ctx context.Context, holdingID string, name *string, updatedAt time.Time) error
	DeleteHolding(ctx context.Context, holdingID string) error

	InsertTradingRecord(ctx context.Context, record model.TradingRecord) error
	GetTradingRecords(ctx context.Context, holdingID string) ([]model.TradingRecord, error)
	GetLastTradingRecord(ctx context.Context, holdingID string) (model.TradingRecord, error)
	NextRecordSeq(ctx context.Context, holdingID string) (int64, error)
	DeleteTradingRecord(ctx context.Context, recordID string) error
	DeleteTradingRecords(ctx context.Context, holdingID string) (int64, error)
	SumRealizedProfit(ctx context.Context, accountID string, currency model.Currency) (decimal.Decimal, error)
}

type ExchangeRateApi interface {
	UsdToKrw(ctx context.Context) decimal.Decimal
}

type ReportGenerator interface {
	Generate(ctx context.Context, export model.AccountExport) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (shareLink string, err error)
}

// LedgerService owns every write to holding positions and trading records.
type LedgerService struct {
	repo         Repository
	rates        ExchangeRateApi
	report       ReportGenerator
	cloudStorage CloudStorage
	locker       *keyedLocker
	now          func() time.Time
}

// New - cloudStorage может быть nil, тогда выгрузка только файлом
func New(repo Repository, rates ExchangeRateApi, report ReportGenerator, cloudStorage CloudStorage) *LedgerService {
	return &LedgerService{
		repo:         repo,
		rates:        rates,
		report:       report,
		cloudStorage: cloudStorage,
		locker:       newKeyedLocker(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return service.ErrNotFound
	}
	return err
}
