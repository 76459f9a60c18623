package ledgerService

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/KotFed0t/stock_ledger/data/repository"
	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/internal/service"
	"github.com/KotFed0t/stock_ledger/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateHoldingInput - при пустой Currency валюта определяется по тикеру
type CreateHoldingInput struct {
	AccountID   string
	Ticker      string
	DisplayName string
	Currency    string
}

// CreateHolding adds a ticker to the account with an empty position.
func (s *LedgerService) CreateHolding(ctx context.Context, in CreateHoldingInput) (holding model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.CreateHolding"

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("accountID", in.AccountID), slog.String("ticker", in.Ticker))
	defer func() {
		slog.Debug(op+" finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("holdingID", holding.ID))
	}()

	ticker := model.NormalizeTicker(in.Ticker)
	if ticker == "" {
		return model.Holding{}, service.NewValidationError(service.RuleEmptyTicker, "ticker is empty")
	}

	currency := model.CurrencyFromTicker(ticker)
	if strings.TrimSpace(in.Currency) != "" {
		var ok bool
		if currency, ok = model.ParseCurrency(in.Currency); !ok {
			return model.Holding{}, service.NewValidationError(service.RuleInvalidCurrency, "unsupported currency %q", in.Currency)
		}
	}

	if _, err = s.repo.GetAccount(ctx, in.AccountID); err != nil {
		return model.Holding{}, notFound(err)
	}

	now := s.now()
	holding = model.Holding{
		ID:           uuid.NewString(),
		AccountID:    in.AccountID,
		Ticker:       ticker,
		DisplayName:  optionalName(in.DisplayName),
		Quantity:     0,
		AveragePrice: decimal.Zero,
		Currency:     currency,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.repo.InsertHolding(ctx, holding)
	if errors.Is(err, repository.ErrAlreadyExists) {
		return model.Holding{}, service.NewValidationError(service.RuleDuplicateTicker, "ticker %s already exists in account", ticker)
	}
	if err != nil {
		slog.Error("got error from repo.InsertHolding", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	return holding, nil
}

func (s *LedgerService) GetHolding(ctx context.Context, holdingID string) (model.Holding, error) {
	h, err := s.repo.GetHolding(ctx, holdingID)
	if err != nil {
		return model.Holding{}, notFound(err)
	}
	return h, nil
}

func (s *LedgerService) ListHoldings(ctx context.Context, accountID string) ([]model.Holding, error) {
	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return nil, notFound(err)
	}
	return s.repo.GetHoldingsByAccount(ctx, accountID)
}

// RenameHolding sets the display alias; an empty name clears it.
// Ticker, currency and official name are immutable.
func (s *LedgerService) RenameHolding(ctx context.Context, holdingID, displayName string) (model.Holding, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.RenameHolding"

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("holdingID", holdingID))

	if err := s.repo.UpdateHoldingDisplayName(ctx, holdingID, optionalName(displayName), s.now()); err != nil {
		return model.Holding{}, notFound(err)
	}
	return s.GetHolding(ctx, holdingID)
}

// DeleteHolding removes the holding and its whole ledger.
func (s *LedgerService) DeleteHolding(ctx context.Context, holdingID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.DeleteHolding"

	unlock := s.locker.Lock(holdingID)
	defer unlock()

	slog.Info("deleting holding", slog.String("rqID", rqID), slog.String("op", op), slog.String("holdingID", holdingID))

	return notFound(s.repo.DeleteHolding(ctx, holdingID))
}

func optionalName(name string) *string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return &name
}
