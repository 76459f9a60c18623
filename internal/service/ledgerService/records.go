package ledgerService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/stock_ledger/data/repository"
	"github.com/KotFed0t/stock_ledger/internal/costbasis"
	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/internal/service"
	"github.com/KotFed0t/stock_ledger/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddTrade applies a buy or sell to the holding and appends the record.
// The holding update and the record insert are one transaction.
func (s *LedgerService) AddTrade(ctx context.Context, holdingID string, in model.TradeInput) (holding model.Holding, record model.TradingRecord, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.AddTrade"

	slog.Debug(
		op+" start",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.String("holdingID", holdingID),
		slog.String("type", string(in.Type)),
		slog.String("price", in.Price.String()),
		slog.Int64("quantity", in.Quantity),
	)
	defer func() {
		slog.Debug(op+" finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("recordID", record.ID))
	}()

	unlock := s.locker.Lock(holdingID)
	defer unlock()

	current, err := s.repo.GetHolding(ctx, holdingID)
	if err != nil {
		return model.Holding{}, model.TradingRecord{}, notFound(err)
	}

	// до похода за курсом, чтобы не ждать сеть на заведомо плохом вводе
	if err = costbasis.Validate(current, in); err != nil {
		return model.Holding{}, model.TradingRecord{}, err
	}

	if current.Currency == model.CurrencyUSD && !in.ExchangeRate.Valid && s.rates != nil {
		in.ExchangeRate.Decimal = s.rates.UsdToKrw(ctx)
		in.ExchangeRate.Valid = true
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		h, err := s.repo.GetHolding(ctx, holdingID)
		if err != nil {
			return notFound(err)
		}

		now := s.now()
		next, rec, err := costbasis.Apply(h, in, now)
		if err != nil {
			return err
		}

		seq, err := s.repo.NextRecordSeq(ctx, holdingID)
		if err != nil {
			return err
		}
		rec.ID = uuid.NewString()
		rec.Seq = seq

		if err = s.repo.InsertTradingRecord(ctx, rec); err != nil {
			return err
		}
		if err = s.repo.UpdateHoldingPosition(ctx, holdingID, next, now); err != nil {
			return err
		}

		h = h.WithPosition(next)
		h.UpdatedAt = now
		holding, record = h, rec
		return nil
	})
	if err != nil {
		slog.Error("AddTrade failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, model.TradingRecord{}, err
	}

	return holding, record, nil
}

// ListRecords returns the ledger of the holding oldest first.
func (s *LedgerService) ListRecords(ctx context.Context, holdingID string) ([]model.TradingRecord, error) {
	if _, err := s.repo.GetHolding(ctx, holdingID); err != nil {
		return nil, notFound(err)
	}
	return s.repo.GetTradingRecords(ctx, holdingID)
}

// DeleteRecord removes recordID if it is the last record of the holding and
// restores the holding to the record's before-snapshot.
func (s *LedgerService) DeleteRecord(ctx context.Context, holdingID, recordID string) (holding model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.DeleteRecord"

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("holdingID", holdingID), slog.String("recordID", recordID))
	defer func() {
		slog.Debug(op+" finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("recordID", recordID))
	}()

	unlock := s.locker.Lock(holdingID)
	defer unlock()

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		h, err := s.repo.GetHolding(ctx, holdingID)
		if err != nil {
			return notFound(err)
		}

		// проверяем "последняя ли запись" прямо перед удалением, внутри транзакции
		last, err := s.repo.GetLastTradingRecord(ctx, holdingID)
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrEmptyLedger
		}
		if err != nil {
			return err
		}
		if last.ID != recordID {
			return &service.IntegrityError{HoldingID: holdingID, RecordID: recordID, LastRecordID: last.ID}
		}

		prev, err := costbasis.Undo(h, last)
		if err != nil {
			return fmt.Errorf("%w: %w", service.ErrLedgerInconsistent, err)
		}

		if err = s.repo.DeleteTradingRecord(ctx, last.ID); err != nil {
			return err
		}

		now := s.now()
		if err = s.repo.UpdateHoldingPosition(ctx, holdingID, prev, now); err != nil {
			return err
		}

		h = h.WithPosition(prev)
		h.UpdatedAt = now
		holding = h
		return nil
	})
	if err != nil {
		slog.Error("DeleteRecord failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	return holding, nil
}

// ResetHolding drops the whole ledger and sets the position to zero.
func (s *LedgerService) ResetHolding(ctx context.Context, holdingID string) (holding model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.ResetHolding"

	unlock := s.locker.Lock(holdingID)
	defer unlock()

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		h, err := s.repo.GetHolding(ctx, holdingID)
		if err != nil {
			return notFound(err)
		}

		deleted, err := s.repo.DeleteTradingRecords(ctx, holdingID)
		if err != nil {
			return err
		}

		now := s.now()
		empty := model.Position{Quantity: 0, AveragePrice: decimal.Zero}
		if err = s.repo.UpdateHoldingPosition(ctx, holdingID, empty, now); err != nil {
			return err
		}

		slog.Info("holding reset", slog.String("rqID", rqID), slog.String("op", op), slog.String("holdingID", holdingID), slog.Int64("deletedRecords", deleted))

		h = h.WithPosition(empty)
		h.UpdatedAt = now
		holding = h
		return nil
	})
	if err != nil {
		return model.Holding{}, err
	}

	return holding, nil
}

// VerifyLedger replays the stored snapshots and checks that they chain up to
// the current holding position.
func (s *LedgerService) VerifyLedger(ctx context.Context, holdingID string) error {
	h, err := s.repo.GetHolding(ctx, holdingID)
	if err != nil {
		return notFound(err)
	}

	records, err := s.repo.GetTradingRecords(ctx, holdingID)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		return nil
	}

	end, err := costbasis.CheckChain(openingPosition(records[0]), records)
	if err != nil {
		return fmt.Errorf("%w: %w", service.ErrLedgerInconsistent, err)
	}

	if end.Quantity != h.Quantity || !end.AveragePrice.Equal(h.AveragePrice) {
		return fmt.Errorf(
			"%w: ledger ends at %d@%s, holding has %d@%s",
			service.ErrLedgerInconsistent, end.Quantity, end.AveragePrice, h.Quantity, h.AveragePrice,
		)
	}
	return nil
}

// openingPosition - состояние позиции до первой записи
func openingPosition(first model.TradingRecord) model.Position {
	p := model.Position{Quantity: first.TotalQuantityBefore}
	switch first.Type {
	case model.TradeTypeBuy:
		p.AveragePrice = first.AveragePriceBefore.Decimal
	case model.TradeTypeSell:
		p.AveragePrice = first.AveragePriceAtSell.Decimal
	}
	return p
}
