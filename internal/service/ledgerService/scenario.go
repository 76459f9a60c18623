package ledgerService

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KotFed0t/stock_ledger/internal/calculator"
	"github.com/KotFed0t/stock_ledger/internal/costbasis"
	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/internal/service"
	"github.com/KotFed0t/stock_ledger/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxScenarioNameAttempts = 1000

type SaveScenarioInput struct {
	AccountID        string
	Name             string
	BaseAveragePrice decimal.Decimal
	BaseQuantity     int64
	Rounds           []calculator.Round
	Currency         string
}

// SaveScenario stores an averaging projection as a holding of its own.
// The base position is the holding's state before the ledger and every round
// becomes a BUY record, so the scenario can be edited like a real holding.
func (s *LedgerService) SaveScenario(ctx context.Context, in SaveScenarioInput) (holding model.Holding, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.SaveScenario"

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("accountID", in.AccountID), slog.Int("rounds", len(in.Rounds)))
	defer func() {
		slog.Debug(op+" finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("holdingID", holding.ID))
	}()

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Holding{}, service.NewValidationError(service.RuleEmptyName, "scenario name is empty")
	}
	if len(in.Rounds) == 0 {
		return model.Holding{}, service.NewValidationError(service.RuleEmptyScenario, "scenario has no rounds")
	}
	if in.BaseQuantity < 0 {
		return model.Holding{}, service.NewValidationError(service.RuleNonPositiveQuantity, "base quantity must not be negative, got %d", in.BaseQuantity)
	}
	if in.BaseAveragePrice.IsNegative() {
		return model.Holding{}, service.NewValidationError(service.RuleNonPositivePrice, "base average price must not be negative, got %s", in.BaseAveragePrice)
	}

	account, err := s.repo.GetAccount(ctx, in.AccountID)
	if err != nil {
		return model.Holding{}, notFound(err)
	}

	currency := account.Currency
	if strings.TrimSpace(in.Currency) != "" {
		var ok bool
		if currency, ok = model.ParseCurrency(in.Currency); !ok {
			return model.Holding{}, service.NewValidationError(service.RuleInvalidCurrency, "unsupported currency %q", in.Currency)
		}
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetHoldingsByAccount(ctx, account.ID)
		if err != nil {
			return err
		}

		uniqueName, err := uniqueScenarioName(name, existing)
		if err != nil {
			return err
		}

		now := s.now()
		h := model.Holding{
			ID:           uuid.NewString(),
			AccountID:    account.ID,
			Ticker:       model.NormalizeTicker(uniqueName),
			DisplayName:  &uniqueName,
			Quantity:     in.BaseQuantity,
			AveragePrice: in.BaseAveragePrice,
			Currency:     currency,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err = s.repo.InsertHolding(ctx, h); err != nil {
			return err
		}

		for i, r := range in.Rounds {
			next, rec, err := costbasis.Apply(h, model.TradeInput{Type: model.TradeTypeBuy, Price: r.Price, Quantity: r.Quantity}, now)
			if err != nil {
				return fmt.Errorf("round %d: %w", i+1, err)
			}
			rec.ID = uuid.NewString()
			rec.Seq = int64(i + 1)
			if err = s.repo.InsertTradingRecord(ctx, rec); err != nil {
				return err
			}
			h = h.WithPosition(next)
		}

		if err = s.repo.UpdateHoldingPosition(ctx, h.ID, h.Position(), now); err != nil {
			return err
		}

		holding = h
		return nil
	})
	if err != nil {
		slog.Error("SaveScenario failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Holding{}, err
	}

	return holding, nil
}

// uniqueScenarioName returns name, "name (1)", "name (2)"... whichever is free both
// as a display name and as a ticker in the account.
func uniqueScenarioName(name string, existing []model.Holding) (string, error) {
	names := make(map[string]struct{}, len(existing))
	tickers := make(map[string]struct{}, len(existing))
	for _, h := range existing {
		names[h.Name()] = struct{}{}
		tickers[h.Ticker] = struct{}{}
	}

	candidate := name
	for i := 1; i <= maxScenarioNameAttempts; i++ {
		_, nameTaken := names[candidate]
		_, tickerTaken := tickers[model.NormalizeTicker(candidate)]
		if !nameTaken && !tickerTaken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s (%d)", name, i)
	}

	return "", service.NewValidationError(service.RuleDuplicateTicker, "no free name left for scenario %q", name)
}
