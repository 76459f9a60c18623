package ledgerService

import (
	"context"
	"log/slog"
	"strings"

	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/internal/service"
	"github.com/KotFed0t/stock_ledger/utils"
	"github.com/google/uuid"
)

// CreateAccount creates an empty account. Empty currency means KRW.
func (s *LedgerService) CreateAccount(ctx context.Context, name, currency string) (account model.Account, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.CreateAccount"

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", name))
	defer func() {
		slog.Debug(op+" finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("accountID", account.ID))
	}()

	name = strings.TrimSpace(name)
	if name == "" {
		return model.Account{}, service.NewValidationError(service.RuleEmptyName, "account name is empty")
	}

	cur := model.CurrencyKRW
	if strings.TrimSpace(currency) != "" {
		var ok bool
		if cur, ok = model.ParseCurrency(currency); !ok {
			return model.Account{}, service.NewValidationError(service.RuleInvalidCurrency, "unsupported currency %q", currency)
		}
	}

	now := s.now()
	account = model.Account{
		ID:        uuid.NewString(),
		Name:      name,
		Currency:  cur,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err = s.repo.InsertAccount(ctx, account); err != nil {
		slog.Error("got error from repo.InsertAccount", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Account{}, err
	}

	return account, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, accountID string) (model.Account, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return model.Account{}, notFound(err)
	}
	return account, nil
}

func (s *LedgerService) ListAccounts(ctx context.Context) ([]model.Account, error) {
	return s.repo.ListAccounts(ctx)
}

func (s *LedgerService) RenameAccount(ctx context.Context, accountID, name string) (model.Account, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.RenameAccount"

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("accountID", accountID))

	name = strings.TrimSpace(name)
	if name == "" {
		return model.Account{}, service.NewValidationError(service.RuleEmptyName, "account name is empty")
	}

	if err := s.repo.UpdateAccountName(ctx, accountID, name, s.now()); err != nil {
		return model.Account{}, notFound(err)
	}

	return s.GetAccount(ctx, accountID)
}

// DeleteAccount removes the account with all of its holdings and records.
func (s *LedgerService) DeleteAccount(ctx context.Context, accountID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.DeleteAccount"

	slog.Info("deleting account", slog.String("rqID", rqID), slog.String("op", op), slog.String("accountID", accountID))

	return notFound(s.repo.DeleteAccount(ctx, accountID))
}
