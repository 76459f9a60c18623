package ledgerService

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/internal/service"
	"github.com/KotFed0t/stock_ledger/utils"
)

type ExportResult struct {
	FileName  string
	Content   []byte
	ShareLink string
}

// ExportAccount renders the account's ledger into a file and, if upload is set,
// puts it to the cloud storage.
func (s *LedgerService) ExportAccount(ctx context.Context, accountID string, upload bool) (result ExportResult, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.ExportAccount"

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("accountID", accountID), slog.Bool("upload", upload))
	defer func() {
		slog.Debug(op+" finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("file", result.FileName))
	}()

	if upload && s.cloudStorage == nil {
		return ExportResult{}, service.ErrCloudStorageDisabled
	}

	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return ExportResult{}, notFound(err)
	}

	holdings, err := s.repo.GetHoldingsByAccount(ctx, accountID)
	if err != nil {
		return ExportResult{}, err
	}
	if len(holdings) == 0 {
		return ExportResult{}, service.ErrNothingToExport
	}

	export := model.AccountExport{Account: account, Holdings: make([]model.HoldingLedger, 0, len(holdings))}
	for _, h := range holdings {
		records, err := s.repo.GetTradingRecords(ctx, h.ID)
		if err != nil {
			return ExportResult{}, err
		}
		export.Holdings = append(export.Holdings, model.HoldingLedger{Holding: h, Records: records})
	}

	content, ext, err := s.report.Generate(ctx, export)
	if err != nil {
		slog.Error("got error from report.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return ExportResult{}, err
	}

	result = ExportResult{
		FileName: exportFileName(account, s.now().Format("20060102_150405"), ext),
		Content:  content,
	}

	if upload {
		result.ShareLink, err = s.cloudStorage.UploadFile(ctx, bytes.NewReader(content), result.FileName)
		if err != nil {
			return ExportResult{}, fmt.Errorf("upload export: %w", err)
		}
	}

	return result, nil
}

func exportFileName(account model.Account, stamp, ext string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, account.Name)
	return fmt.Sprintf("ledger_%s_%s%s", name, stamp, ext)
}
