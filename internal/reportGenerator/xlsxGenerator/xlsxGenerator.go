package xlsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SummarySheet    = "Summary"
	maxSheetNameLen = 31
	dateLayout      = "2006-01-02 15:04:05"
)

var ErrEmptyExport = errors.New("error nothing to export")

var sheetNameReplacer = strings.NewReplacer(
	"[", "(", "]", ")", ":", "-", "*", "-", "?", "", "/", "-", "\\", "-",
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

// Generate builds a workbook with a summary sheet and one sheet per holding.
func (g *XLSXGenerator) Generate(ctx context.Context, export model.AccountExport) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	if len(export.Holdings) == 0 {
		return nil, "", ErrEmptyExport
	}

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("accountID", export.Account.ID))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	// Sheet1 переименовываем в сводку, отдельный лист не создаем
	if err = f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, "", err
	}

	if err = g.fillSummary(f, export); err != nil {
		slog.Error("got error while filling summary", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	for i, hl := range export.Holdings {
		if err = g.fillHoldingSheet(f, hl, i+1); err != nil {
			slog.Error("got error while filling holding sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return nil, "", err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug(op+" completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func HoldingSheetName(ordinal int, h model.Holding) string {
	name := sheetNameReplacer.Replace(fmt.Sprintf("%d. %s", ordinal, h.Name()))
	if r := []rune(name); len(r) > maxSheetNameLen {
		name = string(r[:maxSheetNameLen])
	}
	return name
}

func (g *XLSXGenerator) fillSummary(f *excelize.File, export model.AccountExport) error {
	sheet := SummarySheet

	if err := g.header(f, sheet, 1, 1, 9, export.Account.Name, "#cfe2f3"); err != nil {
		return err
	}

	g.row(f, sheet, 2, "name", "ticker", "currency", "quantity", "average price", "current price", "cost basis", "market value", "records")

	for i, hl := range export.Holdings {
		h := hl.Holding
		rowNum := i + 3
		g.row(f, sheet, rowNum,
			h.Name(), h.Ticker, string(h.Currency), h.Quantity,
			num(h.AveragePrice), nullNum(h.CurrentPrice), num(h.CostBasis()), nil, len(hl.Records),
		)
		if mv, ok := h.MarketValue(); ok {
			cell, _ := excelize.CoordinatesToCellName(8, rowNum)
			_ = f.SetCellValue(sheet, cell, num(mv))
		}
	}

	return nil
}

func (g *XLSXGenerator) fillHoldingSheet(f *excelize.File, hl model.HoldingLedger, ordinal int) error {
	h := hl.Holding
	sheet := HoldingSheetName(ordinal, h)

	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	// позиция
	if err := g.header(f, sheet, 1, 1, 6, "Position", "#d9ead3"); err != nil {
		return err
	}
	g.row(f, sheet, 2, "ticker", "currency", "quantity", "average price", "current price", "cost basis")
	g.row(f, sheet, 3, h.Ticker, string(h.Currency), h.Quantity, num(h.AveragePrice), nullNum(h.CurrentPrice), num(h.CostBasis()))

	// история операций
	rowNum := 6
	if err := g.header(f, sheet, rowNum, 1, 11, "Trading records", "#cccccc"); err != nil {
		return err
	}

	rowNum++
	g.row(f, sheet, rowNum,
		"#", "type", "price", "quantity", "amount", "exchange rate",
		"avg before", "avg after", "profit", "qty after", "date",
	)

	for _, r := range hl.Records {
		rowNum++
		avgBefore, avgAfter := r.AveragePriceBefore, r.AveragePriceAfter
		if r.Type == model.TradeTypeSell {
			avgBefore, avgAfter = r.AveragePriceAtSell, r.AveragePriceAtSell
		}
		g.row(f, sheet, rowNum,
			r.Seq, string(r.Type), num(r.Price), r.Quantity, num(r.Amount()), nullNum(r.ExchangeRate),
			nullNum(avgBefore), nullNum(avgAfter), nullNum(r.Profit), r.TotalQuantityAfter,
			r.CreatedAt.UTC().Format(dateLayout),
		)
	}

	return nil
}

func (g *XLSXGenerator) header(f *excelize.File, sheet string, rowNum, fromCol, toCol int, title, color string) error {
	from, _ := excelize.CoordinatesToCellName(fromCol, rowNum)
	to, _ := excelize.CoordinatesToCellName(toCol, rowNum)

	if err := f.MergeCell(sheet, from, to); err != nil {
		return err
	}
	_ = f.SetCellStr(sheet, from, title)

	styleID, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
	if err != nil {
		return err
	}

	if err = f.SetCellStyle(sheet, from, from, styleID); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}
	return nil
}

func (g *XLSXGenerator) row(f *excelize.File, sheet string, rowNum int, values ...interface{}) {
	cell, _ := excelize.CoordinatesToCellName(1, rowNum)
	_ = f.SetSheetRow(sheet, cell, &values)
}

func num(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func nullNum(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.InexactFloat64()
}
