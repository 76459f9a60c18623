package httpapi

import (
	"time"

	"github.com/KotFed0t/stock_ledger/internal/calculator"
	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/internal/service/priceSyncService"
	"github.com/shopspring/decimal"
)

type accountRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

type holdingRequest struct {
	Ticker      string `json:"ticker"`
	DisplayName string `json:"displayName"`
	Currency    string `json:"currency"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type tradeRequest struct {
	Type         string              `json:"type"`
	Price        decimal.Decimal     `json:"price"`
	Quantity     int64               `json:"quantity"`
	ExchangeRate decimal.NullDecimal `json:"exchangeRate"`
}

type roundRequest struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

type averagingRequest struct {
	BaseAveragePrice decimal.Decimal     `json:"baseAveragePrice"`
	BaseQuantity     int64               `json:"baseQuantity"`
	Rounds           []roundRequest      `json:"rounds"`
	FeeRate          decimal.NullDecimal `json:"feeRate"`
	Currency         string              `json:"currency"`
}

type scenarioRequest struct {
	Name             string          `json:"name"`
	BaseAveragePrice decimal.Decimal `json:"baseAveragePrice"`
	BaseQuantity     int64           `json:"baseQuantity"`
	Rounds           []roundRequest  `json:"rounds"`
	Currency         string          `json:"currency"`
}

type profitRequest struct {
	BuyPrice  decimal.Decimal     `json:"buyPrice"`
	SellPrice decimal.Decimal     `json:"sellPrice"`
	Quantity  int64               `json:"quantity"`
	TaxRate   decimal.NullDecimal `json:"taxRate"`
	FeeRate   decimal.NullDecimal `json:"feeRate"`
	Currency  string              `json:"currency"`
}

type refreshRequest struct {
	Tickers []string `json:"tickers"`
}

type accountView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toAccountView(a model.Account) accountView {
	return accountView{ID: a.ID, Name: a.Name, Currency: string(a.Currency), CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt}
}

type holdingView struct {
	ID           string              `json:"id"`
	AccountID    string              `json:"accountId"`
	Ticker       string              `json:"ticker"`
	Name         string              `json:"name"`
	OfficialName *string             `json:"officialName"`
	DisplayName  *string             `json:"displayName"`
	Quantity     int64               `json:"quantity"`
	AveragePrice decimal.Decimal     `json:"averagePrice"`
	CurrentPrice decimal.NullDecimal `json:"currentPrice"`
	CostBasis    decimal.Decimal     `json:"costBasis"`
	MarketValue  decimal.NullDecimal `json:"marketValue"`
	Currency     string              `json:"currency"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

func toHoldingView(h model.Holding) holdingView {
	v := holdingView{
		ID:           h.ID,
		AccountID:    h.AccountID,
		Ticker:       h.Ticker,
		Name:         h.Name(),
		OfficialName: h.OfficialName,
		DisplayName:  h.DisplayName,
		Quantity:     h.Quantity,
		AveragePrice: h.AveragePrice,
		CurrentPrice: h.CurrentPrice,
		CostBasis:    h.CostBasis(),
		Currency:     string(h.Currency),
		CreatedAt:    h.CreatedAt,
		UpdatedAt:    h.UpdatedAt,
	}
	if mv, ok := h.MarketValue(); ok {
		v.MarketValue = decimal.NewNullDecimal(mv)
	}
	return v
}

type recordView struct {
	ID                  string              `json:"id"`
	HoldingID           string              `json:"holdingId"`
	Seq                 int64               `json:"seq"`
	Type                string              `json:"type"`
	Price               decimal.Decimal     `json:"price"`
	Quantity            int64               `json:"quantity"`
	Amount              decimal.Decimal     `json:"amount"`
	Currency            string              `json:"currency"`
	ExchangeRate        decimal.NullDecimal `json:"exchangeRate"`
	AveragePriceBefore  decimal.NullDecimal `json:"averagePriceBefore"`
	AveragePriceAfter   decimal.NullDecimal `json:"averagePriceAfter"`
	AveragePriceAtSell  decimal.NullDecimal `json:"averagePriceAtSell"`
	Profit              decimal.NullDecimal `json:"profit"`
	TotalQuantityBefore int64               `json:"totalQuantityBefore"`
	TotalQuantityAfter  int64               `json:"totalQuantityAfter"`
	CreatedAt           time.Time           `json:"createdAt"`
}

func toRecordView(r model.TradingRecord) recordView {
	return recordView{
		ID:                  r.ID,
		HoldingID:           r.HoldingID,
		Seq:                 r.Seq,
		Type:                string(r.Type),
		Price:               r.Price,
		Quantity:            r.Quantity,
		Amount:              r.Amount(),
		Currency:            string(r.Currency),
		ExchangeRate:        r.ExchangeRate,
		AveragePriceBefore:  r.AveragePriceBefore,
		AveragePriceAfter:   r.AveragePriceAfter,
		AveragePriceAtSell:  r.AveragePriceAtSell,
		Profit:              r.Profit,
		TotalQuantityBefore: r.TotalQuantityBefore,
		TotalQuantityAfter:  r.TotalQuantityAfter,
		CreatedAt:           r.CreatedAt,
	}
}

type tradeResponse struct {
	Holding holdingView `json:"holding"`
	Record  recordView  `json:"record"`
}

type summaryView struct {
	AccountID      string              `json:"accountId"`
	AccountName    string              `json:"accountName"`
	Currency       string              `json:"currency"`
	HoldingsCount  int                 `json:"holdingsCount"`
	PricedHoldings int                 `json:"pricedHoldings"`
	TotalCostBasis decimal.Decimal     `json:"totalCostBasis"`
	MarketValue    decimal.Decimal     `json:"marketValue"`
	UnrealizedPnL  decimal.Decimal     `json:"unrealizedPnl"`
	UnrealizedRate decimal.Decimal     `json:"unrealizedRate"`
	RealizedPnL    decimal.Decimal     `json:"realizedPnl"`
	ExchangeRate   decimal.NullDecimal `json:"exchangeRate"`
}

func toSummaryView(s model.AccountSummary) summaryView {
	return summaryView{
		AccountID:      s.AccountID,
		AccountName:    s.AccountName,
		Currency:       string(s.Currency),
		HoldingsCount:  s.HoldingsCount,
		PricedHoldings: s.PricedHoldings,
		TotalCostBasis: s.TotalCostBasis,
		MarketValue:    s.MarketValue,
		UnrealizedPnL:  s.UnrealizedPnL,
		UnrealizedRate: s.UnrealizedRate,
		RealizedPnL:    s.RealizedPnL,
		ExchangeRate:   s.ExchangeRate,
	}
}

type averagingView struct {
	BaseAveragePrice          decimal.Decimal `json:"baseAveragePrice"`
	BaseQuantity              int64           `json:"baseQuantity"`
	BuyPrice                  decimal.Decimal `json:"buyPrice"`
	BuyQuantity               int64           `json:"buyQuantity"`
	BaseTotalAmount           decimal.Decimal `json:"baseTotalAmount"`
	BuyAmount                 decimal.Decimal `json:"buyAmount"`
	BuyFee                    decimal.Decimal `json:"buyFee"`
	NewQuantity               int64           `json:"newQuantity"`
	NewTotalAmount            decimal.Decimal `json:"newTotalAmount"`
	NewTotalAmountWithoutFee  decimal.Decimal `json:"newTotalAmountWithoutFee"`
	NewAveragePrice           decimal.Decimal `json:"newAveragePrice"`
	NewAveragePriceWithoutFee decimal.Decimal `json:"newAveragePriceWithoutFee"`
	AveragePriceChange        decimal.Decimal `json:"averagePriceChange"`
	AveragePriceChangeRate    decimal.Decimal `json:"averagePriceChangeRate"`
}

func toAveragingView(a calculator.Averaging) averagingView {
	return averagingView{
		BaseAveragePrice:          a.Input.BaseAveragePrice,
		BaseQuantity:              a.Input.BaseQuantity,
		BuyPrice:                  a.Input.BuyPrice,
		BuyQuantity:               a.Input.BuyQuantity,
		BaseTotalAmount:           a.BaseTotalAmount,
		BuyAmount:                 a.BuyAmount,
		BuyFee:                    a.BuyFee,
		NewQuantity:               a.NewQuantity,
		NewTotalAmount:            a.NewTotalAmount,
		NewTotalAmountWithoutFee:  a.NewTotalAmountWithoutFee,
		NewAveragePrice:           a.NewAveragePrice,
		NewAveragePriceWithoutFee: a.NewAveragePriceWithoutFee,
		AveragePriceChange:        a.AveragePriceChange,
		AveragePriceChangeRate:    a.AveragePriceChangeRate,
	}
}

type profitView struct {
	TotalBuyAmount   decimal.Decimal `json:"totalBuyAmount"`
	TotalSellAmount  decimal.Decimal `json:"totalSellAmount"`
	BuyFee           decimal.Decimal `json:"buyFee"`
	SellFee          decimal.Decimal `json:"sellFee"`
	Tax              decimal.Decimal `json:"tax"`
	TotalCost        decimal.Decimal `json:"totalCost"`
	TotalRevenue     decimal.Decimal `json:"totalRevenue"`
	NetProfit        decimal.Decimal `json:"netProfit"`
	ProfitRate       decimal.Decimal `json:"profitRate"`
	BreakEvenPrice   decimal.Decimal `json:"breakEvenPrice"`
	SimpleDifference decimal.Decimal `json:"simpleDifference"`
}

func toProfitView(p calculator.Profit) profitView {
	return profitView{
		TotalBuyAmount:   p.TotalBuyAmount,
		TotalSellAmount:  p.TotalSellAmount,
		BuyFee:           p.BuyFee,
		SellFee:          p.SellFee,
		Tax:              p.Tax,
		TotalCost:        p.TotalCost,
		TotalRevenue:     p.TotalRevenue,
		NetProfit:        p.NetProfit,
		ProfitRate:       p.ProfitRate,
		BreakEvenPrice:   p.BreakEvenPrice,
		SimpleDifference: p.SimpleDifference,
	}
}

type indicatorView struct {
	Code          string              `json:"code"`
	Name          string              `json:"name"`
	Symbol        string              `json:"symbol"`
	Price         decimal.Decimal     `json:"price"`
	Change        decimal.NullDecimal `json:"change"`
	ChangePercent decimal.NullDecimal `json:"changePercent"`
	Currency      string              `json:"currency"`
}

func toIndicatorView(m model.MarketIndicator) indicatorView {
	return indicatorView{
		Code:          m.Code,
		Name:          m.Name,
		Symbol:        m.QuoteTicker,
		Price:         m.Price,
		Change:        m.Change,
		ChangePercent: m.ChangePercent,
		Currency:      string(m.Currency),
	}
}

type quoteView struct {
	Ticker        string              `json:"ticker"`
	Name          string              `json:"name"`
	Price         decimal.Decimal     `json:"price"`
	Change        decimal.NullDecimal `json:"change"`
	ChangePercent decimal.NullDecimal `json:"changePercent"`
	Currency      string              `json:"currency"`
	FetchedAt     time.Time           `json:"fetchedAt"`
}

type refreshView struct {
	Requested int         `json:"requested"`
	Updated   []quoteView `json:"updated"`
	Failed    []string    `json:"failed"`
}

func toRefreshView(r priceSyncService.RefreshReport) refreshView {
	v := refreshView{Requested: r.Requested, Updated: make([]quoteView, 0, len(r.Updated)), Failed: r.Failed}
	if v.Failed == nil {
		v.Failed = []string{}
	}
	for _, q := range r.Updated {
		v.Updated = append(v.Updated, quoteView{
			Ticker:        q.Ticker,
			Name:          q.Name,
			Price:         q.Price,
			Change:        q.Change,
			ChangePercent: q.ChangePercent,
			Currency:      q.Currency,
			FetchedAt:     q.FetchedAt,
		})
	}
	return v
}

func toRounds(in []roundRequest) []calculator.Round {
	rounds := make([]calculator.Round, 0, len(in))
	for _, r := range in {
		rounds = append(rounds, calculator.Round{Price: r.Price, Quantity: r.Quantity})
	}
	return rounds
}
