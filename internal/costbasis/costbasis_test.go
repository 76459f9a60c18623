package costbasis

import (
	"math"
	"testing"
	"time"

	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/internal/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func newHolding() model.Holding {
	return model.Holding{
		ID:           "h1",
		AccountID:    "a1",
		Ticker:       "AAPL",
		Currency:     model.CurrencyUSD,
		AveragePrice: decimal.Zero,
	}
}

func buy(price string, qty int64) model.TradeInput {
	return model.TradeInput{Type: model.TradeTypeBuy, Price: decimal.RequireFromString(price), Quantity: qty}
}

func sell(price string, qty int64) model.TradeInput {
	return model.TradeInput{Type: model.TradeTypeSell, Price: decimal.RequireFromString(price), Quantity: qty}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApply_ScenarioA(t *testing.T) {
	h := newHolding()

	h, records, err := Replay(h, []model.TradeInput{buy("100", 10)}, testTime)
	require.NoError(t, err)
	assert.Equal(t, int64(10), h.Quantity)
	assert.True(t, dec("100").Equal(h.AveragePrice))
	assert.True(t, decimal.Zero.Equal(records[0].AveragePriceBefore.Decimal))
	assert.True(t, dec("100").Equal(records[0].AveragePriceAfter.Decimal))

	h, _, err = Replay(h, []model.TradeInput{buy("200", 10)}, testTime)
	require.NoError(t, err)
	assert.Equal(t, int64(20), h.Quantity)
	assert.True(t, dec("150").Equal(h.AveragePrice), "got %s", h.AveragePrice)

	next, record, err := Apply(h, sell("250", 5), testTime)
	require.NoError(t, err)
	assert.Equal(t, int64(15), next.Quantity)
	assert.True(t, dec("150").Equal(next.AveragePrice))
	assert.Equal(t, model.TradeTypeSell, record.Type)
	assert.True(t, dec("500").Equal(record.Profit.Decimal), "got %s", record.Profit.Decimal)
	assert.True(t, dec("150").Equal(record.AveragePriceAtSell.Decimal))
	assert.False(t, record.AveragePriceBefore.Valid)
	assert.False(t, record.AveragePriceAfter.Valid)
	assert.Equal(t, int64(20), record.TotalQuantityBefore)
	assert.Equal(t, int64(15), record.TotalQuantityAfter)
}

func TestUndo_ScenarioB(t *testing.T) {
	h := newHolding()
	h, _, err := Replay(h, []model.TradeInput{buy("100", 10), buy("200", 10)}, testTime)
	require.NoError(t, err)

	next, sellRecord, err := Apply(h, sell("250", 5), testTime)
	require.NoError(t, err)
	h = h.WithPosition(next)

	restored, err := Undo(h, sellRecord)
	require.NoError(t, err)
	assert.Equal(t, int64(20), restored.Quantity)
	assert.True(t, dec("150").Equal(restored.AveragePrice))
}

func TestApply_ScenarioC_RoundingNoResidual(t *testing.T) {
	h, _, err := Replay(newHolding(), []model.TradeInput{buy("99.995", 3), buy("100.005", 1)}, testTime)
	require.NoError(t, err)

	assert.Equal(t, int64(4), h.Quantity)
	assert.Equal(t, "100", h.AveragePrice.String())
	assert.Equal(t, "100.00", h.AveragePrice.StringFixed(2))
}

func TestApply_ScenarioD_SellExceedsQuantity(t *testing.T) {
	h, _, err := Replay(newHolding(), []model.TradeInput{buy("100", 10), buy("200", 10)}, testTime)
	require.NoError(t, err)
	before := h

	_, _, err = Apply(h, sell("300", 21), testTime)
	require.Error(t, err)
	assert.True(t, validation.IsRule(err, validation.RuleSellExceedsQuantity))
	assert.Equal(t, before, h)
}

func TestApply_WeightedAverageMatchesTotalCost(t *testing.T) {
	tests := []struct {
		name   string
		inputs []model.TradeInput
	}{
		{name: "two rounds", inputs: []model.TradeInput{buy("100", 10), buy("200", 10)}},
		{name: "three rounds", inputs: []model.TradeInput{buy("100", 10), buy("200", 10), buy("300", 20)}},
		{name: "fractional prices", inputs: []model.TradeInput{buy("50.5", 2), buy("49.5", 2), buy("52", 4)}},
		{name: "many small rounds", inputs: []model.TradeInput{buy("10", 1), buy("20", 1), buy("30", 1), buy("40", 1)}},
		{name: "single round", inputs: []model.TradeInput{buy("1234.56", 7)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, err := Replay(newHolding(), tt.inputs, testTime)
			require.NoError(t, err)

			totalCost := decimal.Zero
			var totalQty int64
			for _, in := range tt.inputs {
				totalCost = totalCost.Add(in.Price.Mul(decimal.NewFromInt(in.Quantity)))
				totalQty += in.Quantity
			}
			expected := totalCost.Div(decimal.NewFromInt(totalQty)).Round(2)

			assert.Equal(t, totalQty, h.Quantity)
			assert.True(t, expected.Equal(h.AveragePrice), "expected %s, got %s", expected, h.AveragePrice)
		})
	}
}

func TestApply_SellKeepsAveragePrice(t *testing.T) {
	h, _, err := Replay(newHolding(), []model.TradeInput{buy("33.33", 3), buy("10.01", 7)}, testTime)
	require.NoError(t, err)

	for _, in := range []model.TradeInput{sell("1", 1), sell("1000", 4), sell("0.01", 5)} {
		next, _, err := Apply(h, in, testTime)
		require.NoError(t, err)
		assert.Equal(t, h.Quantity-in.Quantity, next.Quantity)
		assert.Equal(t, h.AveragePrice, next.AveragePrice)
		h = h.WithPosition(next)
	}
	assert.Equal(t, int64(0), h.Quantity)
}

func TestApply_SellWholePositionAllowed(t *testing.T) {
	h, _, err := Replay(newHolding(), []model.TradeInput{buy("100", 20)}, testTime)
	require.NoError(t, err)

	next, record, err := Apply(h, sell("90", 20), testTime)
	require.NoError(t, err)
	assert.Equal(t, int64(0), next.Quantity)
	assert.True(t, dec("-200").Equal(record.Profit.Decimal))
}

func TestUndo_ReapplyReproducesState(t *testing.T) {
	inputs := []model.TradeInput{buy("100", 10), buy("123.45", 3), sell("150", 4), buy("99.99", 11), sell("80", 2)}

	h := newHolding()
	states := []model.Position{h.Position()}
	var records []model.TradingRecord
	for _, in := range inputs {
		next, record, err := Apply(h, in, testTime)
		require.NoError(t, err)
		h = h.WithPosition(next)
		states = append(states, next)
		records = append(records, record)
	}

	// снимаем записи с конца и проверяем, что каждое состояние восстанавливается точно
	for i := len(records) - 1; i >= 0; i-- {
		prev, err := Undo(h, records[i])
		require.NoError(t, err)
		assert.Equal(t, states[i].Quantity, prev.Quantity)
		assert.True(t, states[i].AveragePrice.Equal(prev.AveragePrice), "step %d: expected %s, got %s", i, states[i].AveragePrice, prev.AveragePrice)

		again, _, err := Apply(h.WithPosition(prev), inputs[i], testTime)
		require.NoError(t, err)
		assert.Equal(t, states[i+1].Quantity, again.Quantity)
		assert.True(t, states[i+1].AveragePrice.Equal(again.AveragePrice))

		h = h.WithPosition(prev)
	}

	assert.Equal(t, int64(0), h.Quantity)
	assert.True(t, h.AveragePrice.IsZero())
}

func TestUndo_RejectsForeignOrStaleRecord(t *testing.T) {
	h, records, err := Replay(newHolding(), []model.TradeInput{buy("100", 10), buy("200", 10)}, testTime)
	require.NoError(t, err)

	_, err = Undo(h, records[0])
	assert.ErrorIs(t, err, ErrChainMismatch)

	foreign := records[1]
	foreign.HoldingID = "other"
	_, err = Undo(h, foreign)
	assert.ErrorIs(t, err, ErrChainMismatch)
}

func TestApply_Validation(t *testing.T) {
	h := newHolding()

	tests := []struct {
		name string
		in   model.TradeInput
		rule validation.Rule
	}{
		{name: "zero price", in: buy("0", 1), rule: validation.RuleNonPositivePrice},
		{name: "negative price", in: buy("-1", 1), rule: validation.RuleNonPositivePrice},
		{name: "zero quantity", in: buy("10", 0), rule: validation.RuleNonPositiveQuantity},
		{name: "sell from empty", in: sell("10", 1), rule: validation.RuleSellExceedsQuantity},
		{name: "unknown type", in: model.TradeInput{Type: "HOLD", Price: dec("1"), Quantity: 1}, rule: validation.RuleInvalidTradeType},
		{name: "zero exchange rate", in: withRate(buy("10", 1), "0"), rule: validation.RuleInvalidRate},
		{name: "negative exchange rate", in: withRate(buy("10", 1), "-1350"), rule: validation.RuleInvalidRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Apply(h, tt.in, testTime)
			require.Error(t, err)
			assert.True(t, validation.IsRule(err, tt.rule), "got %v", err)
		})
	}
}

func withRate(in model.TradeInput, rate string) model.TradeInput {
	in.ExchangeRate = decimal.NewNullDecimal(dec(rate))
	return in
}

func TestApply_BuyQuantityOverflow(t *testing.T) {
	h := newHolding()
	h.Quantity = math.MaxInt64 - 1
	h.AveragePrice = dec("10")

	_, _, err := Apply(h, buy("10", 5), testTime)
	require.Error(t, err)
	assert.True(t, validation.IsRule(err, validation.RuleQuantityOverflow), "got %v", err)

	next, record, err := Apply(h, buy("10", 1), testTime)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), next.Quantity)
	assert.Equal(t, int64(math.MaxInt64), record.TotalQuantityAfter)
}

// средняя округляется после каждой покупки, поэтому зависит от разбиения на раунды
func TestApply_AverageRoundedAfterEachBuy(t *testing.T) {
	h, records, err := Replay(newHolding(), []model.TradeInput{buy("1.005", 1), buy("1.004", 1)}, testTime)
	require.NoError(t, err)

	assert.True(t, dec("1.01").Equal(records[0].AveragePriceAfter.Decimal), "got %s", records[0].AveragePriceAfter.Decimal)
	assert.True(t, dec("1.01").Equal(h.AveragePrice), "got %s", h.AveragePrice)

	single, _, err := Replay(newHolding(), []model.TradeInput{buy("1.0045", 2)}, testTime)
	require.NoError(t, err)
	assert.True(t, dec("1").Equal(single.AveragePrice), "got %s", single.AveragePrice)
}

func TestCheckChain(t *testing.T) {
	_, records, err := Replay(newHolding(), []model.TradeInput{buy("100", 10), sell("120", 3), buy("90", 3)}, testTime)
	require.NoError(t, err)

	end, err := CheckChain(model.Position{AveragePrice: decimal.Zero}, records)
	require.NoError(t, err)
	assert.Equal(t, int64(10), end.Quantity)
	assert.True(t, dec("97").Equal(end.AveragePrice), "got %s", end.AveragePrice)

	broken := append([]model.TradingRecord{}, records...)
	broken[1].TotalQuantityBefore = 9
	_, err = CheckChain(model.Position{AveragePrice: decimal.Zero}, broken)
	assert.ErrorIs(t, err, ErrChainMismatch)
}
