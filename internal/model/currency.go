package model

import (
	"regexp"
	"strings"
)

var krxCode = regexp.MustCompile(`^\d{6}$`)

type Currency string

const (
	CurrencyKRW Currency = "KRW"
	CurrencyUSD Currency = "USD"
)

func (c Currency) Valid() bool {
	return c == CurrencyKRW || c == CurrencyUSD
}

func ParseCurrency(s string) (Currency, bool) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	return c, c.Valid()
}

// IsKRXCode reports whether ticker is a bare 6-digit KRX code like 005930.
func IsKRXCode(ticker string) bool {
	return krxCode.MatchString(NormalizeTicker(ticker))
}

// CurrencyFromTicker определяет валюту по тикеру: .KS/.KQ и голый код KRX - корейский рынок, остальное USD
func CurrencyFromTicker(ticker string) Currency {
	t := NormalizeTicker(ticker)
	if strings.HasSuffix(t, ".KS") || strings.HasSuffix(t, ".KQ") || IsKRXCode(t) {
		return CurrencyKRW
	}
	return CurrencyUSD
}

func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
