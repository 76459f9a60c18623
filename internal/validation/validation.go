// Package validation holds the rule-tagged error returned when input is
// rejected before any write. It has no dependencies so the pure ledger
// packages and the services can share it.
package validation

import (
	"errors"
	"fmt"
)

// Rule names the validation rule an operation violated.
type Rule string

const (
	RuleSellExceedsQuantity Rule = "sell_exceeds_quantity"
	RuleNonPositivePrice    Rule = "non_positive_price"
	RuleNonPositiveQuantity Rule = "non_positive_quantity"
	RuleQuantityOverflow    Rule = "quantity_overflow"
	RuleDuplicateTicker     Rule = "duplicate_ticker"
	RuleEmptyTicker         Rule = "empty_ticker"
	RuleEmptyName           Rule = "empty_name"
	RuleInvalidCurrency     Rule = "invalid_currency"
	RuleInvalidTradeType    Rule = "invalid_trade_type"
	RuleEmptyScenario       Rule = "empty_scenario"
	RuleInvalidRate         Rule = "invalid_rate"
)

type Error struct {
	Rule    Rule
	Message string
}

func New(rule Rule, format string, args ...any) *Error {
	return &Error{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Rule, e.Message)
}

// IsRule reports whether err is a validation error for the given rule.
func IsRule(err error, rule Rule) bool {
	var vErr *Error
	return errors.As(err, &vErr) && vErr.Rule == rule
}
