package service

import (
	"errors"
	"fmt"

	"github.com/KotFed0t/stock_ledger/internal/validation"
)

var (
	ErrNotFound             = errors.New("error not found")
	ErrNotLastRecord        = errors.New("error record is not the last one")
	ErrEmptyLedger          = errors.New("error holding has no records")
	ErrLedgerInconsistent   = errors.New("error ledger chain is inconsistent")
	ErrCloudStorageDisabled = errors.New("error cloud storage is disabled")
	ErrNothingToExport      = errors.New("error account has no holdings to export")
)

// ValidationError is returned before any write happens.
type (
	ValidationError = validation.Error
	Rule            = validation.Rule
)

const (
	RuleSellExceedsQuantity = validation.RuleSellExceedsQuantity
	RuleNonPositivePrice    = validation.RuleNonPositivePrice
	RuleNonPositiveQuantity = validation.RuleNonPositiveQuantity
	RuleQuantityOverflow    = validation.RuleQuantityOverflow
	RuleDuplicateTicker     = validation.RuleDuplicateTicker
	RuleEmptyTicker         = validation.RuleEmptyTicker
	RuleEmptyName           = validation.RuleEmptyName
	RuleInvalidCurrency     = validation.RuleInvalidCurrency
	RuleInvalidTradeType    = validation.RuleInvalidTradeType
	RuleEmptyScenario       = validation.RuleEmptyScenario
	RuleInvalidRate         = validation.RuleInvalidRate
)

func NewValidationError(rule Rule, format string, args ...any) *ValidationError {
	return validation.New(rule, format, args...)
}

func IsRule(err error, rule Rule) bool {
	return validation.IsRule(err, rule)
}

// IntegrityError means the caller acted on a stale view of the ledger.
type IntegrityError struct {
	HoldingID    string
	RecordID     string
	LastRecordID string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("record %s of holding %s is not the last one (last is %s)", e.RecordID, e.HoldingID, e.LastRecordID)
}

func (e *IntegrityError) Unwrap() error {
	return ErrNotLastRecord
}
