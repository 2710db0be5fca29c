package finance

import "errors"

// Sentinel errors returned by the computations. Callers compare with errors.Is;
// the returned errors usually wrap one of these with the offending value.
var (
	ErrUnknownFrequency       = errors.New("unknown frequency")
	ErrUnknownPeriod          = errors.New("unknown budget period")
	ErrUnknownTransactionType = errors.New("unknown transaction type")
	ErrNegativeAmount         = errors.New("amount must not be negative")
	ErrInvalidRate            = errors.New("exchange rate must be positive")
	ErrCurrencyMismatch       = errors.New("transaction currency does not match budget currency")
	ErrZeroDate               = errors.New("date is required")
	ErrBeforeStart            = errors.New("date is before the budget start date")
	ErrInvalidNotifyBefore    = errors.New("notify-before window must not be negative")
	ErrTooManyOccurrences     = errors.New("too many overdue occurrences to catch up")
)
