package mutation

import (
	"errors"
	"fmt"
)

// ErrCodeValidationFailed identifies a rejected mutation.
const ErrCodeValidationFailed = "VALIDATION_FAILED"

// Reason categorizes why a mutation was rejected.
type Reason string

const (
	ReasonEmptyName         Reason = "EMPTY_NAME"
	ReasonEmptyID           Reason = "EMPTY_ID"
	ReasonUnknownAccount    Reason = "UNKNOWN_ACCOUNT"
	ReasonDuplicateAccount  Reason = "DUPLICATE_ACCOUNT"
	ReasonNonPositiveAmount Reason = "NON_POSITIVE_AMOUNT"
	ReasonSameAccount       Reason = "SAME_ACCOUNT"
	ReasonInsufficientFunds Reason = "INSUFFICIENT_FUNDS"
	ReasonAccountFrozen     Reason = "ACCOUNT_FROZEN"
	ReasonAccountClosed     Reason = "ACCOUNT_CLOSED"
	ReasonInvalidStatus     Reason = "INVALID_STATUS"
	ReasonNonZeroBalance    Reason = "NON_ZERO_BALANCE"
	ReasonBalanceOverflow   Reason = "BALANCE_OVERFLOW"
)

// ValidationError reports a mutation whose preconditions did not hold.
// Nothing was written and no event was published.
type ValidationError struct {
	// Reason identifies the failed precondition.
	Reason Reason

	// Message is a human-readable description.
	Message string

	// AccountID is the account the check failed on, if any.
	AccountID string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.AccountID != "" {
		return fmt.Sprintf("%s: %s (account=%s)", ErrCodeValidationFailed, e.Message, e.AccountID)
	}
	return fmt.Sprintf("%s: %s", ErrCodeValidationFailed, e.Message)
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ReasonOf returns the reason of a wrapped ValidationError, or "" if err
// is not one.
func ReasonOf(err error) Reason {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return ""
}

func reject(reason Reason, accountID, format string, args ...any) *ValidationError {
	return &ValidationError{
		Reason:    reason,
		Message:   fmt.Sprintf(format, args...),
		AccountID: accountID,
	}
}
