// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Standard sentinel errors
var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrDuplicateChain       = errors.New("ledger chain already exists")
	ErrChainNotFound        = errors.New("ledger chain not found")
	ErrUnsupportedTicker    = errors.New("unsupported ticker")
	ErrNoData               = errors.New("no data for ticker")
	ErrConfigInvalid        = errors.New("invalid configuration")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// ValidationError represents invalid input parameters, typically bad option
// or contract fields.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ExecutionError is a fatal backtest failure. It carries the simulated date
// and step that failed so a run can be diagnosed from the error alone.
type ExecutionError struct {
	Date time.Time
	Step string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("backtest execution failed at %s during %s: %v",
		e.Date.Format("2006-01-02"), e.Step, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError creates a new ExecutionError.
func NewExecutionError(date time.Time, step string, err error) *ExecutionError {
	return &ExecutionError{Date: date, Step: step, Err: err}
}

// IntegrityError reports a broken ledger chain: a block whose stored hash no
// longer matches its fields, or whose previous-hash linkage is wrong. It is
// surfaced by verification and never auto-repaired.
type IntegrityError struct {
	Chain  string
	Index  int
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("ledger integrity error in chain %q at block %d: %s", e.Chain, e.Index, e.Reason)
}

// NewIntegrityError creates a new IntegrityError.
func NewIntegrityError(chain string, index int, reason string) *IntegrityError {
	return &IntegrityError{Chain: chain, Index: index, Reason: reason}
}
