package venue

import (
	"errors"
	"fmt"
)

// ErrCurveComplete is returned when a bonding curve has graduated.
var ErrCurveComplete = errors.New("bonding curve complete")

// ErrCurveNotFound is returned when the bonding curve account does not exist.
var ErrCurveNotFound = errors.New("bonding curve not found")

// QuoteError reports a failed quote.
type QuoteError struct {
	Venue string
	Err   error
}

func (e *QuoteError) Error() string {
	return fmt.Sprintf("%s quote: %v", e.Venue, e.Err)
}

func (e *QuoteError) Unwrap() error { return e.Err }

// BuildError reports a failed transaction build.
type BuildError struct {
	Venue string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s build: %v", e.Venue, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// ExecutionError reports a failure during ExecuteSwap.
// Op names the failed step: quote, build, sign, send or confirm.
type ExecutionError struct {
	Venue     string
	Op        string
	Signature string // set once broadcast
	Err       error
}

func (e *ExecutionError) Error() string {
	if e.Signature != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Venue, e.Op, e.Signature, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Venue, e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// SafetyCode classifies a validator rejection.
type SafetyCode string

// Safety codes.
const (
	UnexpectedFeePayer SafetyCode = "UNEXPECTED_FEE_PAYER"
	SuspiciousTransfer SafetyCode = "SUSPICIOUS_TRANSFER"
)

// SafetyError is returned when a built transaction fails validation.
// It is never retried.
type SafetyError struct {
	Code    SafetyCode
	Venue   string
	Message string
}

func (e *SafetyError) Error() string {
	return fmt.Sprintf("safety check failed [%s] on %s: %s", e.Code, e.Venue, e.Message)
}

// IsSafetyError reports whether err is or wraps a *SafetyError.
func IsSafetyError(err error) bool {
	var se *SafetyError
	return errors.As(err, &se)
}
