// Package apierrors defines the pipeline's error taxonomy. Every stage that
// can fail locally recovers; only InvalidInput and Internal are meant to
// escape the top-level Scan call, per the error-handling design.
package apierrors

import "errors"

// Sentinel kinds. Wrap with fmt.Errorf("...: %w", Kind) and unwrap with
// errors.Is at the transport boundary.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnsupportedScheme = errors.New("unsupported scheme")
	ErrAuth             = errors.New("auth error")
	ErrRateLimited      = errors.New("rate limited")
	ErrTransient        = errors.New("transient failure")
	ErrModel            = errors.New("model error")
	ErrBudgetExceeded   = errors.New("budget exceeded")
	ErrInternal         = errors.New("internal error")
)

// Is reports whether err ultimately wraps one of the taxonomy's sentinels.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
