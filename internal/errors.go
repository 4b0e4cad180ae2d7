package pantry

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pantry domain.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrUpstream     = errors.New("upstream error")
)

// Err maps an Outcome to its sentinel error, wrapping the detail when one is
// present. Success maps to nil. Callers classify with errors.Is.
func (o Outcome) Err() error {
	var sentinel error
	switch o.Kind {
	case OutcomeInvalidInput:
		sentinel = ErrInvalidInput
	case OutcomeNotFound:
		sentinel = ErrNotFound
	case OutcomeUpstreamError:
		sentinel = ErrUpstream
	default:
		return nil
	}
	if o.Detail == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, o.Detail)
}
