package generation

import (
	"errors"
	"fmt"
)

// ErrGenerationUnavailable matches every *UnavailableError
var ErrGenerationUnavailable = errors.New("generation unavailable")

// UnavailableError is returned when every backend used up its attempts.
// The wrapped errors are for logs only and must not reach API clients.
type UnavailableError struct {
	PrimaryErr  error
	FallbackErr error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("generation unavailable: primary: %v; fallback: %v", e.PrimaryErr, e.FallbackErr)
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrGenerationUnavailable
}

func (e *UnavailableError) Unwrap() []error {
	var errs []error
	if e.PrimaryErr != nil {
		errs = append(errs, e.PrimaryErr)
	}
	if e.FallbackErr != nil {
		errs = append(errs, e.FallbackErr)
	}
	return errs
}
