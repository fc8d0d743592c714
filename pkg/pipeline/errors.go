package pipeline

import "errors"

// Failure kinds surfaced to callers. The boundary layer maps these onto
// user-facing messages and status codes with errors.Is.
var (
	// ErrValidation marks a missing or blank required input.
	ErrValidation = errors.New("invalid input")

	// ErrUpstream marks a network or HTTP failure from every external source.
	ErrUpstream = errors.New("upstream source unavailable")

	// ErrStore marks a persistence or query failure in the backing store.
	ErrStore = errors.New("store failure")
)

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsUpstream(err error) bool   { return errors.Is(err, ErrUpstream) }
func IsStore(err error) bool      { return errors.Is(err, ErrStore) }
