package record

import "errors"

// Sentinel wiring errors. Detection sites wrap these with the field
// and parties involved so a failure names its offender.
var (
	ErrTypeMismatch       = errors.New("record: value type mismatch")
	ErrOwnershipViolation = errors.New("record: ownership violation")
	ErrUninitialized      = errors.New("record: value not initialized")
	ErrMissingField       = errors.New("record: no such field")
)
