package dex

import "errors"

// Per-event failure kinds. Callers match them with errors.Is.
var (
	ErrMalformedPayload    = errors.New("malformed payload")
	ErrUnknownVariant      = errors.New("unknown protocol variant")
	ErrDivisionByZero      = errors.New("division by zero")
	ErrInvalidNumericState = errors.New("invalid numeric state")
	ErrMetadataResolution  = errors.New("metadata resolution failed")
)

// FailureKind names the failure class of err for diagnostics.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedPayload):
		return "MalformedPayload"
	case errors.Is(err, ErrUnknownVariant):
		return "UnknownProtocolVariant"
	case errors.Is(err, ErrDivisionByZero):
		return "DivisionByZero"
	case errors.Is(err, ErrInvalidNumericState):
		return "InvalidNumericState"
	case errors.Is(err, ErrMetadataResolution):
		return "MetadataResolutionFailure"
	default:
		return "Unknown"
	}
}
