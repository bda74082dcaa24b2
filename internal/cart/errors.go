package cart

import "fmt"

// ValidationError reports malformed input on a single field. The operation
// is re-offered to the caller unchanged.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RejectedError carries the order processor's failure message verbatim.
// The cart is left untouched so the user can retry.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("order rejected: %s", e.Message)
}
