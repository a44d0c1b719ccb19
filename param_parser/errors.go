package param_parser

import "fmt"

// MalformedDocumentError is returned when input already classified as JSON
// fails to parse. It always propagates to the caller; by the time the
// document parser runs, the router has committed to the JSON strategy and a
// silent empty result would hide a real user error.
type MalformedDocumentError struct {
	cause error
}

func NewMalformedDocumentError(cause error) *MalformedDocumentError {
	return &MalformedDocumentError{cause: cause}
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed parameter document: %v", e.cause)
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.cause
}

func (e *MalformedDocumentError) Is(err error) bool {
	_, ok := err.(*MalformedDocumentError)
	return ok
}
