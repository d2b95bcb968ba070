package decode

import "fmt"

// Reason classifies a document-level decode failure.
type Reason string

const (
	// ReasonMalformedJSON means the body is not JSON at all.
	ReasonMalformedJSON Reason = "malformed-json"

	// ReasonMissingEnvelope means the named envelope object is absent.
	ReasonMissingEnvelope Reason = "missing-envelope"

	// ReasonMissingRows means the envelope has no row array.
	ReasonMissingRows Reason = "missing-rows"
)

// DecodeError reports a document shape the decoder cannot work with.
// Row-level problems never produce a DecodeError; those rows are skipped.
type DecodeError struct {
	Reason Reason
	// Detail carries upstream context such as the service RESULT code.
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decode %s", e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
