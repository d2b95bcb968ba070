package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrBodyTooLarge is returned when a response body exceeds Config.MaxBodyBytes.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// ErrorClass represents a classification of fetch failures.
type ErrorClass string

const (
	// ErrorClassNetwork represents transport errors (DNS, refused, timeout, TLS).
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassStatus represents any other non-200 response.
	ErrorClassStatus ErrorClass = "status"

	// ErrorClassBodyLimit represents bodies cut off by the size guard.
	ErrorClassBodyLimit ErrorClass = "body_limit"
)

// NetworkError is the single failure type of Fetch. StatusCode is 0 when no
// response was received.
type NetworkError struct {
	StatusCode int
	Class      ErrorClass
	// URL is the redacted request URL
	URL string
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.StatusCode != 0 && e.Err == nil {
		return fmt.Sprintf("fetch %s: %s error (status %d %s)",
			e.URL, e.Class, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("fetch %s: %s error: %v", e.URL, e.Class, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// classifyStatus categorizes a non-200 status code.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500 && statusCode < 600:
		return ErrorClassServer
	default:
		return ErrorClassStatus
	}
}
