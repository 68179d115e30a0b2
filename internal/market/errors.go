package market

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError rejects a request before any upstream is contacted.
type ValidationError struct {
	Missing []string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return "Missing required fields: " + strings.Join(e.Missing, ", ")
}

// UpstreamAuthError means Dhan answered and refused the credentials.
type UpstreamAuthError struct {
	Code    string
	Message string
}

func (e *UpstreamAuthError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("Dhan API error: %s - %s", e.Code, e.Message)
	}
	return "Dhan API error: " + e.Message
}

// ErrorKind names an error for the "<kind>: <message>" reply format.
func ErrorKind(err error) string {
	var v *ValidationError
	var a *UpstreamAuthError
	var p *PrimaryFailure
	switch {
	case errors.As(err, &v):
		return "ValidationError"
	case errors.As(err, &a):
		return "UpstreamAuthError"
	case errors.As(err, &p):
		return "UpstreamDataError"
	}
	return "InternalError"
}
