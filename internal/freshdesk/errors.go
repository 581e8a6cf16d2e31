package freshdesk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ErrMalformedResponse is returned when a 2xx body cannot be decoded.
var ErrMalformedResponse = errors.New("error parsing response")

// APIError is a non-2xx answer from the helpdesk.
type APIError struct {
	Status      int          `json:"-"`
	Description string       `json:"description"`
	Errors      []FieldError `json:"errors"`
}

// FieldError is one entry of a validation failure body.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "freshdesk: HTTP %d", e.Status)
	if e.Description != "" {
		b.WriteString(": " + e.Description)
	}
	for _, fe := range e.Errors {
		fmt.Fprintf(&b, "; %s: %s", fe.Field, lo.CoalesceOrEmpty(fe.Message, fe.Code))
	}
	return b.String()
}

// Message is the agent-facing summary. An invalid custom field is reported
// by name.
func (e *APIError) Message() string {
	for _, fe := range e.Errors {
		if fe.Code == "invalid_field" {
			return "Invalid field: " + fe.Field
		}
	}
	if len(e.Errors) > 0 {
		fe := e.Errors[0]
		return fmt.Sprintf("%s: %s", fe.Field, lo.CoalesceOrEmpty(fe.Message, fe.Code))
	}
	if e.Description != "" {
		return e.Description
	}
	return fmt.Sprintf("Freshdesk request failed with status %d", e.Status)
}

// IsNotFound reports whether err is a 404 answer.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 404
}
