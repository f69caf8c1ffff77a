package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by the lifecycle engine and the HTTP surface.
const (
	CodeNotConfigured   = "NOT_CONFIGURED"
	CodeDuplicateTicket = "DUPLICATE_TICKET"
	CodeNotATicket      = "NOT_A_TICKET"
	CodeForbidden       = "FORBIDDEN"
	CodeExternalFailed  = "EXTERNAL_OPERATION_FAILED"
	CodeValidation      = "VALIDATION_FAILED"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeInternal        = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewNotConfigured signals that ticketing is disabled or missing required
// setup for the guild. User-correctable; surfaced verbatim.
func NewNotConfigured(message string) error {
	return NewDomainError(CodeNotConfigured, message, http.StatusConflict, nil)
}

// NewDuplicateTicket signals the requester already has an open ticket. The
// existing channel id rides along so callers can redirect the user.
func NewDuplicateTicket(existingChannelID string) error {
	return NewDomainError(CodeDuplicateTicket, "you already have an open ticket", http.StatusConflict, map[string]any{
		"existing_channel_id": existingChannelID,
	})
}

// NewNotATicket signals the operation ran outside any tracked ticket channel.
func NewNotATicket() error {
	return NewDomainError(CodeNotATicket, "this is not a ticket channel", http.StatusNotFound, nil)
}

// NewForbidden signals an authorization failure. No detail beyond the
// message is exposed.
func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

// NewExternalFailed wraps a chat-platform client failure. Full detail is
// for logs; users see only the generic message.
func NewExternalFailed(message string, err error) error {
	return &DomainError{
		Code:       CodeExternalFailed,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// CodeOf extracts the DomainError code, or CodeInternal for foreign errors.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	return ToDomainError(err).Code
}

// ExistingChannelID returns the channel reference carried by a
// DuplicateTicket error, if any.
func ExistingChannelID(err error) (string, bool) {
	de := ToDomainError(err)
	if de == nil || de.Code != CodeDuplicateTicket {
		return "", false
	}
	id, ok := de.Details["existing_channel_id"].(string)
	return id, ok
}
