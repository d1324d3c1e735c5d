package moneymanager

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/etnz/moneymanager/auth"
)

// ErrorKind classifies the failures reported to the UI.
type ErrorKind int

const (
	Unknown            ErrorKind = iota // network failure, unexpected status or payload
	AuthExpired                         // the user must log in again
	Forbidden                           // permission denied, the session is kept
	NotFound                            // the resource or endpoint does not exist
	Validation                          // invalid input, locally or server side
	Conflict                            // the identity already exists
	RateLimited                         // too many attempts
	InvalidCredentials                  // wrong email or password
)

var kindNames = [...]string{"Unknown", "AuthExpired", "Forbidden", "NotFound", "Validation", "Conflict", "RateLimited", "InvalidCredentials"}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

var (
	// ErrSessionExpired is matched by every AuthExpired error.
	ErrSessionExpired = auth.ErrSessionExpired
	// ErrBusy is returned when an operation is started while another one is
	// pending on the same Store. Nothing has been sent.
	ErrBusy = errors.New("another operation is in progress")
)

// Error is a failure classified for the UI.
type Error struct {
	Kind    ErrorKind
	Status  int    // HTTP status, 0 if no response was received
	Message string // human readable, server provided when available
	Field   string // offending field, for Validation errors
	Soft    bool   // the operation nevertheless achieved the caller's intent
	Err     error  // underlying error, if any
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == Unknown && !strings.HasPrefix(e.Err.Error(), e.Message) {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// LoginRequired reports whether the UI should send the user to login.
func (e *Error) LoginRequired() bool { return e.Kind == AuthExpired }

// operation names used in messages.
type operation string

const (
	opFetch     operation = "fetch transactions"
	opCreate    operation = "create transaction"
	opUpdate    operation = "update transaction"
	opDelete    operation = "delete transaction"
	opDeleteAll operation = "delete all transactions"
	opLogin     operation = "login"
	opRegister  operation = "registration"
)

var notFoundMessages = map[operation]string{
	opFetch:     "transactions endpoint not found, please check server configuration",
	opUpdate:    "transaction not found, it may have been deleted",
	opDelete:    "transaction not found or already deleted",
	opDeleteAll: "transactions endpoint not found, please check server configuration",
	opCreate:    "transactions endpoint not found, please check server configuration",
	opLogin:     "login endpoint not found, please check server configuration",
	opRegister:  "registration endpoint not found, please check server configuration",
}

func sessionExpired() *Error {
	return &Error{Kind: AuthExpired, Status: http.StatusUnauthorized, Message: auth.ErrSessionExpired.Error(), Err: auth.ErrSessionExpired}
}

func invalid(field, message string) *Error {
	return &Error{Kind: Validation, Field: field, Message: message}
}

// networkError wraps a failure that produced no response.
func networkError(op operation, err error) *Error {
	return &Error{Kind: Unknown, Message: fmt.Sprintf("network error during %s, please try again", op), Err: err}
}

// classify turns a non 2xx response into an Error.
func classify(op operation, status int, body []byte) *Error {
	msg, field := serverMessage(body)
	e := &Error{Status: status, Field: field}
	or := func(def string) string {
		if msg != "" {
			return msg
		}
		return def
	}
	switch {
	case status == http.StatusUnauthorized && op == opLogin:
		e.Kind, e.Message = InvalidCredentials, or("invalid email or password, please try again")
	case status == http.StatusUnauthorized:
		return sessionExpired()
	case status == http.StatusForbidden:
		e.Kind, e.Message = Forbidden, "access denied, you don't have permission to perform this action"
	case status == http.StatusNotFound:
		e.Kind, e.Message = NotFound, notFoundMessages[op]
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		e.Kind, e.Message = Validation, or("invalid data")
	case status == http.StatusConflict:
		e.Kind, e.Message = Conflict, or("identity already exists")
	case status == http.StatusTooManyRequests:
		e.Kind, e.Message = RateLimited, "too many attempts, please wait and try again"
	default:
		e.Kind, e.Message = Unknown, or(fmt.Sprintf("an error occurred during %s, please try again", op))
	}
	return e
}

// serverMessage extracts the message of an error payload:
// {"message": ...} or {"error": ...}, with optional
// {"errors": [{"field": ..., "message": ...}]}.
func serverMessage(body []byte) (msg, field string) {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Errors  []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return "", ""
	}
	msg = first(payload.Message, payload.Error)
	if len(payload.Errors) > 0 {
		field = payload.Errors[0].Field
		msg = first(msg, payload.Errors[0].Message)
	}
	return msg, field
}
