package moneymanager

import (
	"errors"
	"net/http"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		op      operation
		status  int
		body    string
		kind    ErrorKind
		message string
		field   string
	}{
		{opFetch, 401, `{"message":"jwt expired"}`, AuthExpired, "session expired, please log in again", ""},
		{opLogin, 401, `{}`, InvalidCredentials, "invalid email or password, please try again", ""},
		{opLogin, 401, `{"message":"Wrong password"}`, InvalidCredentials, "Wrong password", ""},
		{opCreate, 403, `{"message":"no"}`, Forbidden, "access denied, you don't have permission to perform this action", ""},
		{opDelete, 404, ``, NotFound, "transaction not found or already deleted", ""},
		{opUpdate, 404, ``, NotFound, "transaction not found, it may have been deleted", ""},
		{opCreate, 400, `{"message":"Validation failed","errors":[{"field":"title","message":"Title is required"}]}`, Validation, "Validation failed", "title"},
		{opCreate, 422, `{"errors":[{"field":"amount","message":"Amount must be positive"}]}`, Validation, "Amount must be positive", "amount"},
		{opCreate, 400, `not json`, Validation, "invalid data", ""},
		{opRegister, 409, ``, Conflict, "identity already exists", ""},
		{opRegister, 409, `{"error":"User exists"}`, Conflict, "User exists", ""},
		{opLogin, 429, `{"message":"slow down"}`, RateLimited, "too many attempts, please wait and try again", ""},
		{opFetch, 500, ``, Unknown, "an error occurred during fetch transactions, please try again", ""},
	}
	for _, test := range tests {
		e := classify(test.op, test.status, []byte(test.body))
		if e.Kind != test.kind || e.Message != test.message || e.Field != test.field {
			t.Errorf("classify(%q, %d, %s) = {%v %q %q}, want {%v %q %q}", test.op, test.status, test.body,
				e.Kind, e.Message, e.Field, test.kind, test.message, test.field)
		}
	}
}

func TestError_SessionExpired(t *testing.T) {
	err := error(classify(opFetch, http.StatusUnauthorized, nil))
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("errors.Is(%v, ErrSessionExpired) = false", err)
	}
	if err := error(classify(opFetch, http.StatusForbidden, nil)); errors.Is(err, ErrSessionExpired) {
		t.Errorf("errors.Is(%v, ErrSessionExpired) = true", err)
	}
}

func TestError_Error(t *testing.T) {
	cause := errors.New("connection refused")
	err := networkError(opFetch, cause)
	if !errors.Is(err, cause) {
		t.Errorf("networkError does not wrap its cause")
	}
	if got, want := err.Error(), "network error during fetch transactions, please try again: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if got, want := invalid("title", "title is required").Error(), "title is required"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestErrorKind_String(t *testing.T) {
	if got := AuthExpired.String(); got != "AuthExpired" {
		t.Errorf("AuthExpired.String() = %q", got)
	}
	if got := ErrorKind(42).String(); got != "ErrorKind(42)" {
		t.Errorf("ErrorKind(42).String() = %q", got)
	}
}
