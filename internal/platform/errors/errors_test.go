package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	base := New(CodeInsufficientBalance, "sender cannot cover amount")
	other := New(CodeInsufficientBalance, "different message, same code")

	if !stderrors.Is(base, other) {
		t.Fatal("expected errors with the same code to match")
	}
	if stderrors.Is(base, New(CodeUserNotFound, "missing")) {
		t.Fatal("expected errors with different codes not to match")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(CodeUnknown, "write ledger row", cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(nil); got != CodeUnknown {
		t.Fatalf("expected unknown code for nil, got %s", got)
	}
	if got := GetCode(fmt.Errorf("plain")); got != CodeUnknown {
		t.Fatalf("expected unknown code for plain error, got %s", got)
	}
	wrapped := fmt.Errorf("outer: %w", New(CodeLoanActiveExists, "one loan at a time"))
	if got := GetCode(wrapped); got != CodeLoanActiveExists {
		t.Fatalf("expected loan code through wrapping, got %s", got)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeAmountNotPositive, http.StatusBadRequest},
		{CodeBadCredentials, http.StatusUnauthorized},
		{CodeLoanWrongBorrower, http.StatusForbidden},
		{CodeUserNotFound, http.StatusNotFound},
		{CodeUserAlreadyExists, http.StatusConflict},
		{CodeInsufficientBalance, http.StatusUnprocessableEntity},
		{CodeUnknown, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Fatalf("code %s: expected %d, got %d", tc.code, tc.want, got)
		}
	}

	if got := HTTPStatus(nil); got != http.StatusOK {
		t.Fatalf("expected 200 for nil error, got %d", got)
	}
	if got := HTTPStatus(fmt.Errorf("boom")); got != http.StatusInternalServerError {
		t.Fatalf("expected 500 for untyped error, got %d", got)
	}
	if got := HTTPStatus(New(CodeLoanOverLimit, "over tier limit")); got != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for over-limit, got %d", got)
	}
}
