// Package errors provides structured error handling with HTTP status mapping.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Account errors
	CodeUserEmptyUsername   Code = "USER_EMPTY_USERNAME"
	CodeUserInvalidUsername Code = "USER_INVALID_USERNAME"
	CodeUserInvalidEmail    Code = "USER_INVALID_EMAIL"
	CodeUserWeakPassword    Code = "USER_WEAK_PASSWORD"
	CodeUserNotFound        Code = "USER_NOT_FOUND"
	CodeUserAlreadyExists   Code = "USER_ALREADY_EXISTS"
	CodeBadCredentials      Code = "BAD_CREDENTIALS"
	CodeSessionInvalid      Code = "SESSION_INVALID"

	// Wallet errors
	CodeAmountNotPositive   Code = "AMOUNT_NOT_POSITIVE"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeSelfTransfer        Code = "SELF_TRANSFER"

	// Loan errors
	CodeLoanNotFound        Code = "LOAN_NOT_FOUND"
	CodeLoanActiveExists    Code = "LOAN_ACTIVE_EXISTS"
	CodeLoanOverLimit       Code = "LOAN_OVER_LIMIT"
	CodeLoanNotActive       Code = "LOAN_NOT_ACTIVE"
	CodeLoanBelowMinimum    Code = "LOAN_BELOW_MINIMUM"
	CodeLoanWrongBorrower   Code = "LOAN_WRONG_BORROWER"
	CodeLoanFeeExceedsValue Code = "LOAN_FEE_EXCEEDS_VALUE"

	// Avatar errors
	CodeAvatarURLInvalid     Code = "AVATAR_URL_INVALID"
	CodeAvatarEventMalformed Code = "AVATAR_EVENT_MALFORMED"

	// Ledger errors
	CodeLedgerFilterInvalid Code = "LEDGER_FILTER_INVALID"
	CodeLedgerTokenInvalid  Code = "LEDGER_TOKEN_INVALID"

	// Storage errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
)

// HTTPStatus maps domain codes to HTTP response status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, bad input
	case CodeUserEmptyUsername,
		CodeUserInvalidUsername,
		CodeUserInvalidEmail,
		CodeUserWeakPassword,
		CodeAmountNotPositive,
		CodeSelfTransfer,
		CodeLoanBelowMinimum,
		CodeLoanFeeExceedsValue,
		CodeAvatarURLInvalid,
		CodeAvatarEventMalformed,
		CodeLedgerFilterInvalid,
		CodeLedgerTokenInvalid:
		return http.StatusBadRequest

	// Unauthorized - identity missing or wrong
	case CodeBadCredentials,
		CodeSessionInvalid:
		return http.StatusUnauthorized

	// Forbidden - identity known, operation not allowed
	case CodeLoanWrongBorrower:
		return http.StatusForbidden

	// Not found
	case CodeUserNotFound,
		CodeLoanNotFound,
		CodeNotFound:
		return http.StatusNotFound

	// Conflict - uniqueness and state collisions
	case CodeUserAlreadyExists,
		CodeLoanActiveExists,
		CodeAlreadyExists:
		return http.StatusConflict

	// Unprocessable - state does not allow the operation
	case CodeInsufficientBalance,
		CodeLoanOverLimit,
		CodeLoanNotActive:
		return http.StatusUnprocessableEntity

	default:
		return http.StatusInternalServerError
	}
}
