package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Authentication Errors (AUTH_*)
	ErrorCodeAuthMissingSignature ErrorCode = "AUTH_MISSING_SIGNATURE"
	ErrorCodeAuthInvalidSignature ErrorCode = "AUTH_INVALID_SIGNATURE"

	// Re-verification Errors (VERIFICATION_*)
	ErrorCodeVerificationFailed      ErrorCode = "VERIFICATION_FAILED"
	ErrorCodeVerificationUnavailable ErrorCode = "VERIFICATION_UNAVAILABLE"

	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationStatus           ErrorCode = "VALIDATION_STATUS"
	ErrorCodeValidationAmountMismatch   ErrorCode = "VALIDATION_AMOUNT_MISMATCH"
	ErrorCodeValidationCurrencyMismatch ErrorCode = "VALIDATION_CURRENCY_MISMATCH"
	ErrorCodeValidationMissingField     ErrorCode = "VALIDATION_MISSING_FIELD"

	// Ledger Errors (LEDGER_*)
	ErrorCodeLedgerConflict ErrorCode = "LEDGER_CONFLICT"
	ErrorCodeLedgerNotFound ErrorCode = "LEDGER_NOT_FOUND"

	// Payload Errors (PAYLOAD_*)
	ErrorCodeMalformedPayload ErrorCode = "PAYLOAD_MALFORMED"

	// Gateway Errors (GATEWAY_*)
	ErrorCodeGatewayError   ErrorCode = "GATEWAY_ERROR"
	ErrorCodeGatewayTimeout ErrorCode = "GATEWAY_TIMEOUT"

	// Internal Errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// IsAuthError checks if an error is a signature authentication failure
func IsAuthError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeAuthMissingSignature ||
		code == ErrorCodeAuthInvalidSignature
}

// IsVerificationError checks if an error came from the gateway re-verification call
func IsVerificationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeVerificationFailed ||
		code == ErrorCodeVerificationUnavailable ||
		code == ErrorCodeGatewayTimeout
}

// IsValidationError checks if an error is a post-verification validation mismatch
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationStatus ||
		code == ErrorCodeValidationAmountMismatch ||
		code == ErrorCodeValidationCurrencyMismatch ||
		code == ErrorCodeValidationMissingField
}

// IsConflictError checks if an error is a ledger outcome disagreement
func IsConflictError(err error) bool {
	return GetErrorCode(err) == ErrorCodeLedgerConflict
}

// Structured error instances
var (
	ErrMissingSignature = NewDomainError(ErrorCodeAuthMissingSignature, "signature header missing")
	ErrInvalidSignature = NewDomainError(ErrorCodeAuthInvalidSignature, "signature verification failed")

	ErrVerificationFailed      = NewDomainError(ErrorCodeVerificationFailed, "gateway verification returned a non-success result")
	ErrVerificationUnavailable = NewDomainError(ErrorCodeVerificationUnavailable, "gateway verification endpoint unavailable")

	ErrStatusNotSuccessful = NewDomainError(ErrorCodeValidationStatus, "verified payment status is not successful")
	ErrAmountMismatch      = NewDomainError(ErrorCodeValidationAmountMismatch, "paid amount is below the expected amount")
	ErrCurrencyMismatch    = NewDomainError(ErrorCodeValidationCurrencyMismatch, "paid currency does not match the expected currency")
	ErrMissingTxRef        = NewDomainError(ErrorCodeValidationMissingField, "tx_ref is required")

	ErrLedgerConflict = NewDomainError(ErrorCodeLedgerConflict, "conflicting final status already recorded for tx_ref")
	ErrLedgerNotFound = NewDomainError(ErrorCodeLedgerNotFound, "no ledger entry for tx_ref")

	ErrMalformedPayload = NewDomainError(ErrorCodeMalformedPayload, "request payload is not valid JSON")

	ErrGatewayTimedOut = NewDomainError(ErrorCodeGatewayTimeout, "gateway request timed out")

	ErrInternalError = NewDomainError(ErrorCodeInternalError, "internal server error")
	ErrDatabaseError = NewDomainError(ErrorCodeDatabaseError, "database error")
)
