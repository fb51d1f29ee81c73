// Package errors defines the closed set of program errors surfaced by the
// account layer.
//
// Every ProgramError carries a numeric ErrorCode that converts losslessly to
// the 32-bit custom error a host expects as the invocation result.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode is the numeric identity of a program error. Zero is reserved
// for success.
type ErrorCode uint32

// Error codes for the account layer.
const (
	ErrCodeOwnerMismatch ErrorCode = iota + 100
	ErrCodeDataLengthMismatch
	ErrCodeDiscriminatorMismatch
	ErrCodeBorrowConflict
	ErrCodeAllocationExhausted
	ErrCodeNotEnoughAccountKeys
	ErrCodeInvalidInstructionData
	ErrCodeAccountAlreadyInUse
	ErrCodeIncorrectProgramID
	ErrCodeMissingRequiredSignature
	ErrCodeInsufficientFunds
	ErrCodeInvalidRealloc
	ErrCodeUnknownInstruction
	ErrCodeProgramFailure
	ErrCodeInvalidAccountData
)

var codeNames = map[ErrorCode]string{
	ErrCodeOwnerMismatch:            "OwnerMismatch",
	ErrCodeDataLengthMismatch:       "DataLengthMismatch",
	ErrCodeDiscriminatorMismatch:    "DiscriminatorMismatch",
	ErrCodeBorrowConflict:           "BorrowConflict",
	ErrCodeAllocationExhausted:      "AllocationExhausted",
	ErrCodeNotEnoughAccountKeys:     "NotEnoughAccountKeys",
	ErrCodeInvalidInstructionData:   "InvalidInstructionData",
	ErrCodeAccountAlreadyInUse:      "AccountAlreadyInUse",
	ErrCodeIncorrectProgramID:       "IncorrectProgramID",
	ErrCodeMissingRequiredSignature: "MissingRequiredSignature",
	ErrCodeInsufficientFunds:        "InsufficientFunds",
	ErrCodeInvalidRealloc:           "InvalidRealloc",
	ErrCodeUnknownInstruction:       "UnknownInstruction",
	ErrCodeProgramFailure:           "ProgramFailure",
	ErrCodeInvalidAccountData:       "InvalidAccountData",
}

// String returns the short name of the code.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", uint32(c))
}

// ProgramError represents an error raised by program-side account handling.
type ProgramError struct {
	// Code identifies the error class.
	Code ErrorCode

	// Message is a human-readable error message.
	Message string

	// Cause is the underlying error, if any.
	Cause error

	// Details contains additional error context.
	Details map[string]any
}

// Error implements the error interface.
func (e *ProgramError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProgramError) Unwrap() error {
	return e.Cause
}

// Is reports whether the error matches the target.
func (e *ProgramError) Is(target error) bool {
	t, ok := target.(*ProgramError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with cause attached.
func (e *ProgramError) WithCause(cause error) *ProgramError {
	c := *e
	c.Cause = cause
	return &c
}

// WithDetails returns a copy of the error with details attached.
func (e *ProgramError) WithDetails(details map[string]any) *ProgramError {
	c := *e
	c.Details = details
	return &c
}

// NewError creates a new ProgramError.
func NewError(code ErrorCode, message string) *ProgramError {
	return &ProgramError{
		Code:    code,
		Message: message,
	}
}

// Pre-defined errors. Compare with Is; never mutate.
var (
	// ErrOwnerMismatch is returned when an account is not owned by the expected program.
	ErrOwnerMismatch = NewError(ErrCodeOwnerMismatch, "account owner mismatch")

	// ErrDataLengthMismatch is returned when account data is not exactly the typed length.
	ErrDataLengthMismatch = NewError(ErrCodeDataLengthMismatch, "account data length mismatch")

	// ErrDiscriminatorMismatch is returned when the stored tag does not match the type.
	ErrDiscriminatorMismatch = NewError(ErrCodeDiscriminatorMismatch, "account discriminator mismatch")

	// ErrBorrowConflict is returned when a borrow would violate aliasing rules.
	ErrBorrowConflict = NewError(ErrCodeBorrowConflict, "account already borrowed")

	// ErrAllocationExhausted is raised when the heap region cannot satisfy a request.
	ErrAllocationExhausted = NewError(ErrCodeAllocationExhausted, "heap allocation exhausted")

	// ErrNotEnoughAccountKeys is returned when fewer accounts were passed than required.
	ErrNotEnoughAccountKeys = NewError(ErrCodeNotEnoughAccountKeys, "not enough account keys")

	// ErrInvalidInstructionData is returned when instruction data cannot be interpreted.
	ErrInvalidInstructionData = NewError(ErrCodeInvalidInstructionData, "invalid instruction data")

	// ErrAccountAlreadyInUse is returned when creating an account that already exists.
	ErrAccountAlreadyInUse = NewError(ErrCodeAccountAlreadyInUse, "account already in use")

	// ErrIncorrectProgramID is returned when an account is not the expected program.
	ErrIncorrectProgramID = NewError(ErrCodeIncorrectProgramID, "incorrect program id")

	// ErrMissingRequiredSignature is returned when a required signer did not sign.
	ErrMissingRequiredSignature = NewError(ErrCodeMissingRequiredSignature, "missing required signature")

	// ErrInsufficientFunds is returned when a payer cannot cover a transfer.
	ErrInsufficientFunds = NewError(ErrCodeInsufficientFunds, "insufficient funds")

	// ErrInvalidRealloc is returned when a resize exceeds the permitted growth.
	ErrInvalidRealloc = NewError(ErrCodeInvalidRealloc, "invalid account data realloc")

	// ErrUnknownInstruction is returned when no handler matches the instruction tag.
	ErrUnknownInstruction = NewError(ErrCodeUnknownInstruction, "unknown instruction")

	// ErrInvalidAccountData is returned when account data passes its checks
	// but cannot be decoded.
	ErrInvalidAccountData = NewError(ErrCodeInvalidAccountData, "invalid account data")
)

// ProgramFailure wraps an arbitrary error raised by program logic.
func ProgramFailure(cause error) *ProgramError {
	return NewError(ErrCodeProgramFailure, "program failed").WithCause(cause)
}

// FromCode returns the pre-defined error for code, or a ProgramFailure-class
// error carrying the raw code when it is not part of the enumeration.
func FromCode(code uint32) *ProgramError {
	c := ErrorCode(code)
	for _, e := range []*ProgramError{
		ErrOwnerMismatch, ErrDataLengthMismatch, ErrDiscriminatorMismatch,
		ErrBorrowConflict, ErrAllocationExhausted, ErrNotEnoughAccountKeys,
		ErrInvalidInstructionData, ErrAccountAlreadyInUse, ErrIncorrectProgramID,
		ErrMissingRequiredSignature, ErrInsufficientFunds, ErrInvalidRealloc,
		ErrUnknownInstruction, ErrInvalidAccountData,
	} {
		if e.Code == c {
			return e
		}
	}
	return NewError(c, "custom program error")
}

// ReturnCode converts err into the 64-bit invocation result. Nil is success.
func ReturnCode(err error) uint64 {
	if err == nil {
		return 0
	}
	var pe *ProgramError
	if errors.As(err, &pe) {
		return uint64(pe.Code)
	}
	return uint64(ErrCodeProgramFailure)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
