package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodesAreStable(t *testing.T) {
	tests := []struct {
		err  *ProgramError
		code uint64
		name string
	}{
		{ErrOwnerMismatch, 100, "OwnerMismatch"},
		{ErrDataLengthMismatch, 101, "DataLengthMismatch"},
		{ErrDiscriminatorMismatch, 102, "DiscriminatorMismatch"},
		{ErrBorrowConflict, 103, "BorrowConflict"},
		{ErrAllocationExhausted, 104, "AllocationExhausted"},
		{ErrUnknownInstruction, 112, "UnknownInstruction"},
		{ErrInvalidAccountData, 114, "InvalidAccountData"},
	}

	for _, tt := range tests {
		if got := ReturnCode(tt.err); got != tt.code {
			t.Errorf("%s: code %d, want %d", tt.name, got, tt.code)
		}
		if got := tt.err.Code.String(); got != tt.name {
			t.Errorf("code name %q, want %q", got, tt.name)
		}
	}
}

func TestReturnCode(t *testing.T) {
	if ReturnCode(nil) != 0 {
		t.Error("nil must map to success")
	}
	if got := ReturnCode(fmt.Errorf("load: %w", ErrBorrowConflict)); got != 103 {
		t.Errorf("wrapped error code %d, want 103", got)
	}
	if got := ReturnCode(errors.New("plain")); got != uint64(ErrCodeProgramFailure) {
		t.Errorf("plain error code %d, want %d", got, ErrCodeProgramFailure)
	}
}

func TestWithCauseCopies(t *testing.T) {
	cause := errors.New("root")
	err := ErrInvalidRealloc.WithCause(cause)

	if ErrInvalidRealloc.Cause != nil {
		t.Fatal("sentinel must not be mutated")
	}
	if !errors.Is(err, ErrInvalidRealloc) {
		t.Error("copy must match its sentinel by code")
	}
	if !errors.Is(err, cause) {
		t.Error("copy must unwrap to its cause")
	}
	if errors.Is(err, ErrOwnerMismatch) {
		t.Error("different codes must not match")
	}
}

func TestFromCode(t *testing.T) {
	if FromCode(102) != ErrDiscriminatorMismatch {
		t.Error("expected the predefined sentinel")
	}
	custom := FromCode(6000)
	if custom.Code != 6000 || ReturnCode(custom) != 6000 {
		t.Errorf("unexpected custom error %v", custom)
	}
}

func TestProgramFailure(t *testing.T) {
	err := ProgramFailure(errors.New("boom"))
	if ReturnCode(err) != uint64(ErrCodeProgramFailure) {
		t.Errorf("unexpected code %d", ReturnCode(err))
	}
	if err.Error() != "ProgramFailure: program failed: boom" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
