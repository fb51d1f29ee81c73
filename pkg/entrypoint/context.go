package entrypoint

import (
	"encoding/binary"

	aerrors "github.com/lugondev/go-anvil/pkg/errors"
	"github.com/lugondev/go-anvil/pkg/types"
	"github.com/lugondev/go-anvil/pkg/view"
)

// MaybeAccount is either a primary account view or the index of the
// earlier record a duplicate refers to.
type MaybeAccount struct {
	account    view.AccountView
	duplicate  byte
	isDupEntry bool
}

// IsDuplicate reports whether the record repeats an earlier account.
func (m MaybeAccount) IsDuplicate() bool {
	return m.isDupEntry
}

// DuplicateOf returns the index of the original record.
func (m MaybeAccount) DuplicateOf() (int, bool) {
	return int(m.duplicate), m.isDupEntry
}

// Account returns the view when the record is primary.
func (m MaybeAccount) Account() (view.AccountView, bool) {
	return m.account, !m.isDupEntry
}

// AssumeAccount returns the view and panics on a duplicate record.
func (m MaybeAccount) AssumeAccount() view.AccountView {
	if m.isDupEntry {
		panic("entrypoint: duplicated account")
	}
	return m.account
}

// InstructionContext walks the input lazily, one account at a time. Programs
// that only need a prefix of their accounts avoid parsing the rest.
type InstructionContext struct {
	input     []byte
	off       int
	remaining uint64
}

// NewInstructionContext starts a cursor at the first account record.
func NewInstructionContext(input []byte) *InstructionContext {
	return &InstructionContext{
		input:     input,
		off:       countLen,
		remaining: binary.LittleEndian.Uint64(input),
	}
}

// Remaining returns the number of records not yet read.
func (c *InstructionContext) Remaining() uint64 {
	return c.remaining
}

// NextAccount reads the next record.
func (c *InstructionContext) NextAccount() (MaybeAccount, error) {
	if c.remaining == 0 {
		return MaybeAccount{}, aerrors.ErrNotEnoughAccountKeys
	}
	c.remaining--
	return c.readAccount(), nil
}

// NextAccountUnchecked reads the next record without consulting or
// decrementing the remaining count. The caller must know a record follows.
func (c *InstructionContext) NextAccountUnchecked() MaybeAccount {
	return c.readAccount()
}

// InstructionData returns the instruction bytes once every account record
// has been read.
func (c *InstructionContext) InstructionData() ([]byte, error) {
	if c.remaining > 0 {
		return nil, aerrors.ErrInvalidInstructionData.WithDetails(map[string]any{
			"remaining_accounts": c.remaining,
		})
	}
	return c.InstructionDataUnchecked(), nil
}

// InstructionDataUnchecked returns the instruction bytes. The cursor must be
// past the last account record.
func (c *InstructionContext) InstructionDataUnchecked() []byte {
	data, _ := readTrailer(c.input, c.off)
	return data
}

// ProgramID returns the program id once every account record has been read.
func (c *InstructionContext) ProgramID() (*types.Pubkey, error) {
	if c.remaining > 0 {
		return nil, aerrors.ErrInvalidInstructionData.WithDetails(map[string]any{
			"remaining_accounts": c.remaining,
		})
	}
	return c.ProgramIDUnchecked(), nil
}

// ProgramIDUnchecked returns the program id. The cursor must be past the last
// account record.
func (c *InstructionContext) ProgramIDUnchecked() *types.Pubkey {
	_, id := readTrailer(c.input, c.off)
	return id
}

func (c *InstructionContext) readAccount() MaybeAccount {
	if marker := c.input[c.off]; marker != view.NonDupMarker {
		c.off += dupRecordLen
		return MaybeAccount{duplicate: marker, isDupEntry: true}
	}
	var v view.AccountView
	v, c.off = readPrimary(c.input, c.off)
	return MaybeAccount{account: v}
}
