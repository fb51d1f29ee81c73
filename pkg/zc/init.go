package zc

import (
	"encoding/binary"

	"github.com/lugondev/go-anvil/pkg/discriminator"
	aerrors "github.com/lugondev/go-anvil/pkg/errors"
	"github.com/lugondev/go-anvil/pkg/rent"
	"github.com/lugondev/go-anvil/pkg/types"
	"github.com/lugondev/go-anvil/pkg/view"
)

// createAccountTag is the system program's CreateAccount instruction index.
const createAccountTag uint32 = 0

// CreateAccountDataLen is the encoded size of a CreateAccount instruction.
const CreateAccountDataLen = 4 + 8 + 8 + types.PubkeyLen

// Signer carries the seeds of a program-derived address that signs a
// cross-program call on the program's behalf.
type Signer struct {
	Seeds [][]byte
}

// InitAccounts are the accounts that fund and perform record creation.
type InitAccounts struct {
	Payer         view.AccountView
	SystemProgram view.AccountView
}

// CreateAccountRequest asks the system program to allocate Target with
// Space bytes owned by Owner, funded with Lamports from Payer.
type CreateAccountRequest struct {
	Payer         view.AccountView
	Target        view.AccountView
	SystemProgram view.AccountView
	Lamports      uint64
	Space         uint64
	Owner         types.Pubkey
	Signers       []Signer
}

// InstructionData encodes the request as system program instruction data:
// u32 tag, u64 lamports, u64 space, owner.
func (r CreateAccountRequest) InstructionData() []byte {
	data := make([]byte, CreateAccountDataLen)
	binary.LittleEndian.PutUint32(data[0:4], createAccountTag)
	binary.LittleEndian.PutUint64(data[4:12], r.Lamports)
	binary.LittleEndian.PutUint64(data[12:20], r.Space)
	copy(data[20:], r.Owner[:])
	return data
}

// AccountCreator performs account creation. Implementations reject targets
// that are already allocated with AccountAlreadyInUse.
type AccountCreator interface {
	CreateAccount(req CreateAccountRequest) error
}

// TryInitialize creates target as a rent-exempt T record owned by
// T.OwnerProgram(), writes the discriminator and returns the zeroed record
// borrowed exclusively.
func TryInitialize[T Account](target view.AccountView, accounts InitAccounts, creator AccountCreator, signers ...Signer) (RefMut[T], error) {
	l := mustLayout[T]()
	space := uint64(discLen + l.size)

	var zero T
	req := CreateAccountRequest{
		Payer:         accounts.Payer,
		Target:        target,
		SystemProgram: accounts.SystemProgram,
		Lamports:      rent.MinimumBalance(space),
		Space:         space,
		Owner:         zero.OwnerProgram(),
		Signers:       signers,
	}
	if err := creator.CreateAccount(req); err != nil {
		if debugEnabled() {
			logFailure("account creation failed", target)
		}
		return RefMut[T]{}, err
	}

	guard, err := target.TryBorrowMut()
	if err != nil {
		return RefMut[T]{}, err
	}
	data := guard.Data()
	if uint64(len(data)) != space {
		guard.Release()
		return RefMut[T]{}, aerrors.ErrDataLengthMismatch
	}
	disc := discriminator.Of[T]()
	copy(data, disc[:])
	clear(data[discLen:])
	return RefMut[T]{ptr: cast[T](data), guard: guard}, nil
}
