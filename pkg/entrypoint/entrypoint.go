// Package entrypoint parses the serialized program input handed over by the
// host and dispatches it to a program's instruction processor.
//
// Input layout (little-endian, records aligned to 8 bytes):
//
//	[u64 account count]
//	[account records]
//	[u64 instruction length][instruction bytes]
//	[32-byte program id]
//
// A primary record is a view.HeaderLen header, data_len data bytes, the
// realloc headroom, padding to 8 and the rent epoch. A duplicate record is
// the index of an earlier record followed by 7 padding bytes.
//
// The input is trusted. A malformed buffer panics on a bounds check rather
// than being misparsed.
package entrypoint

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	aerrors "github.com/lugondev/go-anvil/pkg/errors"
	"github.com/lugondev/go-anvil/pkg/types"
	"github.com/lugondev/go-anvil/pkg/view"
)

const (
	// MaxTxAccounts is the largest number of accounts a transaction can carry.
	MaxTxAccounts = 254

	// Success is the invocation result for a successful instruction.
	Success uint64 = 0

	countLen      = 8
	dupRecordLen  = 8
	rentEpochLen  = 8
	bpfAlign      = 8
	primarySpan   = view.HeaderLen + view.MaxPermittedDataIncrease
	programIDLen  = types.PubkeyLen
	instrLenBytes = 8
)

// ProcessInstruction is a program's instruction handler.
type ProcessInstruction func(programID *types.Pubkey, accounts []view.AccountView, data []byte) error

// Deserialize parses input into accounts and returns the program id, the
// number of views written and the instruction data. All returned values
// alias input.
//
// At most len(accounts) views are materialized; further records are walked
// so the instruction data can still be located. len(accounts) must not exceed
// MaxTxAccounts.
func Deserialize(input []byte, accounts []view.AccountView) (*types.Pubkey, int, []byte) {
	if len(accounts) > MaxTxAccounts {
		panic(fmt.Sprintf("entrypoint: %d account slots exceed the %d account limit", len(accounts), MaxTxAccounts))
	}

	declared := int(binary.LittleEndian.Uint64(input))
	off := countLen
	count := min(declared, len(accounts))

	if count > 0 {
		// The first record is never a duplicate.
		accounts[0], off = readPrimary(input, off)

		i := 1
		for ; i+5 <= count; i += 5 {
			off = readAccount(input, off, accounts, i)
			off = readAccount(input, off, accounts, i+1)
			off = readAccount(input, off, accounts, i+2)
			off = readAccount(input, off, accounts, i+3)
			off = readAccount(input, off, accounts, i+4)
		}

		switch count - i {
		case 4:
			off = readAccount(input, off, accounts, i)
			off = readAccount(input, off, accounts, i+1)
			off = readAccount(input, off, accounts, i+2)
			off = readAccount(input, off, accounts, i+3)
		case 3:
			off = readAccount(input, off, accounts, i)
			off = readAccount(input, off, accounts, i+1)
			off = readAccount(input, off, accounts, i+2)
		case 2:
			off = readAccount(input, off, accounts, i)
			off = readAccount(input, off, accounts, i+1)
		case 1:
			off = readAccount(input, off, accounts, i)
		}
	}

	for i := count; i < declared; i++ {
		off = skipRecord(input, off)
	}

	data, programID := readTrailer(input, off)
	return programID, count, data
}

// Process deserializes input with accounts as scratch space, runs fn and
// converts its result into the host's 64-bit return value.
func Process(input []byte, accounts []view.AccountView, fn ProcessInstruction) uint64 {
	programID, count, data := Deserialize(input, accounts)
	if err := fn(programID, accounts[:count], data); err != nil {
		return aerrors.ReturnCode(err)
	}
	return Success
}

func readAccount(input []byte, off int, accounts []view.AccountView, i int) int {
	if marker := input[off]; marker != view.NonDupMarker {
		resolveDuplicate(accounts, i, marker)
		return off + dupRecordLen
	}
	accounts[i], off = readPrimary(input, off)
	return off
}

// resolveDuplicate is kept out of line; duplicates are rare.
//
//go:noinline
func resolveDuplicate(accounts []view.AccountView, i int, original byte) {
	accounts[i] = accounts[original]
}

func readPrimary(input []byte, off int) (view.AccountView, int) {
	dataLen := int(binary.LittleEndian.Uint64(input[off+view.OffsetDataLen:]))
	end := off + primarySpan + dataLen
	v := view.NewUnchecked(input[off:end:end])
	return v, alignUp(end) + rentEpochLen
}

func skipRecord(input []byte, off int) int {
	if input[off] != view.NonDupMarker {
		return off + dupRecordLen
	}
	dataLen := int(binary.LittleEndian.Uint64(input[off+view.OffsetDataLen:]))
	return alignUp(off+primarySpan+dataLen) + rentEpochLen
}

func readTrailer(input []byte, off int) ([]byte, *types.Pubkey) {
	n := int(binary.LittleEndian.Uint64(input[off:]))
	off += instrLenBytes
	data := input[off : off+n : off+n]
	off += n
	_ = input[off+programIDLen-1]
	return data, (*types.Pubkey)(unsafe.Pointer(&input[off]))
}

func alignUp(off int) int {
	return (off + bpfAlign - 1) &^ (bpfAlign - 1)
}
