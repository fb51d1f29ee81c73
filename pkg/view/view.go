// Package view provides zero-copy handles over account records in a program
// input buffer.
//
// An AccountView never owns memory. It points into the record the host laid
// out, and the first byte of that record doubles as the account's borrow
// state. Views resolved from duplicate records are plain copies, so every
// alias of one physical account reads and writes the same borrow cell.
package view

import (
	"encoding/binary"
	"unsafe"

	aerrors "github.com/lugondev/go-anvil/pkg/errors"
	"github.com/lugondev/go-anvil/pkg/types"
)

// Record layout offsets, relative to the start of a primary record.
const (
	OffsetBorrowState = 0
	OffsetIsSigner    = 1
	OffsetIsWritable  = 2
	OffsetExecutable  = 3
	OffsetResizeDelta = 4
	OffsetAddress     = 8
	OffsetOwner       = 40
	OffsetLamports    = 72
	OffsetDataLen     = 80
	OffsetData        = 88
	HeaderLen         = OffsetData

	// MaxPermittedDataIncrease is the headroom the host reserves after each
	// account's data so it can grow in place.
	MaxPermittedDataIncrease = 10 * 1024
)

// NonDupMarker is the first byte of a primary record. Duplicate records
// hold the index of the earlier record instead.
const NonDupMarker byte = 0xFF

// Borrow state values held in the record's first byte.
const (
	Unborrowed byte = 0xFF
	Exclusive  byte = 0x00

	// MaxSharedBorrows is the largest number of simultaneous shared borrows.
	MaxSharedBorrows = 254
)

// AccountView is a handle over one primary account record.
//
// rec spans the header, the data and the realloc headroom. Copying a view is
// cheap and yields another alias of the same account.
type AccountView struct {
	rec []byte
}

// NewUnchecked wraps a record slice. The slice must start at the record's
// borrow byte and cover HeaderLen + data_len + MaxPermittedDataIncrease bytes.
func NewUnchecked(rec []byte) AccountView {
	return AccountView{rec: rec}
}

// IsZero reports whether the view has not been bound to a record.
func (v AccountView) IsZero() bool {
	return v.rec == nil
}

// Address returns the account key in place.
func (v AccountView) Address() *types.Pubkey {
	return (*types.Pubkey)(unsafe.Pointer(&v.rec[OffsetAddress]))
}

// Owner returns the owning program in place.
func (v AccountView) Owner() *types.Pubkey {
	return (*types.Pubkey)(unsafe.Pointer(&v.rec[OffsetOwner]))
}

// IsOwnedBy reports whether the account is owned by program.
func (v AccountView) IsOwnedBy(program types.Pubkey) bool {
	return *v.Owner() == program
}

func (v AccountView) IsSigner() bool {
	return v.rec[OffsetIsSigner] != 0
}

func (v AccountView) IsWritable() bool {
	return v.rec[OffsetIsWritable] != 0
}

func (v AccountView) Executable() bool {
	return v.rec[OffsetExecutable] != 0
}

func (v AccountView) Lamports() uint64 {
	return binary.LittleEndian.Uint64(v.rec[OffsetLamports:])
}

// SetLamports overwrites the balance. The caller must hold the account
// exclusively or otherwise know no typed reference observes it.
func (v AccountView) SetLamports(lamports uint64) {
	binary.LittleEndian.PutUint64(v.rec[OffsetLamports:], lamports)
}

func (v AccountView) DataLen() int {
	return int(binary.LittleEndian.Uint64(v.rec[OffsetDataLen:]))
}

// IsDataEmpty reports whether the account holds no data.
func (v AccountView) IsDataEmpty() bool {
	return v.DataLen() == 0
}

// ResizeDelta returns the growth applied since the invocation started.
func (v AccountView) ResizeDelta() int {
	return int(int32(binary.LittleEndian.Uint32(v.rec[OffsetResizeDelta:])))
}

// BorrowState returns the raw borrow cell.
func (v AccountView) BorrowState() byte {
	return v.rec[OffsetBorrowState]
}

// IsBorrowed reports whether any borrow is outstanding.
func (v AccountView) IsBorrowed() bool {
	return v.rec[OffsetBorrowState] != Unborrowed
}

// IsBorrowedMut reports whether the exclusive borrow is held.
func (v AccountView) IsBorrowedMut() bool {
	return v.rec[OffsetBorrowState] == Exclusive
}

// TryBorrow takes a shared borrow of the account data.
func (v AccountView) TryBorrow() (Ref, error) {
	cell := &v.rec[OffsetBorrowState]
	// 0 is exclusive, 1 means the shared counter is saturated.
	if *cell <= 1 {
		return Ref{}, aerrors.ErrBorrowConflict
	}
	*cell--
	return Ref{cell: cell, data: v.data()}, nil
}

// TryBorrowMut takes the exclusive borrow of the account data.
func (v AccountView) TryBorrowMut() (RefMut, error) {
	cell := &v.rec[OffsetBorrowState]
	if *cell != Unborrowed {
		return RefMut{}, aerrors.ErrBorrowConflict
	}
	*cell = Exclusive
	return RefMut{cell: cell, data: v.data()}, nil
}

// BorrowUnchecked returns the data without touching the borrow state. The
// caller must guarantee no exclusive borrow of this account is live.
func (v AccountView) BorrowUnchecked() []byte {
	return v.data()
}

// BorrowMutUnchecked returns mutable data without touching the borrow state.
// The caller must guarantee no other borrow of this account is live.
func (v AccountView) BorrowMutUnchecked() []byte {
	return v.data()
}

// AssignUnchecked changes the owner. The caller must guarantee no borrow of
// the account is live.
func (v AccountView) AssignUnchecked(owner types.Pubkey) {
	*v.Owner() = owner
}

// Resize changes the data length in place, zero-filling newly exposed bytes.
// Growth is bounded by the headroom reserved behind the original data.
func (v AccountView) Resize(newLen int) error {
	if v.IsBorrowed() {
		return aerrors.ErrBorrowConflict
	}
	if newLen < 0 || newLen > len(v.rec)-HeaderLen {
		return aerrors.ErrInvalidRealloc.WithDetails(map[string]any{
			"new_len": newLen,
			"max_len": len(v.rec) - HeaderLen,
		})
	}
	cur := v.DataLen()
	if newLen > cur {
		clear(v.rec[HeaderLen+cur : HeaderLen+newLen])
	}
	delta := v.ResizeDelta() + newLen - cur
	binary.LittleEndian.PutUint32(v.rec[OffsetResizeDelta:], uint32(int32(delta)))
	binary.LittleEndian.PutUint64(v.rec[OffsetDataLen:], uint64(newLen))
	return nil
}

func (v AccountView) data() []byte {
	n := v.DataLen()
	return v.rec[HeaderLen : HeaderLen+n : HeaderLen+n]
}

// Ref is a shared borrow of account data. Release it when done.
type Ref struct {
	cell *byte
	data []byte
}

// Data returns the borrowed bytes. They must not be written.
func (r *Ref) Data() []byte {
	return r.data
}

// Release returns the borrow. Calling it more than once is a no-op, and so
// is releasing a copy of a guard whose borrow is already gone: the cell is
// only incremented while it holds a shared count.
func (r *Ref) Release() {
	if r.cell == nil {
		return
	}
	if c := *r.cell; c != Unborrowed && c != Exclusive {
		*r.cell++
	}
	r.cell = nil
	r.data = nil
}

// RefMut is the exclusive borrow of account data. Release it when done.
type RefMut struct {
	cell *byte
	data []byte
}

// Data returns the borrowed bytes.
func (r *RefMut) Data() []byte {
	return r.data
}

// Release returns the borrow. Calling it more than once is a no-op, and so
// is releasing a copy of a guard whose borrow is already gone.
func (r *RefMut) Release() {
	if r.cell == nil {
		return
	}
	if *r.cell == Exclusive {
		*r.cell = Unborrowed
	}
	r.cell = nil
	r.data = nil
}
