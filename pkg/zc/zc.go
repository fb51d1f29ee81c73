// Package zc reinterprets account data as typed records without copying.
//
// A record is an 8-byte discriminator followed by the in-memory bytes of a
// plain-data type T, and its length is exactly 8 + sizeof(T). Checked
// accessors verify, in order, the owning program, the exact length and the
// discriminator before handing out a *T that aliases the account data.
package zc

import (
	"context"
	"log/slog"
	"unsafe"

	"github.com/lugondev/go-anvil/pkg/discriminator"
	aerrors "github.com/lugondev/go-anvil/pkg/errors"
	"github.com/lugondev/go-anvil/pkg/types"
	"github.com/lugondev/go-anvil/pkg/view"
)

const discLen = discriminator.Len

// Account is implemented by record types. OwnerProgram must not depend on
// the receiver's value; it is called on the zero value.
type Account interface {
	OwnerProgram() types.Pubkey
}

// Ref is a shared typed borrow. Release it when done.
type Ref[T any] struct {
	ptr   *T
	guard view.Ref
}

// Get returns the record. It must not be written.
func (r *Ref[T]) Get() *T {
	return r.ptr
}

// Release returns the borrow. Calling it more than once is a no-op.
func (r *Ref[T]) Release() {
	r.guard.Release()
	r.ptr = nil
}

// RefMut is an exclusive typed borrow. Release it when done.
type RefMut[T any] struct {
	ptr   *T
	guard view.RefMut
}

// Get returns the record.
func (r *RefMut[T]) Get() *T {
	return r.ptr
}

// Release returns the borrow. Calling it more than once is a no-op.
func (r *RefMut[T]) Release() {
	r.guard.Release()
	r.ptr = nil
}

// TryDeserialize borrows v shared and returns its record as a T.
func TryDeserialize[T Account](v view.AccountView) (Ref[T], error) {
	if err := checkOwnerAndLen[T](v); err != nil {
		return Ref[T]{}, err
	}
	guard, err := v.TryBorrow()
	if err != nil {
		return Ref[T]{}, err
	}
	data := guard.Data()
	if err := checkDiscriminator[T](v, data); err != nil {
		guard.Release()
		return Ref[T]{}, err
	}
	return Ref[T]{ptr: cast[T](data), guard: guard}, nil
}

// TryDeserializeMut borrows v exclusively and returns its record as a T.
func TryDeserializeMut[T Account](v view.AccountView) (RefMut[T], error) {
	if err := checkOwnerAndLen[T](v); err != nil {
		return RefMut[T]{}, err
	}
	guard, err := v.TryBorrowMut()
	if err != nil {
		return RefMut[T]{}, err
	}
	data := guard.Data()
	if err := checkDiscriminator[T](v, data); err != nil {
		guard.Release()
		return RefMut[T]{}, err
	}
	return RefMut[T]{ptr: cast[T](data), guard: guard}, nil
}

// TryDeserializeRaw checks owner and length only and borrows v shared. Use
// it for records whose tag is validated elsewhere.
func TryDeserializeRaw[T Account](v view.AccountView) (Ref[T], error) {
	if err := checkOwnerAndLen[T](v); err != nil {
		return Ref[T]{}, err
	}
	guard, err := v.TryBorrow()
	if err != nil {
		return Ref[T]{}, err
	}
	return Ref[T]{ptr: cast[T](guard.Data()), guard: guard}, nil
}

// TryDeserializeRawMut checks owner and length only and borrows v exclusively.
func TryDeserializeRawMut[T Account](v view.AccountView) (RefMut[T], error) {
	if err := checkOwnerAndLen[T](v); err != nil {
		return RefMut[T]{}, err
	}
	guard, err := v.TryBorrowMut()
	if err != nil {
		return RefMut[T]{}, err
	}
	return RefMut[T]{ptr: cast[T](guard.Data()), guard: guard}, nil
}

// DeserializeUnchecked returns the record without any check or borrow. The
// caller must guarantee owner, length and tag, and that no exclusive borrow
// of v is live while the result is used.
func DeserializeUnchecked[T any](v view.AccountView) *T {
	mustLayout[T]()
	return cast[T](v.BorrowUnchecked())
}

// DeserializeMutUnchecked is DeserializeUnchecked for writers. No other
// borrow of v may be live while the result is used.
func DeserializeMutUnchecked[T any](v view.AccountView) *T {
	mustLayout[T]()
	return cast[T](v.BorrowMutUnchecked())
}

func cast[T any](data []byte) *T {
	return (*T)(unsafe.Pointer(unsafe.SliceData(data[discLen:])))
}

func checkOwnerAndLen[T Account](v view.AccountView) error {
	l := mustLayout[T]()
	var zero T
	if owner := zero.OwnerProgram(); !v.IsOwnedBy(owner) {
		if debugEnabled() {
			logFailure("account owner mismatch", v,
				slog.String("expected", owner.String()),
				slog.String("actual", v.Owner().String()))
		}
		return aerrors.ErrOwnerMismatch
	}
	if want := discLen + l.size; v.DataLen() != want {
		if debugEnabled() {
			logFailure("account data length mismatch", v,
				slog.Int("expected", want),
				slog.Int("actual", v.DataLen()))
		}
		return aerrors.ErrDataLengthMismatch
	}
	return nil
}

func checkDiscriminator[T any](v view.AccountView, data []byte) error {
	want := discriminator.Of[T]()
	if got := discriminator.Discriminator(data[:discLen]); got != want {
		if debugEnabled() {
			logFailure("account discriminator mismatch", v,
				slog.String("expected", want.String()),
				slog.String("actual", got.String()))
		}
		return aerrors.ErrDiscriminatorMismatch
	}
	return nil
}

func debugEnabled() bool {
	return slog.Default().Enabled(context.Background(), slog.LevelDebug)
}

func logFailure(msg string, v view.AccountView, attrs ...slog.Attr) {
	attrs = append(attrs, slog.String("key", v.Address().String()))
	slog.Default().LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
}
