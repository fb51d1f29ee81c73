package zc

import (
	"bytes"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	bin "github.com/gagliardetto/binary"

	aerrors "github.com/lugondev/go-anvil/pkg/errors"
	"github.com/lugondev/go-anvil/pkg/view"
)

var borshSizes sync.Map // reflect.Type -> borshSize

type borshSize struct {
	n   int
	err error
}

// BorshLen returns the record length for a borsh-encoded T: the
// discriminator plus the encoded size of T's zero value. T must have a
// fixed-size encoding.
func BorshLen[T any]() (int, error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if s, ok := borshSizes.Load(typ); ok {
		s := s.(borshSize)
		return discLen + s.n, s.err
	}
	var (
		zero T
		buf  bytes.Buffer
	)
	s := borshSize{}
	if err := bin.NewBorshEncoder(&buf).Encode(&zero); err != nil {
		s.err = fmt.Errorf("zc: %s: %w", typ, err)
	}
	s.n = buf.Len()
	borshSizes.Store(typ, s)
	return discLen + s.n, s.err
}

// TryDeserializeBorsh checks owner, length and discriminator like
// TryDeserialize, then decodes a copy of the payload with borsh. The borrow
// is held only while decoding.
func TryDeserializeBorsh[T Account](v view.AccountView) (T, error) {
	var out T
	want, err := BorshLen[T]()
	if err != nil {
		return out, aerrors.ErrInvalidAccountData.WithCause(err)
	}
	if owner := out.OwnerProgram(); !v.IsOwnedBy(owner) {
		if debugEnabled() {
			logFailure("account owner mismatch", v,
				slog.String("expected", owner.String()),
				slog.String("actual", v.Owner().String()))
		}
		return out, aerrors.ErrOwnerMismatch
	}
	if v.DataLen() != want {
		if debugEnabled() {
			logFailure("account data length mismatch", v,
				slog.Int("expected", want),
				slog.Int("actual", v.DataLen()))
		}
		return out, aerrors.ErrDataLengthMismatch
	}

	guard, err := v.TryBorrow()
	if err != nil {
		return out, err
	}
	defer guard.Release()
	data := guard.Data()
	if err := checkDiscriminator[T](v, data); err != nil {
		return out, err
	}

	dec := bin.NewBorshDecoder(data[discLen:])
	if err := dec.Decode(&out); err != nil {
		var zero T
		return zero, aerrors.ErrInvalidAccountData.WithCause(err)
	}
	if n := dec.Remaining(); n != 0 {
		var zero T
		return zero, aerrors.ErrInvalidAccountData.WithCause(fmt.Errorf("%d trailing bytes", n))
	}
	return out, nil
}
