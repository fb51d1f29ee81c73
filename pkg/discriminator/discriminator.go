// Package discriminator derives and reads the 8-byte type tags that prefix
// every typed account record, instruction and event payload.
//
// A tag is the first 8 bytes of sha256 over the type name. Tags are not
// collision-proof; two type names that share a prefix hash are
// indistinguishable.
package discriminator

import (
	"crypto/sha256"
	"encoding/hex"
	"reflect"
	"sync"

	aerrors "github.com/lugondev/go-anvil/pkg/errors"
	"github.com/lugondev/go-anvil/pkg/view"
)

// Len is the size of a discriminator in bytes.
const Len = 8

// Discriminator is an 8-byte type tag.
type Discriminator [Len]byte

// String returns the tag as hex.
func (d Discriminator) String() string {
	return hex.EncodeToString(d[:])
}

// Tagged is implemented by types that override the name-derived tag.
type Tagged interface {
	Discriminator() Discriminator
}

// Compute returns sha256(name)[:8].
func Compute(name string) Discriminator {
	sum := sha256.Sum256([]byte(name))
	var d Discriminator
	copy(d[:], sum[:Len])
	return d
}

// ComputeNamespaced returns the tag for "namespace:name", the form used for
// instruction and event tags by IDL-driven tooling.
func ComputeNamespaced(namespace, name string) Discriminator {
	return Compute(namespace + ":" + name)
}

var cache sync.Map // reflect.Type -> Discriminator

// Of returns the tag for T: its Discriminator method when it implements
// Tagged, otherwise the hash of its type name.
func Of[T any]() Discriminator {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if d, ok := cache.Load(typ); ok {
		return d.(Discriminator)
	}

	var zero T
	var d Discriminator
	switch t := any(zero).(type) {
	case Tagged:
		d = t.Discriminator()
	default:
		if p, ok := any(&zero).(Tagged); ok {
			d = p.Discriminator()
		} else {
			d = Compute(typ.Name())
		}
	}
	cache.Store(typ, d)
	return d
}

// Read returns the tag stored at the start of the account data.
func Read(v view.AccountView) (Discriminator, error) {
	data := v.BorrowUnchecked()
	if len(data) < Len {
		return Discriminator{}, aerrors.ErrDiscriminatorMismatch.WithDetails(map[string]any{
			"key":      v.Address().String(),
			"data_len": len(data),
		})
	}
	return Discriminator(data[:Len]), nil
}

// ReadUnchecked returns the stored tag. The data must hold at least Len bytes.
func ReadUnchecked(v view.AccountView) Discriminator {
	return Discriminator(v.BorrowUnchecked()[:Len])
}

// FromBytes returns the tag at the start of b.
func FromBytes(b []byte) (Discriminator, bool) {
	if len(b) < Len {
		return Discriminator{}, false
	}
	return Discriminator(b[:Len]), true
}
