// Package event emits typed program events as tagged log data and decodes
// them on the host side.
//
// An event payload is the 8-byte discriminator of the event type followed by
// the in-memory bytes of the event value.
package event

import (
	"errors"
	"fmt"
	"unsafe"

	bin "github.com/gagliardetto/binary"

	"github.com/lugondev/go-anvil/pkg/discriminator"
	"github.com/lugondev/go-anvil/pkg/zc"
)

var (
	ErrInvalidBuffer         = errors.New("invalid event buffer size")
	ErrDiscriminatorMismatch = errors.New("event discriminator mismatch")
)

// Sink receives program data log entries, one call per entry.
type Sink interface {
	LogData(fields ...[]byte)
}

// Encode returns the tagged payload for ev. T must be plain data.
func Encode[T any](ev *T) []byte {
	size := zc.Size[T]()
	disc := discriminator.Of[T]()
	out := make([]byte, discriminator.Len+size)
	copy(out, disc[:])
	copy(out[discriminator.Len:], unsafe.Slice((*byte)(unsafe.Pointer(ev)), size))
	return out
}

// Emit writes ev to sink as a single program data entry.
func Emit[T any](sink Sink, ev *T) {
	sink.LogData(Encode(ev))
}

// Decode parses a tagged payload produced by Encode.
func Decode[T any](data []byte) (*T, error) {
	dec := bin.NewBorshDecoder(data)
	disc, err := dec.ReadDiscriminator()
	if err != nil {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidBuffer, len(data))
	}
	want := discriminator.Of[T]()
	if !disc.Equal(want[:]) {
		return nil, fmt.Errorf("%w: got %x, want %s", ErrDiscriminatorMismatch, disc[:], want)
	}
	out := new(T)
	if err := dec.Decode(out); err != nil {
		return nil, fmt.Errorf("decode %T: %w", *out, err)
	}
	if dec.HasRemaining() {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidBuffer, dec.Remaining())
	}
	return out, nil
}

// View is a zero-copy handle over a tagged payload.
type View struct {
	buffer        []byte
	discriminator discriminator.Discriminator
}

// NewView wraps buffer, which must hold at least the tag.
func NewView(buffer []byte) (*View, error) {
	disc, ok := discriminator.FromBytes(buffer)
	if !ok {
		return nil, ErrInvalidBuffer
	}
	return &View{
		buffer:        buffer,
		discriminator: disc,
	}, nil
}

func (v *View) Discriminator() discriminator.Discriminator {
	return v.discriminator
}

// Data returns the payload after the tag.
func (v *View) Data() []byte {
	if len(v.buffer) <= discriminator.Len {
		return nil
	}
	return v.buffer[discriminator.Len:]
}

func (v *View) FullData() []byte {
	return v.buffer
}
