package zc

import (
	"reflect"
	"unsafe"

	aerrors "github.com/lugondev/go-anvil/pkg/errors"
)

// DecodeIx reinterprets instruction data as a plain T without copying. The
// data must be exactly sizeof(T) bytes and aligned for T.
func DecodeIx[T any](data []byte) (*T, error) {
	l := mustLayout[T]()
	if len(data) != l.size {
		return nil, aerrors.ErrInvalidInstructionData.WithDetails(map[string]any{
			"expected": l.size,
			"actual":   len(data),
		})
	}
	if l.size == 0 {
		return new(T), nil
	}
	if uintptr(unsafe.Pointer(unsafe.SliceData(data)))%uintptr(reflect.TypeOf((*T)(nil)).Elem().Align()) != 0 {
		return nil, aerrors.ErrInvalidInstructionData.WithDetails(map[string]any{
			"reason": "misaligned",
		})
	}
	return (*T)(unsafe.Pointer(unsafe.SliceData(data))), nil
}
