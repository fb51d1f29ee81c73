package zc

import (
	"fmt"
	"reflect"
	"sync"
)

// maxAlign is the strictest alignment a record payload can rely on: the
// payload starts 8 bytes into data that starts on an 8-byte boundary.
const maxAlign = 8

type layout struct {
	size int
	err  error
}

var layouts sync.Map // reflect.Type -> layout

// CheckPlain reports whether T can be reinterpreted from raw bytes: every
// bit pattern must be a valid value and the type must hold no Go pointers,
// padding or platform-sized integers.
func CheckPlain[T any]() error {
	return layoutOf[T]().err
}

// Size returns sizeof(T) for a plain T.
func Size[T any]() int {
	return mustLayout[T]().size
}

// Len returns the record length for T: the discriminator plus sizeof(T).
func Len[T any]() int {
	return discLen + Size[T]()
}

func layoutOf[T any]() layout {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if l, ok := layouts.Load(typ); ok {
		return l.(layout)
	}
	l := layout{size: int(typ.Size()), err: checkPlain(typ)}
	layouts.Store(typ, l)
	return l
}

func mustLayout[T any]() layout {
	l := layoutOf[T]()
	if l.err != nil {
		panic(l.err)
	}
	return l
}

func checkPlain(t reflect.Type) error {
	if t.Align() > maxAlign {
		return fmt.Errorf("zc: %s: alignment %d exceeds %d", t, t.Align(), maxAlign)
	}
	switch t.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Float32, reflect.Float64:
		return nil
	case reflect.Array:
		if err := checkPlain(t.Elem()); err != nil {
			return fmt.Errorf("zc: %s: %w", t, err)
		}
		return nil
	case reflect.Struct:
		var next uintptr
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Offset != next {
				return fmt.Errorf("zc: %s: padding before field %s", t, f.Name)
			}
			if err := checkPlain(f.Type); err != nil {
				return fmt.Errorf("zc: %s.%s: %w", t, f.Name, err)
			}
			next = f.Offset + f.Type.Size()
		}
		if next != t.Size() {
			return fmt.Errorf("zc: %s: trailing padding", t)
		}
		return nil
	default:
		return fmt.Errorf("zc: %s: kind %s is not plain data", t, t.Kind())
	}
}
