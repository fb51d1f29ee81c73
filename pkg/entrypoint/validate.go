package entrypoint

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/lugondev/go-anvil/pkg/view"
)

// ErrMalformedInput is returned by Validate.
var ErrMalformedInput = errors.New("malformed input buffer")

// Validate walks input with bounds checks and reports whether Deserialize
// and InstructionContext can parse it. Hosts build inputs correctly by
// construction; tools reading buffers from files call Validate first.
//
// A duplicate record must reference an earlier record, and the program id
// must end exactly at the end of input.
func Validate(input []byte) error {
	size := uint64(len(input))
	if size < countLen {
		return malformed("account count truncated: %d bytes", size)
	}
	declared := binary.LittleEndian.Uint64(input)
	if declared > MaxTxAccounts {
		return malformed("%d accounts exceed the %d account limit", declared, MaxTxAccounts)
	}

	off := uint64(countLen)
	for i := uint64(0); i < declared; i++ {
		if off >= size {
			return malformed("record %d starts at %d, past the end (%d)", i, off, size)
		}
		if marker := input[off]; marker != view.NonDupMarker {
			if i == 0 || uint64(marker) >= i {
				return malformed("record %d duplicates record %d, which is not an earlier record", i, marker)
			}
			if off+dupRecordLen > size {
				return malformed("duplicate record %d truncated", i)
			}
			off += dupRecordLen
			continue
		}
		if off+view.HeaderLen > size {
			return malformed("record %d header truncated", i)
		}
		dataLen := binary.LittleEndian.Uint64(input[off+view.OffsetDataLen:])
		if dataLen > size {
			return malformed("record %d declares %d data bytes", i, dataLen)
		}
		end := uint64(alignUp(int(off+primarySpan+dataLen))) + rentEpochLen
		if end > size {
			return malformed("record %d ends at %d, past the end (%d)", i, end, size)
		}
		off = end
	}

	if off+instrLenBytes > size {
		return malformed("instruction length truncated at %d", off)
	}
	n := binary.LittleEndian.Uint64(input[off:])
	off += instrLenBytes
	if n > size || off+n+programIDLen != size {
		return malformed("instruction of %d bytes at %d does not leave exactly a program id before %d", n, off, size)
	}
	return nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
}
