package host

import (
	"encoding/binary"

	"github.com/zeebo/blake3"

	"github.com/lugondev/go-anvil/pkg/types"
)

// Fingerprint is a digest of an account's observable state.
type Fingerprint [32]byte

// AccountFingerprint hashes
// lamports || rent_epoch || data || executable || owner || pubkey
// with BLAKE3.
func AccountFingerprint(key types.Pubkey, acc *types.Account) Fingerprint {
	size := 8 + 8 + len(acc.Data) + 1 + types.PubkeyLen + types.PubkeyLen
	buf := make([]byte, size)
	offset := 0

	binary.LittleEndian.PutUint64(buf[offset:], acc.Lamports)
	offset += 8

	binary.LittleEndian.PutUint64(buf[offset:], acc.RentEpoch)
	offset += 8

	offset += copy(buf[offset:], acc.Data)

	if acc.Executable {
		buf[offset] = 1
	}
	offset++

	offset += copy(buf[offset:], acc.Owner[:])
	copy(buf[offset:], key[:])

	return blake3.Sum256(buf)
}
