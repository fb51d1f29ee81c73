package zc

import (
	"bytes"
	"fmt"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-anvil/pkg/discriminator"
	aerrors "github.com/lugondev/go-anvil/pkg/errors"
	"github.com/lugondev/go-anvil/pkg/types"
)

// tier only accepts values up to 3 when decoded.
type tier uint8

func (t *tier) UnmarshalWithDecoder(dec *bin.Decoder) error {
	b, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	if b > 3 {
		return fmt.Errorf("tier %d out of range", b)
	}
	*t = tier(b)
	return nil
}

type Profile struct {
	Tier   tier
	Active bool
	Score  uint32
	Tag    [4]byte
}

func (Profile) OwnerProgram() types.Pubkey { return testProgramID }

func profileRecord(t *testing.T, p Profile) []byte {
	t.Helper()
	var buf bytes.Buffer
	disc := discriminator.Of[Profile]()
	buf.Write(disc[:])
	require.NoError(t, bin.NewBorshEncoder(&buf).Encode(p))
	return buf.Bytes()
}

func TestBorshLen(t *testing.T) {
	n, err := BorshLen[Profile]()
	require.NoError(t, err)
	assert.Equal(t, 8+1+1+4+4, n)
}

func TestTryDeserializeBorsh(t *testing.T) {
	want := Profile{Tier: 2, Active: true, Score: 900, Tag: [4]byte{'g', 'o', 'l', 'd'}}
	v := newAccount(testProgramID, profileRecord(t, want))

	got, err := TryDeserializeBorsh[Profile](v)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.False(t, v.IsBorrowed())
}

func TestTryDeserializeBorshFailures(t *testing.T) {
	good := profileRecord(t, Profile{Tier: 1, Score: 5})

	wrongDisc := bytes.Clone(good)
	wrongDisc[0] ^= 0xFF

	badTier := bytes.Clone(good)
	badTier[8] = 9

	tests := []struct {
		name    string
		owner   types.Pubkey
		data    []byte
		wantErr *aerrors.ProgramError
	}{
		{"owner before length", solana.SystemProgramID, []byte{1, 2}, aerrors.ErrOwnerMismatch},
		{"length before discriminator", testProgramID, append(bytes.Clone(wrongDisc), 0), aerrors.ErrDataLengthMismatch},
		{"discriminator", testProgramID, wrongDisc, aerrors.ErrDiscriminatorMismatch},
		{"payload rejected by decoder", testProgramID, badTier, aerrors.ErrInvalidAccountData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newAccount(tt.owner, tt.data)

			_, err := TryDeserializeBorsh[Profile](v)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, v.IsBorrowed(), "failed checks must not leave a borrow behind")
		})
	}
}

func TestTryDeserializeBorshRespectsExclusiveBorrow(t *testing.T) {
	v := newAccount(testProgramID, profileRecord(t, Profile{Tier: 3}))

	guard, err := v.TryBorrowMut()
	require.NoError(t, err)

	_, err = TryDeserializeBorsh[Profile](v)
	assert.ErrorIs(t, err, aerrors.ErrBorrowConflict)

	guard.Release()
	got, err := TryDeserializeBorsh[Profile](v)
	require.NoError(t, err)
	assert.Equal(t, tier(3), got.Tier)
}
