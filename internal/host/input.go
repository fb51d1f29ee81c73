package host

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"

	"github.com/lugondev/go-anvil/pkg/entrypoint"
	"github.com/lugondev/go-anvil/pkg/types"
	"github.com/lugondev/go-anvil/pkg/view"
)

const rentEpochOffsetAlign = 8

// InstructionAccount is one account slot of an instruction together with the
// host-side state it refers to. Slots sharing a Key share an Account.
type InstructionAccount struct {
	Key        types.Pubkey
	IsSigner   bool
	IsWritable bool
	Account    *types.Account
}

// Input is a serialized program input plus the bookkeeping needed to read
// results back out of it.
type Input struct {
	// Buffer is 8-byte aligned and laid out as the entrypoint expects.
	Buffer []byte

	// offsets holds each slot's record offset, or -1 for duplicates.
	offsets []int
	// origin maps each slot to the slot holding its primary record.
	origin []int
	// writable is the merged writable flag per primary slot.
	writable []bool
}

// SerializeInput lays out programID, accounts and data in the program input
// format. Repeated keys become duplicate records pointing at the first
// occurrence, whose signer and writable flags are the union of all
// occurrences.
func SerializeInput(programID types.Pubkey, accounts []InstructionAccount, data []byte) (*Input, error) {
	if len(accounts) > entrypoint.MaxTxAccounts {
		return nil, fmt.Errorf("too many accounts: %d exceeds %d", len(accounts), entrypoint.MaxTxAccounts)
	}

	in := &Input{
		offsets:  make([]int, len(accounts)),
		origin:   make([]int, len(accounts)),
		writable: make([]bool, len(accounts)),
	}
	signer := make([]bool, len(accounts))
	first := make(map[types.Pubkey]int, len(accounts))
	for i, acc := range accounts {
		if acc.Account == nil {
			return nil, fmt.Errorf("account %d (%s) has no state", i, acc.Key)
		}
		j, seen := first[acc.Key]
		if !seen {
			first[acc.Key] = i
			j = i
		}
		in.origin[i] = j
		signer[j] = signer[j] || acc.IsSigner
		in.writable[j] = in.writable[j] || acc.IsWritable
	}

	var buf bytes.Buffer
	enc := bin.NewBinEncoder(&buf)
	if err := enc.WriteUint64(uint64(len(accounts)), bin.LE); err != nil {
		return nil, err
	}

	for i, acc := range accounts {
		var err error
		if j := in.origin[i]; j != i {
			in.offsets[i] = -1
			err = writeDuplicate(enc, byte(j))
		} else {
			in.offsets[i] = buf.Len()
			err = writePrimary(enc, &buf, acc, signer[i], in.writable[i])
		}
		if err != nil {
			return nil, fmt.Errorf("failed to serialize account %d: %w", i, err)
		}
	}

	if err := enc.WriteUint64(uint64(len(data)), bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(data, false); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(programID[:], false); err != nil {
		return nil, err
	}

	in.Buffer = entrypoint.AlignedBuffer(buf.Len())
	copy(in.Buffer, buf.Bytes())
	return in, nil
}

func writeDuplicate(enc *bin.Encoder, index byte) error {
	if err := enc.WriteByte(index); err != nil {
		return err
	}
	return enc.WriteBytes(make([]byte, 7), false)
}

func writePrimary(enc *bin.Encoder, buf *bytes.Buffer, acc InstructionAccount, signer, writable bool) error {
	state := acc.Account
	if err := enc.WriteByte(view.NonDupMarker); err != nil {
		return err
	}
	for _, flag := range []bool{signer, writable, state.Executable} {
		if err := enc.WriteBool(flag); err != nil {
			return err
		}
	}
	if err := enc.WriteInt32(0, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteBytes(acc.Key[:], false); err != nil {
		return err
	}
	if err := enc.WriteBytes(state.Owner[:], false); err != nil {
		return err
	}
	if err := enc.WriteUint64(state.Lamports, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteUint64(uint64(len(state.Data)), bin.LE); err != nil {
		return err
	}
	if err := enc.WriteBytes(state.Data, false); err != nil {
		return err
	}

	pad := view.MaxPermittedDataIncrease
	if rem := (buf.Len() + pad) % rentEpochOffsetAlign; rem != 0 {
		pad += rentEpochOffsetAlign - rem
	}
	if err := enc.WriteBytes(make([]byte, pad), false); err != nil {
		return err
	}
	return enc.WriteUint64(state.RentEpoch, bin.LE)
}

// DeserializeOutput reads every primary record back out of the buffer after
// the program ran. The result is indexed by slot; duplicate slots are nil.
// Host state is not touched.
func (in *Input) DeserializeOutput() ([]*types.Account, error) {
	out := make([]*types.Account, len(in.offsets))
	for i, off := range in.offsets {
		if off < 0 {
			continue
		}
		acc, err := in.readRecord(off)
		if err != nil {
			return nil, fmt.Errorf("failed to read account %d: %w", i, err)
		}
		out[i] = acc
	}
	return out, nil
}

func (in *Input) readRecord(off int) (*types.Account, error) {
	dec := bin.NewBinDecoder(in.Buffer[off:])
	if err := dec.SkipBytes(view.OffsetExecutable); err != nil {
		return nil, err
	}
	executable, err := dec.ReadBool()
	if err != nil {
		return nil, err
	}
	if err := dec.SkipBytes(view.OffsetOwner - view.OffsetExecutable - 1); err != nil {
		return nil, err
	}
	owner, err := dec.ReadNBytes(types.PubkeyLen)
	if err != nil {
		return nil, err
	}
	lamports, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return nil, err
	}
	dataLen, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return nil, err
	}
	data, err := dec.ReadNBytes(int(dataLen))
	if err != nil {
		return nil, err
	}

	// The rent epoch sits behind the headroom reserved for the original
	// data length, which the resize delta recovers.
	v := view.NewUnchecked(in.Buffer[off:])
	originalLen := int(dataLen) - v.ResizeDelta()
	epochOff := alignUp(off+view.HeaderLen+originalLen+view.MaxPermittedDataIncrease) - off
	if err := dec.SetPosition(uint(epochOff)); err != nil {
		return nil, err
	}
	rentEpoch, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return nil, err
	}

	return &types.Account{
		Lamports:   lamports,
		Data:       append([]byte(nil), data...),
		Owner:      types.Pubkey(owner),
		Executable: executable,
		RentEpoch:  rentEpoch,
	}, nil
}

// Views returns the account view of every slot, resolving duplicates to the
// primary record.
func (in *Input) Views() []view.AccountView {
	views := make([]view.AccountView, len(in.offsets))
	for i := range in.offsets {
		if j := in.origin[i]; j != i {
			views[i] = views[j]
			continue
		}
		views[i] = in.recordView(in.offsets[i])
	}
	return views
}

func (in *Input) recordView(off int) view.AccountView {
	v := view.NewUnchecked(in.Buffer[off:])
	originalLen := v.DataLen() - v.ResizeDelta()
	end := off + view.HeaderLen + originalLen + view.MaxPermittedDataIncrease
	return view.NewUnchecked(in.Buffer[off:end:end])
}

// Writable reports the merged writable flag of slot i.
func (in *Input) Writable(i int) bool {
	return in.writable[in.origin[i]]
}

// IsPrimary reports whether slot i holds the account's primary record.
func (in *Input) IsPrimary(i int) bool {
	return in.origin[i] == i
}

func alignUp(off int) int {
	return (off + rentEpochOffsetAlign - 1) &^ (rentEpochOffsetAlign - 1)
}
