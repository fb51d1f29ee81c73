package cmd

import (
	"bytes"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-anvil/examples/counter"
	"github.com/lugondev/go-anvil/internal/host"
	"github.com/lugondev/go-anvil/pkg/entrypoint"
	"github.com/lugondev/go-anvil/pkg/types"
)

func TestInspect(t *testing.T) {
	payer := host.InstructionAccount{
		Key:        solana.NewWallet().PublicKey(),
		IsSigner:   true,
		IsWritable: true,
		Account:    &types.Account{Lamports: solana.LAMPORTS_PER_SOL, Owner: solana.SystemProgramID},
	}
	in, err := host.SerializeInput(counter.ProgramID,
		[]host.InstructionAccount{payer, payer}, counter.IncrementData(3))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, inspect(&out, in.Buffer))

	text := out.String()
	assert.Contains(t, text, "Accounts: 2")
	assert.Contains(t, text, payer.Key.String())
	assert.Contains(t, text, "[1] duplicate of [0]")
	assert.Contains(t, text, "Lamports:   1000000000 (1.000000000 SOL)")
	assert.Contains(t, text, "Instruction: 16 bytes")
	assert.Contains(t, text, "Program: "+counter.ProgramID.String())
}

func TestInspectRejectsDamagedBuffers(t *testing.T) {
	payer := host.InstructionAccount{
		Key:        solana.NewWallet().PublicKey(),
		IsSigner:   true,
		IsWritable: true,
		Account:    &types.Account{Lamports: 1, Owner: solana.SystemProgramID},
	}
	in, err := host.SerializeInput(counter.ProgramID, []host.InstructionAccount{payer}, counter.InitializeData())
	require.NoError(t, err)

	for _, n := range []int{0, 4, 100, len(in.Buffer) - 1} {
		var out bytes.Buffer
		err := inspect(&out, in.Buffer[:n])
		assert.ErrorIs(t, err, entrypoint.ErrMalformedInput, "truncated to %d bytes", n)
	}
}

func TestLookupProgram(t *testing.T) {
	fn, err := lookupProgram("counter")
	require.NoError(t, err)
	assert.NotNil(t, fn)

	_, err = lookupProgram("missing")
	assert.ErrorContains(t, err, `unknown program "missing"`)
}
