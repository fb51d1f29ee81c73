package host

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-anvil/internal/config"
	"github.com/lugondev/go-anvil/internal/metrics"
	"github.com/lugondev/go-anvil/pkg/discriminator"
	aerrors "github.com/lugondev/go-anvil/pkg/errors"
	"github.com/lugondev/go-anvil/pkg/log"
	"github.com/lugondev/go-anvil/pkg/rent"
	"github.com/lugondev/go-anvil/pkg/types"
	"github.com/lugondev/go-anvil/pkg/view"
	"github.com/lugondev/go-anvil/pkg/zc"
)

type record struct {
	Value uint64
	Owner types.Pubkey
}

func (record) OwnerProgram() types.Pubkey { return testProgramID }

func newTestRuntime() *Runtime {
	return NewRuntime(config.DefaultConfig().Runtime)
}

func transferAccounts() ([]InstructionAccount, *types.Account, *types.Account) {
	from := &types.Account{Lamports: 100, Data: []byte{1, 2, 3}, Owner: testProgramID}
	to := &types.Account{Lamports: 0, Owner: testProgramID}
	return []InstructionAccount{
		{Key: newKey(), IsSigner: true, IsWritable: true, Account: from},
		{Key: newKey(), IsWritable: true, Account: to},
	}, from, to
}

func transfer(amount uint64) ProgramFunc {
	return func(inv *Invocation, programID *types.Pubkey, accounts []view.AccountView, data []byte) error {
		accounts[0].SetLamports(accounts[0].Lamports() - amount)
		accounts[1].SetLamports(accounts[1].Lamports() + amount)
		inv.Log("transferred")
		return nil
	}
}

func TestInvokeCommitsOnSuccess(t *testing.T) {
	accounts, from, to := transferAccounts()

	res, err := newTestRuntime().Invoke(context.Background(), testProgramID, accounts, nil, transfer(40))
	require.NoError(t, err)
	require.True(t, res.Success(), "err: %v", res.Err)

	assert.Equal(t, uint64(60), from.Lamports)
	assert.Equal(t, uint64(40), to.Lamports)
	assert.ElementsMatch(t, []types.Pubkey{accounts[0].Key, accounts[1].Key}, res.Modified)
	assert.Equal(t, CUSyscallBase, res.ComputeUnits)
	assert.NotEqual(t, uuid.Nil, res.ID)

	id := testProgramID.String()
	require.Len(t, res.Logs, 4)
	assert.Equal(t, log.FormatInvoke(id, 1), res.Logs[0])
	assert.Equal(t, log.FormatLog("transferred"), res.Logs[1])
	assert.Equal(t, log.FormatConsumed(id, CUSyscallBase, 200_000), res.Logs[2])
	assert.Equal(t, log.FormatSuccess(id), res.Logs[3])
}

func TestInvokeDiscardsOnProgramError(t *testing.T) {
	accounts, from, to := transferAccounts()

	res, err := newTestRuntime().Invoke(context.Background(), testProgramID, accounts, nil,
		func(inv *Invocation, programID *types.Pubkey, accounts []view.AccountView, data []byte) error {
			accounts[0].BorrowMutUnchecked()[0] = 0xFF
			accounts[0].SetLamports(0)
			accounts[1].SetLamports(100)
			return aerrors.ErrOwnerMismatch
		})
	require.NoError(t, err)

	assert.False(t, res.Success())
	assert.Equal(t, uint64(aerrors.ErrCodeOwnerMismatch), res.ReturnCode)
	assert.Empty(t, res.Modified)
	assert.Equal(t, []byte{1, 2, 3}, from.Data)
	assert.Equal(t, uint64(100), from.Lamports)
	assert.Equal(t, uint64(0), to.Lamports)
	assert.Equal(t, log.FormatFailed(testProgramID.String(), 100), res.Logs[len(res.Logs)-1])
}

func TestInvokeRejectsReadonlyWrite(t *testing.T) {
	state := &types.Account{Data: []byte{1}, Owner: testProgramID}
	accounts := []InstructionAccount{{Key: newKey(), Account: state}}

	res, err := newTestRuntime().Invoke(context.Background(), testProgramID, accounts, nil,
		func(inv *Invocation, programID *types.Pubkey, accounts []view.AccountView, data []byte) error {
			accounts[0].BorrowMutUnchecked()[0] = 2
			return nil
		})
	require.NoError(t, err)

	assert.False(t, res.Success())
	assert.ErrorIs(t, res.Err, ErrReadonlyModified)
	assert.Equal(t, uint64(aerrors.ErrCodeProgramFailure), res.ReturnCode)
	assert.Equal(t, []byte{1}, state.Data)
}

func TestInvokeRejectsUnbalancedLamports(t *testing.T) {
	accounts, from, _ := transferAccounts()

	res, err := newTestRuntime().Invoke(context.Background(), testProgramID, accounts, nil,
		func(inv *Invocation, programID *types.Pubkey, accounts []view.AccountView, data []byte) error {
			accounts[0].SetLamports(1_000)
			return nil
		})
	require.NoError(t, err)

	assert.ErrorIs(t, res.Err, ErrUnbalancedInstruction)
	assert.Equal(t, uint64(100), from.Lamports)
}

func TestInvokeAbortsWhenComputeExhausted(t *testing.T) {
	cfg := config.DefaultConfig().Runtime
	cfg.ComputeBudget = 150
	accounts, from, _ := transferAccounts()

	res, err := NewRuntime(cfg).Invoke(context.Background(), testProgramID, accounts, nil,
		func(inv *Invocation, programID *types.Pubkey, accounts []view.AccountView, data []byte) error {
			accounts[0].SetLamports(0)
			inv.Log("first")
			inv.Log("second")
			return nil
		})
	require.NoError(t, err)

	assert.False(t, res.Success())
	assert.ErrorIs(t, res.Err, ErrComputeExceeded)
	assert.Equal(t, uint64(150), res.ComputeUnits)
	assert.Equal(t, uint64(100), from.Lamports)
	assert.Equal(t, log.FormatAbort(testProgramID.String(), ErrComputeExceeded.Error()), res.Logs[len(res.Logs)-1])
}

func TestInvokeRecoversPanics(t *testing.T) {
	accounts, _, _ := transferAccounts()

	res, err := newTestRuntime().Invoke(context.Background(), testProgramID, accounts, nil,
		func(inv *Invocation, programID *types.Pubkey, accounts []view.AccountView, data []byte) error {
			panic("boom")
		})
	require.NoError(t, err)

	assert.Equal(t, uint64(aerrors.ErrCodeProgramFailure), res.ReturnCode)
	assert.Contains(t, res.Err.Error(), "boom")
	assert.True(t, strings.HasPrefix(res.Logs[len(res.Logs)-1], "Program "+testProgramID.String()+" failed: "))
}

func TestInvokeHeapExhaustionIsProgramError(t *testing.T) {
	cfg := config.DefaultConfig().Runtime
	cfg.HeapSize = 1024
	accounts, _, _ := transferAccounts()

	res, err := NewRuntime(cfg).Invoke(context.Background(), testProgramID, accounts, nil,
		func(inv *Invocation, programID *types.Pubkey, accounts []view.AccountView, data []byte) error {
			require.NotNil(t, inv.Heap().AllocBytes(64, 8))
			inv.Heap().MustAlloc(4096, 8)
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, uint64(aerrors.ErrCodeAllocationExhausted), res.ReturnCode)
	assert.Equal(t, uint64(72), res.HeapUsed)
	assert.Equal(t, log.FormatFailed(testProgramID.String(), res.ReturnCode), res.Logs[len(res.Logs)-1])
}

func TestInvokeLogData(t *testing.T) {
	accounts, _, _ := transferAccounts()

	res, err := newTestRuntime().Invoke(context.Background(), testProgramID, accounts, []byte{1},
		func(inv *Invocation, programID *types.Pubkey, accounts []view.AccountView, data []byte) error {
			inv.LogData(data, []byte("evt"))
			return nil
		})
	require.NoError(t, err)
	require.True(t, res.Success())

	assert.Contains(t, res.Logs, log.FormatData([]byte{1}, []byte("evt")))
	assert.Equal(t, CUSyscallBase+4, res.ComputeUnits)
	assert.Equal(t, [][]byte{{1}, []byte("evt")}, log.ProgramData(res.Logs))
}

func TestInvokeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRuntime().Invoke(ctx, testProgramID, nil, nil, transfer(0))
	assert.True(t, errors.Is(err, context.Canceled))
}

func createAccounts(targetSigner bool, target types.Pubkey) ([]InstructionAccount, *types.Account, *types.Account) {
	payer := &types.Account{Lamports: 10 * solana.LAMPORTS_PER_SOL, Owner: solana.SystemProgramID}
	state := &types.Account{Owner: solana.SystemProgramID}
	return []InstructionAccount{
		{Key: newKey(), IsSigner: true, IsWritable: true, Account: payer},
		{Key: target, IsSigner: targetSigner, IsWritable: true, Account: state},
		{Key: solana.SystemProgramID, Account: &types.Account{Executable: true, Owner: solana.BPFLoaderProgramID}},
	}, payer, state
}

func initialize(signers ...zc.Signer) ProgramFunc {
	return func(inv *Invocation, programID *types.Pubkey, accounts []view.AccountView, data []byte) error {
		ref, err := zc.TryInitialize[record](accounts[1], zc.InitAccounts{
			Payer:         accounts[0],
			SystemProgram: accounts[2],
		}, inv, signers...)
		if err != nil {
			return err
		}
		defer ref.Release()
		ref.Get().Value = 42
		return nil
	}
}

func TestCreateAccount(t *testing.T) {
	accounts, payer, target := createAccounts(true, newKey())

	res, err := newTestRuntime().Invoke(context.Background(), testProgramID, accounts, nil, initialize())
	require.NoError(t, err)
	require.True(t, res.Success(), "err: %v, logs: %v", res.Err, res.Logs)

	space := uint64(discriminator.Len + zc.Size[record]())
	minimum := rent.MinimumBalance(space)
	assert.Equal(t, testProgramID, target.Owner)
	assert.Equal(t, minimum, target.Lamports)
	assert.Equal(t, 10*solana.LAMPORTS_PER_SOL-minimum, payer.Lamports)
	require.Len(t, target.Data, int(space))
	disc := discriminator.Of[record]()
	assert.Equal(t, disc[:], target.Data[:discriminator.Len])
	assert.Equal(t, byte(42), target.Data[discriminator.Len])

	systemID := solana.SystemProgramID.String()
	assert.Contains(t, res.Logs, log.FormatInvoke(systemID, 2))
	assert.Contains(t, res.Logs, log.FormatSuccess(systemID))
	assert.Equal(t, CUInvokeBase+CUSystemProgramDefault, res.ComputeUnits)
}

func TestCreateAccountWithSeeds(t *testing.T) {
	seeds := [][]byte{[]byte("record")}
	pda, bump, err := solana.FindProgramAddress(seeds, testProgramID)
	require.NoError(t, err)
	signer := zc.Signer{Seeds: append(seeds, []byte{bump})}

	accounts, _, target := createAccounts(false, pda)

	res, err := newTestRuntime().Invoke(context.Background(), testProgramID, accounts, nil, initialize(signer))
	require.NoError(t, err)
	require.True(t, res.Success(), "err: %v", res.Err)
	assert.Equal(t, testProgramID, target.Owner)
}

func TestCreateAccountFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(accounts []InstructionAccount)
		signers []zc.Signer
		want    *aerrors.ProgramError
	}{
		{
			name:   "target not signer",
			mutate: func(accounts []InstructionAccount) { accounts[1].IsSigner = false },
			want:   aerrors.ErrMissingRequiredSignature,
		},
		{
			name:    "wrong seeds",
			mutate:  func(accounts []InstructionAccount) { accounts[1].IsSigner = false },
			signers: []zc.Signer{{Seeds: [][]byte{[]byte("other")}}},
			want:    aerrors.ErrMissingRequiredSignature,
		},
		{
			name:   "payer not signer",
			mutate: func(accounts []InstructionAccount) { accounts[0].IsSigner = false },
			want:   aerrors.ErrMissingRequiredSignature,
		},
		{
			name:   "target funded",
			mutate: func(accounts []InstructionAccount) { accounts[1].Account.Lamports = 1 },
			want:   aerrors.ErrAccountAlreadyInUse,
		},
		{
			name:   "target owned by program",
			mutate: func(accounts []InstructionAccount) { accounts[1].Account.Owner = testProgramID },
			want:   aerrors.ErrAccountAlreadyInUse,
		},
		{
			name:   "payer underfunded",
			mutate: func(accounts []InstructionAccount) { accounts[0].Account.Lamports = 1000 },
			want:   aerrors.ErrInsufficientFunds,
		},
		{
			name:   "wrong system program",
			mutate: func(accounts []InstructionAccount) { accounts[2].Key = solana.TokenProgramID },
			want:   aerrors.ErrIncorrectProgramID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts, payer, target := createAccounts(true, newKey())
			tt.mutate(accounts)
			before := *payer

			res, err := newTestRuntime().Invoke(context.Background(), testProgramID, accounts, nil, initialize(tt.signers...))
			require.NoError(t, err)

			assert.ErrorIs(t, res.Err, tt.want)
			assert.Equal(t, uint64(tt.want.Code), res.ReturnCode)
			assert.Equal(t, before, *payer)
			assert.Empty(t, target.Data)
		})
	}
}

func TestCreateAccountRejectsBorrowedTarget(t *testing.T) {
	accounts, _, _ := createAccounts(true, newKey())

	res, err := newTestRuntime().Invoke(context.Background(), testProgramID, accounts, nil,
		func(inv *Invocation, programID *types.Pubkey, accounts []view.AccountView, data []byte) error {
			guard, err := accounts[1].TryBorrow()
			if err != nil {
				return err
			}
			defer guard.Release()
			return inv.CreateAccount(zc.CreateAccountRequest{
				Payer:         accounts[0],
				Target:        accounts[1],
				SystemProgram: accounts[2],
				Lamports:      rent.MinimumBalance(0),
				Owner:         testProgramID,
			})
		})
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, aerrors.ErrBorrowConflict)
}

func TestCreateAccountRequiresRentExemption(t *testing.T) {
	accounts, _, _ := createAccounts(true, newKey())

	res, err := newTestRuntime().Invoke(context.Background(), testProgramID, accounts, nil,
		func(inv *Invocation, programID *types.Pubkey, accounts []view.AccountView, data []byte) error {
			return inv.CreateAccount(zc.CreateAccountRequest{
				Payer:         accounts[0],
				Target:        accounts[1],
				SystemProgram: accounts[2],
				Lamports:      1,
				Space:         16,
				Owner:         testProgramID,
			})
		})
	require.NoError(t, err)
	assert.ErrorIs(t, res.Err, aerrors.ErrInsufficientFunds)
}

func TestInvokeRecordsMetrics(t *testing.T) {
	m := metrics.NewLogMetrics(slog.New(slog.NewTextHandler(io.Discard, nil)))
	rt := newTestRuntime()
	rt.SetMetrics(m)
	ctx := context.Background()

	accounts, _, _ := transferAccounts()
	_, err := rt.Invoke(ctx, testProgramID, accounts, nil, transfer(10))
	require.NoError(t, err)
	_, err = rt.Invoke(ctx, testProgramID, accounts, nil,
		func(*Invocation, *types.Pubkey, []view.AccountView, []byte) error {
			return aerrors.ErrOwnerMismatch
		})
	require.NoError(t, err)
	_, err = rt.Invoke(ctx, testProgramID, accounts, nil,
		func(*Invocation, *types.Pubkey, []view.AccountView, []byte) error {
			panic("boom")
		})
	require.NoError(t, err)

	assert.Equal(t, uint64(3), m.Counter(metrics.MetricInvocations))
	assert.Equal(t, uint64(1), m.Counter(metrics.MetricInvocationsFailed))
	assert.Equal(t, uint64(1), m.Counter(metrics.MetricInvocationsAborted))
	assert.Equal(t, uint64(2), m.Counter(metrics.MetricAccountsModified))

	cu := m.Histogram(metrics.MetricComputeUnits)
	assert.Equal(t, uint64(3), cu.Count)
	assert.Equal(t, float64(CUSyscallBase), cu.Max)
	assert.Equal(t, float64(0), cu.Min)

	rt.SetMetrics(nil)
	_, err = rt.Invoke(ctx, testProgramID, accounts, nil, transfer(1))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), m.Counter(metrics.MetricInvocations))
}
