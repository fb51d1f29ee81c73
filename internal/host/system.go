package host

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	aerrors "github.com/lugondev/go-anvil/pkg/errors"
	"github.com/lugondev/go-anvil/pkg/log"
	"github.com/lugondev/go-anvil/pkg/types"
	"github.com/lugondev/go-anvil/pkg/zc"
)

// CreateAccount runs the system program's CreateAccount in process against
// the accounts in the input buffer. It is logged and charged like a
// cross-program invocation.
func (inv *Invocation) CreateAccount(req zc.CreateAccountRequest) error {
	inv.ConsumeUnits(CUInvokeBase)
	systemID := solana.SystemProgramID.String()
	inv.appendLog(log.FormatInvoke(systemID, inv.depth+1))

	err := inv.createAccount(req)
	if err != nil {
		inv.appendLog(log.FormatFailed(systemID, aerrors.ReturnCode(err)))
		return err
	}
	inv.appendLog(log.FormatSuccess(systemID))
	return nil
}

func (inv *Invocation) createAccount(req zc.CreateAccountRequest) error {
	if req.SystemProgram.IsZero() || !req.SystemProgram.Address().Equals(solana.SystemProgramID) {
		return aerrors.ErrIncorrectProgramID
	}
	inv.ConsumeUnits(CUSystemProgramDefault)

	payer, target := req.Payer, req.Target
	metas := []*solana.AccountMeta{
		types.AccountMeta{Pubkey: *payer.Address(), IsSigner: true, IsWritable: true}.ToSolanaAccountMeta(),
		types.AccountMeta{Pubkey: *target.Address(), IsSigner: true, IsWritable: true}.ToSolanaAccountMeta(),
	}
	ix, err := system.DecodeInstruction(metas, req.InstructionData())
	if err != nil {
		return aerrors.ErrInvalidInstructionData.WithCause(err)
	}
	create, ok := ix.Impl.(*system.CreateAccount)
	if !ok || create.Lamports == nil || create.Space == nil || create.Owner == nil {
		return aerrors.ErrInvalidInstructionData
	}
	lamports, space, owner := *create.Lamports, *create.Space, *create.Owner

	if !payer.IsSigner() {
		return aerrors.ErrMissingRequiredSignature.WithDetails(map[string]any{"account": payer.Address().String()})
	}
	if !target.IsSigner() && !inv.signedBySeeds(*target.Address(), req.Signers) {
		return aerrors.ErrMissingRequiredSignature.WithDetails(map[string]any{"account": target.Address().String()})
	}
	if payer.IsBorrowed() || target.IsBorrowed() {
		return aerrors.ErrBorrowConflict
	}
	if target.Lamports() > 0 || !target.IsDataEmpty() || !target.IsOwnedBy(solana.SystemProgramID) {
		return aerrors.ErrAccountAlreadyInUse.WithDetails(map[string]any{"account": target.Address().String()})
	}
	if payer.Lamports() < lamports {
		return aerrors.ErrInsufficientFunds.WithDetails(map[string]any{
			"required":  lamports,
			"available": payer.Lamports(),
		})
	}
	if !inv.rent.IsExempt(lamports, space) {
		return aerrors.ErrInsufficientFunds.WithDetails(map[string]any{
			"required": inv.rent.MinimumBalance(space),
			"provided": lamports,
		})
	}

	if err := target.Resize(int(space)); err != nil {
		return err
	}
	payer.SetLamports(payer.Lamports() - lamports)
	target.SetLamports(target.Lamports() + lamports)
	target.AssignUnchecked(owner)
	return nil
}

// signedBySeeds reports whether any signer's seeds derive key under the
// running program.
func (inv *Invocation) signedBySeeds(key types.Pubkey, signers []zc.Signer) bool {
	for _, s := range signers {
		inv.ConsumeUnits(CUCreateProgramAddress)
		addr, err := solana.CreateProgramAddress(s.Seeds, inv.programID)
		if err == nil && addr.Equals(key) {
			return true
		}
	}
	return false
}
