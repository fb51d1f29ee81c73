// Package types provides the base Solana types shared by the program-side
// account layer and the simulated host.
// It wraps solana-go types so both sides agree on key representation.
package types

import (
	"github.com/gagliardetto/solana-go"
)

// Pubkey is a Solana public key (32 bytes).
type Pubkey = solana.PublicKey

// PubkeyLen is the encoded size of a Pubkey.
const PubkeyLen = solana.PublicKeyLength

// Account is the host-side state of a single account.
type Account struct {
	// Lamports is the number of lamports owned by this account.
	Lamports uint64 `json:"lamports" yaml:"lamports"`

	// Data is the data held in this account.
	Data []byte `json:"data" yaml:"data"`

	// Owner is the program that owns this account.
	Owner Pubkey `json:"owner" yaml:"owner"`

	// Executable indicates if the account contains a program.
	Executable bool `json:"executable" yaml:"executable"`

	// RentEpoch is the epoch at which this account will next owe rent.
	RentEpoch uint64 `json:"rent_epoch" yaml:"rent_epoch"`
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	c := *a
	c.Data = append([]byte(nil), a.Data...)
	return &c
}

// AccountMeta describes a single account involved in an instruction.
type AccountMeta struct {
	// Pubkey is the public key of the account.
	Pubkey Pubkey `json:"pubkey"`

	// IsSigner indicates if the account is a signer.
	IsSigner bool `json:"is_signer"`

	// IsWritable indicates if the account is writable.
	IsWritable bool `json:"is_writable"`
}

// ToSolanaAccountMeta converts to solana-go AccountMeta.
func (am AccountMeta) ToSolanaAccountMeta() *solana.AccountMeta {
	return &solana.AccountMeta{
		PublicKey:  am.Pubkey,
		IsSigner:   am.IsSigner,
		IsWritable: am.IsWritable,
	}
}

// LamportsToSOL converts lamports to SOL.
func LamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / float64(solana.LAMPORTS_PER_SOL)
}
