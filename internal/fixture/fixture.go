// Package fixture loads invocation fixtures: the program, accounts and
// instruction data of one call, described in YAML.
package fixture

import (
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"gopkg.in/yaml.v3"

	"github.com/lugondev/go-anvil/internal/host"
	"github.com/lugondev/go-anvil/pkg/discriminator"
	"github.com/lugondev/go-anvil/pkg/types"
)

// File is the on-disk form of a fixture. Keys and data are base58.
type File struct {
	Program     string        `yaml:"program,omitempty"`
	ProgramID   string        `yaml:"program_id"`
	Instruction string        `yaml:"instruction,omitempty"`
	Data        string        `yaml:"data,omitempty"`
	Accounts    []AccountFile `yaml:"accounts"`
}

// AccountFile is one account slot of a fixture.
type AccountFile struct {
	Pubkey     string `yaml:"pubkey"`
	Signer     bool   `yaml:"signer,omitempty"`
	Writable   bool   `yaml:"writable,omitempty"`
	Lamports   uint64 `yaml:"lamports"`
	Owner      string `yaml:"owner,omitempty"`
	Data       string `yaml:"data,omitempty"`
	Executable bool   `yaml:"executable,omitempty"`
	RentEpoch  uint64 `yaml:"rent_epoch,omitempty"`
}

// Fixture is a resolved invocation.
type Fixture struct {
	// Program names a built-in program to run, if any.
	Program   string
	ProgramID types.Pubkey
	Data      []byte
	Accounts  []host.InstructionAccount
}

// Load reads and resolves a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return Parse(data)
}

// Parse resolves fixture YAML. Slots repeating a pubkey share the state of
// its first occurrence; later entries only contribute flags.
func Parse(data []byte) (*Fixture, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return file.Resolve()
}

// Resolve decodes keys and data.
func (f *File) Resolve() (*Fixture, error) {
	programID, err := solana.PublicKeyFromBase58(f.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("program_id: %w", err)
	}

	ix, err := decodeBase58(f.Data)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	if f.Instruction != "" {
		disc := discriminator.Compute(f.Instruction)
		ix = append(disc[:], ix...)
	}

	out := &Fixture{
		Program:   f.Program,
		ProgramID: programID,
		Data:      ix,
		Accounts:  make([]host.InstructionAccount, len(f.Accounts)),
	}
	states := make(map[types.Pubkey]*types.Account, len(f.Accounts))
	for i, a := range f.Accounts {
		key, err := solana.PublicKeyFromBase58(a.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("accounts[%d].pubkey: %w", i, err)
		}
		state, ok := states[key]
		if !ok {
			state, err = a.state()
			if err != nil {
				return nil, fmt.Errorf("accounts[%d]: %w", i, err)
			}
			states[key] = state
		}
		out.Accounts[i] = host.InstructionAccount{
			Key:        key,
			IsSigner:   a.Signer,
			IsWritable: a.Writable,
			Account:    state,
		}
	}
	return out, nil
}

func (a AccountFile) state() (*types.Account, error) {
	owner := solana.SystemProgramID
	if a.Owner != "" {
		var err error
		if owner, err = solana.PublicKeyFromBase58(a.Owner); err != nil {
			return nil, fmt.Errorf("owner: %w", err)
		}
	}
	data, err := decodeBase58(a.Data)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	return &types.Account{
		Lamports:   a.Lamports,
		Data:       data,
		Owner:      owner,
		Executable: a.Executable,
		RentEpoch:  a.RentEpoch,
	}, nil
}

func decodeBase58(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return base58.Decode(s)
}

// File returns the on-disk form of the fixture with current account state.
// The instruction is written as raw data.
func (f *Fixture) File() *File {
	out := &File{
		Program:   f.Program,
		ProgramID: f.ProgramID.String(),
		Data:      base58.Encode(f.Data),
		Accounts:  make([]AccountFile, len(f.Accounts)),
	}
	for i, a := range f.Accounts {
		out.Accounts[i] = AccountFile{
			Pubkey:     a.Key.String(),
			Signer:     a.IsSigner,
			Writable:   a.IsWritable,
			Lamports:   a.Account.Lamports,
			Owner:      a.Account.Owner.String(),
			Data:       base58.Encode(a.Account.Data),
			Executable: a.Account.Executable,
			RentEpoch:  a.Account.RentEpoch,
		}
	}
	return out
}

// Marshal renders the fixture as YAML.
func (f *Fixture) Marshal() ([]byte, error) {
	return yaml.Marshal(f.File())
}

// Save writes the fixture to path.
func (f *Fixture) Save(path string) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
