package cmd

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"

	"github.com/lugondev/go-anvil/internal/fixture"
	"github.com/lugondev/go-anvil/internal/host"
	"github.com/lugondev/go-anvil/pkg/discriminator"
	"github.com/lugondev/go-anvil/pkg/entrypoint"
	"github.com/lugondev/go-anvil/pkg/types"
)

var buildInputCmd = &cobra.Command{
	Use:   "build-input [fixture]",
	Short: "Serialize a fixture into a program input buffer",
	Long: `Serialize the accounts, instruction data and program id of a YAML fixture
into the input buffer layout a program receives.

Output paths ending in .zst are zstd-compressed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		f, err := fixture.Load(args[0])
		if err != nil {
			return err
		}
		in, err := host.SerializeInput(f.ProgramID, f.Accounts, f.Data)
		if err != nil {
			return err
		}
		if err := fixture.WriteBuffer(output, in.Buffer); err != nil {
			return err
		}

		logger.Info("input written",
			"path", output,
			"accounts", len(f.Accounts),
			"bytes", len(in.Buffer),
		)
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [input]",
	Short: "Describe a serialized program input",
	Long:  `Walk an input buffer written by build-input and print every account record, the instruction data and the program id.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		buf, err := fixture.ReadBuffer(args[0])
		if err != nil {
			return err
		}
		return inspect(cmd.OutOrStdout(), buf)
	},
}

func inspect(out io.Writer, buf []byte) error {
	if err := entrypoint.Validate(buf); err != nil {
		return err
	}
	ctx := entrypoint.NewInstructionContext(buf)
	fmt.Fprintf(out, "Accounts: %d\n", ctx.Remaining())

	for i := 0; ctx.Remaining() > 0; i++ {
		acc, err := ctx.NextAccount()
		if err != nil {
			return err
		}
		if idx, dup := acc.DuplicateOf(); dup {
			fmt.Fprintf(out, "  [%d] duplicate of [%d]\n", i, idx)
			continue
		}
		v := acc.AssumeAccount()
		fmt.Fprintf(out, "  [%d] %s\n", i, v.Address())
		fmt.Fprintf(out, "      Owner:      %s\n", v.Owner())
		fmt.Fprintf(out, "      Lamports:   %d (%.9f SOL)\n", v.Lamports(), types.LamportsToSOL(v.Lamports()))
		fmt.Fprintf(out, "      Data:       %d bytes\n", v.DataLen())
		fmt.Fprintf(out, "      Flags:      signer=%t writable=%t executable=%t\n", v.IsSigner(), v.IsWritable(), v.Executable())
		if disc, err := discriminator.Read(v); err == nil {
			fmt.Fprintf(out, "      Tag:        %s\n", disc)
		}
	}

	data, err := ctx.InstructionData()
	if err != nil {
		return err
	}
	programID, err := ctx.ProgramID()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Instruction: %d bytes\n", len(data))
	if len(data) > 0 {
		fmt.Fprintf(out, "  Hex:    %s\n", hex.EncodeToString(data))
		fmt.Fprintf(out, "  Base58: %s\n", base58.Encode(data))
	}
	fmt.Fprintf(out, "Program: %s\n", programID)
	return nil
}

func init() {
	rootCmd.AddCommand(buildInputCmd)
	rootCmd.AddCommand(inspectCmd)
	buildInputCmd.Flags().StringP("output", "o", "input.bin", "output path")
}
