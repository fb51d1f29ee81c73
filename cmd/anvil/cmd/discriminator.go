package cmd

import (
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"

	"github.com/lugondev/go-anvil/pkg/discriminator"
)

var discriminatorCmd = &cobra.Command{
	Use:   "discriminator [name...]",
	Short: "Compute type discriminators",
	Long: `Compute the 8-byte discriminator of each type or instruction name.

With --namespace the tag is derived from "namespace:name". With --idl each
name is treated as an instruction handler and hashed as "global:snake_case".`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace, _ := cmd.Flags().GetString("namespace")
		idl, _ := cmd.Flags().GetBool("idl")
		out := cmd.OutOrStdout()

		for _, name := range args {
			disc := discriminator.Compute(name)
			switch {
			case idl:
				disc = discriminator.ForInstruction(name)
				name = discriminator.NamespaceGlobal + ":" + discriminator.SnakeCase(name)
			case namespace != "":
				disc = discriminator.ComputeNamespaced(namespace, name)
				name = namespace + ":" + name
			}
			fmt.Fprintf(out, "%s\n", name)
			fmt.Fprintf(out, "  Hex:    %s\n", disc)
			fmt.Fprintf(out, "  Bytes:  %v\n", disc[:])
			fmt.Fprintf(out, "  Base58: %s\n", base58.Encode(disc[:]))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(discriminatorCmd)
	discriminatorCmd.Flags().String("namespace", "", "namespace prefix, e.g. global or event")
	discriminatorCmd.Flags().Bool("idl", false, "hash names as IDL instruction handlers")
}
