package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lugondev/go-anvil/internal/common"
	"github.com/lugondev/go-anvil/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "anvil",
	Short: "Anvil CLI - build, inspect and simulate program inputs",
	Long: `Anvil is a toolkit for programs written against the account layer.

It provides commands for:
- Computing discriminators
- Building serialized program inputs from fixtures
- Inspecting input buffers
- Simulating invocations against a local host`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.anvil.yaml or $HOME/.anvil.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")
}

func initConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}

	logger, err = common.NewLogger(os.Stderr, cfg.Log)
	if err != nil {
		return fmt.Errorf("invalid log config: %w", err)
	}
	slog.SetDefault(logger)
	return nil
}
