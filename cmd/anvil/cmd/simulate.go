package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lugondev/go-anvil/internal/fixture"
	"github.com/lugondev/go-anvil/internal/host"
	"github.com/lugondev/go-anvil/internal/metrics"
	"github.com/lugondev/go-anvil/pkg/log"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate [fixture]",
	Short: "Run a built-in program against a fixture",
	Long: `Invoke a built-in program on the accounts of a YAML fixture using the
local host, then print the logs and the outcome.

With --out the post-invocation account state is written as a new fixture.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		programName, _ := cmd.Flags().GetString("program")
		outPath, _ := cmd.Flags().GetString("out")
		withMetrics, _ := cmd.Flags().GetBool("metrics")

		f, err := fixture.Load(args[0])
		if err != nil {
			return err
		}
		if programName == "" {
			programName = f.Program
		}
		fn, err := lookupProgram(programName)
		if err != nil {
			return err
		}

		rt := host.NewRuntime(cfg.Runtime)
		rt.SetLogger(logger)
		if m := invocationMetrics(logger, withMetrics); m.Len() > 0 {
			rt.SetMetrics(m)
			defer func() { _ = m.Flush(cmd.Context()) }()
		}

		res, err := rt.Invoke(cmd.Context(), f.ProgramID, f.Accounts, f.Data, fn)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Invocation %s\n", res.ID)
		for _, line := range res.Logs {
			fmt.Fprintf(out, "  %s\n", line)
		}
		fmt.Fprintf(out, "Result:        %d\n", res.ReturnCode)
		fmt.Fprintf(out, "Compute units: %d\n", res.ComputeUnits)
		fmt.Fprintf(out, "Heap used:     %d bytes\n", res.HeapUsed)
		fmt.Fprintf(out, "Events:        %d\n", len(log.Summarize(res.Logs).Events))
		for _, key := range res.Modified {
			fmt.Fprintf(out, "Modified:      %s\n", key)
		}

		if outPath != "" {
			if err := f.Save(outPath); err != nil {
				return err
			}
			logger.Info("post state written", "path", outPath)
		}
		if !res.Success() {
			return fmt.Errorf("invocation failed: %w", res.Err)
		}
		return nil
	},
}

// invocationMetrics collects the backends selected by flags. An empty
// collection means metrics are off.
func invocationMetrics(logger *slog.Logger, withLog bool) *metrics.Collection {
	c := metrics.NewCollection()
	if withLog {
		c.Add(metrics.NewLogMetrics(logger))
	}
	return c
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().String("program", "", "built-in program to run (defaults to the fixture's program)")
	simulateCmd.Flags().String("out", "", "write post-invocation state as a fixture")
	simulateCmd.Flags().Bool("metrics", false, "log invocation metrics when done")
}
