package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-host/engine"
	"github.com/wippyai/wasm-host/limits"
	"github.com/wippyai/wasm-host/wasi/preview2/cli"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wasmhost",
		Short: "Capability-sandboxed WebAssembly host with snapshot and restore",
		Long: `wasmhost - Run WebAssembly modules with explicitly granted capabilities.

A guest sees no environment, arguments, files or network unless granted
with flags. The state of a run can be written to a snapshot and restored
into a fresh instantiation of the same modules, forking the computation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			log, err := newLogger(level)
			if err != nil {
				return err
			}
			engine.SetLogger(log)
			limits.SetLogger(log)
			return nil
		},
	}
	root.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")

	root.AddCommand(newRunCmd(), newRestoreCmd(), newInspectCmd())
	return root
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exit *cli.ExitError
		if errors.As(err, &exit) {
			os.Exit(int(exit.Code))
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
