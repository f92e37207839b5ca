package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-host/engine"
	"github.com/wippyai/wasm-host/snapshot"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run module.wasm [module.wasm...]",
		Short: "Instantiate modules and call an export",
		Long: `Instantiate one or more core modules against a freshly built host
context and call --invoke (default _start) on the first.

  wasmhost run app.wasm --mount ./data:/data --env MODE=fast
  wasmhost run app.wasm --invoke step --snapshot-out step.whsn`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, args)
			if err != nil {
				return err
			}
			defer s.close(context.WithoutCancel(cmd.Context()))

			if err := s.invoke(cmd); err != nil {
				return err
			}
			return s.finish(cmd)
		},
	}
	addHostFlags(cmd, "_start")
	return cmd
}

func writeSnapshot(ctx context.Context, inst *engine.Instantiation, path string) error {
	snap, err := snapshot.Capture(ctx, inst)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := snap.Encode(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func readSnapshot(path string) (*snapshot.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return snapshot.Decode(f)
}
