package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-host/snapshot"
)

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore module.wasm [module.wasm...] --snapshot-in FILE",
		Short: "Instantiate modules from a snapshot and call an export",
		Long: `Instantiate the same modules a snapshot was taken from, grow their
memories to the recorded sizes, install the snapshot, then call --invoke.

The host context is built fresh from flags; a snapshot carries no
capabilities.

  wasmhost run app.wasm --invoke step --snapshot-out a.whsn
  wasmhost restore app.wasm --snapshot-in a.whsn --invoke step`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, _ := cmd.Flags().GetString("snapshot-in")
			snap, err := readSnapshot(in)
			if err != nil {
				return err
			}

			s, err := openSession(cmd, args)
			if err != nil {
				return err
			}
			defer s.close(context.WithoutCancel(cmd.Context()))

			if err := snapshot.Prepare(cmd.Context(), s.inst, snap); err != nil {
				return err
			}
			if err := snapshot.Restore(cmd.Context(), s.inst, snap); err != nil {
				return err
			}
			if err := s.invoke(cmd); err != nil {
				return err
			}
			return s.finish(cmd)
		},
	}
	addHostFlags(cmd, "")
	cmd.Flags().String("snapshot-in", "", "Snapshot file to restore")
	_ = cmd.MarkFlagRequired("snapshot-in")
	return cmd
}
