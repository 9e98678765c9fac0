package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/scrypster/keystone/internal/app"
)

type snapshotter interface {
	Snapshot(ctx context.Context, destPath string) error
}

func newSnapshotCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot [dest]",
		Short: "Write a verified copy of the sqlite corpus",
		Long:  "Write a consistent, integrity-checked copy of the sqlite corpus, including everything learned so far. The default destination is <data>/snapshots/keystone-<timestamp>.db.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.OpenStore(cmd.Context(), root.cfg.Storage, root.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			snap, ok := store.(snapshotter)
			if !ok {
				return fmt.Errorf("snapshots need the sqlite engine, not %q", root.cfg.Storage.Engine)
			}

			dest := ""
			if len(args) == 1 {
				dest = args[0]
			} else {
				dir := filepath.Join(root.cfg.Storage.DataPath, "snapshots")
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
				dest = filepath.Join(dir, "keystone-"+time.Now().UTC().Format("20060102-150405")+".db")
			}

			if err := snap.Snapshot(cmd.Context(), dest); err != nil {
				return err
			}

			info, err := os.Stat(dest)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Snapshot written to %s (%s)\n", dest, humanize.Bytes(uint64(info.Size())))
			return nil
		},
	}
}
