package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scrypster/keystone/internal/app"
	"github.com/scrypster/keystone/internal/seed"
)

func newSeedCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <path>",
		Short: "Load a seed file or directory into the corpus",
		Long:  "Load YAML seed entries into the corpus. Loading is idempotent: re-seeding the same files updates records in place.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.OpenStore(cmd.Context(), root.cfg.Storage, root.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			st, err := seed.Load(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d qa records and %d variations from %d file(s)\n", st.QA, st.Variations, st.Files)
			return nil
		},
	}
}
