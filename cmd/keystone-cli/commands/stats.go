package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/scrypster/keystone/internal/app"
	"github.com/scrypster/keystone/pkg/types"
)

var statsKinds = []types.RecordKind{
	types.KindQA, types.KindVariation, types.KindInteraction, types.KindPreference, types.KindInsight,
}

func newStatsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show record counts per kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.OpenStore(cmd.Context(), root.cfg.Storage, root.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			total := 0
			for _, kind := range statsKinds {
				n, err := store.Count(cmd.Context(), kind)
				if err != nil {
					return fmt.Errorf("count %s: %w", kind, err)
				}
				total += n
				fmt.Fprintf(w, "%s\t%s\n", kind, humanize.Comma(int64(n)))
			}
			fmt.Fprintf(w, "total\t%s\n", humanize.Comma(int64(total)))
			return w.Flush()
		},
	}
}
