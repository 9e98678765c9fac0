package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scrypster/keystone/internal/engine"
)

func newFollowUpsCmd(_ *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "followups [category]",
		Short: "List follow-up suggestions for a category",
		Long:  "List follow-up suggestions. The category may be a table key (market, construction, neighborhood, investment, general) or a record category such as market_trends.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category := engine.FollowUpGeneral
			if len(args) == 1 {
				category = args[0]
			}
			category = engine.ResolveFollowUpCategory(category)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s:\n", category)
			for _, s := range engine.Suggest(category) {
				fmt.Fprintf(out, "  - %s\n", s)
			}
			return nil
		},
	}
}
