package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scrypster/keystone/internal/engine"
)

func newAskCmd(root *rootOptions) *cobra.Command {
	var (
		userID    string
		sessionID string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the assistant a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return fmt.Errorf("question is required")
			}

			a, err := root.app(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.Assistant.Answer(cmd.Context(), engine.Request{
				Query:     query,
				UserID:    userID,
				SessionID: sessionID,
			})
			if err != nil {
				return fmt.Errorf("answer: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			fmt.Fprintln(out, resp.Text)
			fmt.Fprintf(out, "\nMatch: %s  Confidence: %.2f\n", resp.MatchType, resp.Confidence)
			if len(resp.Sources) > 0 {
				fmt.Fprintf(out, "Sources: %s\n", strings.Join(resp.Sources, ", "))
			}
			if len(resp.FollowUps) > 0 {
				fmt.Fprintln(out, "\nYou might also ask:")
				for _, f := range resp.FollowUps {
					fmt.Fprintf(out, "  - %s\n", f)
				}
			}
			if resp.Learning.Improved {
				fmt.Fprintln(out, "\n(learned from this question)")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID for scoped interactions and preferences")
	cmd.Flags().StringVar(&sessionID, "session", "", "session ID for scoped interactions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full response as JSON")
	return cmd
}
