package main

import (
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zfogg/watchfeed/internal/tastematch"
)

var tasteMatchCmd = &cobra.Command{
	Use:   "taste-match <user-a> <user-b>",
	Short: "Compute the 0-100 taste compatibility of two users",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opContext(cmd)
		defer cancel()

		result, err := k.TasteMatch().CalculateTasteMatch(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), output, result, func(tw *tabwriter.Writer) {
			row(tw, "score", result.Score)
			row(tw, "category", result.Category)
			row(tw, "shared titles", result.SharedTitleCount)
			row(tw, "rated by both", result.SharedRatedCount)
			row(tw, "rating agreement", formatPct(float64(result.RatingAgreementPct)))
			row(tw, "overlap", formatPct(result.OverlapPct))
		})
	},
}

var findOpts tastematch.FindOptions

var similarUsersCmd = &cobra.Command{
	Use:   "similar-users <user-id>",
	Short: "Scan the population for users with a similar taste",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opContext(cmd)
		defer cancel()

		matches, err := k.TasteMatch().FindSimilarUsers(ctx, args[0], findOpts)
		if err != nil {
			return err
		}
		return renderMatches(cmd, matches)
	},
}

func renderMatches(cmd *cobra.Command, matches []tastematch.UserMatch) error {
	return render(cmd.OutOrStdout(), output, matches, func(tw *tabwriter.Writer) {
		row(tw, "USER", "SCORE", "CATEGORY", "SHARED", "RATED BY BOTH")
		for _, m := range matches {
			row(tw, m.UserID, m.Score, m.Category, m.SharedTitleCount, m.SharedRatedCount)
		}
	})
}

func init() {
	f := similarUsersCmd.Flags()
	f.IntVar(&findOpts.MinScore, "min-score", 50, "Only return matches scoring above this")
	f.IntVar(&findOpts.MinSharedRatings, "min-shared-ratings", 1, "Minimum titles rated by both users")
	f.IntVar(&findOpts.Limit, "limit", 20, "Maximum matches (0 = all)")
}
