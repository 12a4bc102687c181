package main

import (
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zfogg/watchfeed/internal/models"
	"github.com/zfogg/watchfeed/internal/similar"
)

var exclusionsCmd = &cobra.Command{
	Use:   "exclusions <user-id>",
	Short: "Show the titles a user must never be recommended",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opContext(cmd)
		defer cancel()

		res, err := k.Exclusions().BuildWithReport(ctx, args[0])
		if err != nil {
			return err
		}
		return renderExclusions(cmd, res.Titles.Slice(), res.FailedSources)
	},
}

func renderExclusions(cmd *cobra.Command, titles []models.TitleID, failed []string) error {
	payload := struct {
		Titles        []models.TitleID `json:"titles"`
		FailedSources []string         `json:"failed_sources,omitempty"`
	}{titles, failed}

	return render(cmd.OutOrStdout(), output, payload, func(tw *tabwriter.Writer) {
		for _, t := range titles {
			row(tw, t)
		}
		for _, s := range failed {
			row(tw, "⚠️  source unavailable:", s)
		}
	})
}

var similarOpts similar.Options

var similarCmd = &cobra.Command{
	Use:   "similar <title-id>",
	Short: "Rank similar content for a title (e.g. series-1399)",
	Long: `Rank catalog titles similar to the given one. With --viewer the viewer's
tracked, rated and dismissed titles are removed; add --throttle to also drop
titles whose similar_content card is on cooldown or maxed out.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opContext(cmd)
		defer cancel()

		source := models.TitleID(args[0])
		kind, _, err := source.Parse()
		if err != nil {
			return err
		}
		ranked, err := k.Similar().RankSimilarContent(ctx, source, kind, similarOpts)
		if err != nil {
			return err
		}
		return renderSimilar(cmd, ranked)
	},
}

func renderSimilar(cmd *cobra.Command, ranked []similar.Scored) error {
	return render(cmd.OutOrStdout(), output, ranked, func(tw *tabwriter.Writer) {
		row(tw, "RANK", "TITLE", "NAME", "SCORE", "VOTES", "POPULARITY")
		for i, r := range ranked {
			c := r.Candidate
			row(tw, i+1, c.TitleID, c.Name, formatFloat(r.Score), c.VoteCount, formatFloat(c.Popularity))
		}
	})
}

func init() {
	f := similarCmd.Flags()
	f.StringVar(&similarOpts.ViewerID, "viewer", "", "Viewer user id for exclusions and throttling")
	f.IntVar(&similarOpts.MinVoteCount, "min-votes", 0, "Minimum catalog vote count (0 = configured default)")
	f.IntVar(&similarOpts.Limit, "limit", 0, "Number of results (0 = configured default)")
	f.BoolVar(&similarOpts.Unfiltered, "unfiltered", false, "Rank without a vote count floor")
	f.IntVar(&similarOpts.MaxPages, "pages", 0, "Similar listing pages to fetch (0 = configured default)")
	f.BoolVar(&similarOpts.ApplyThrottle, "throttle", false, "Drop titles the exposure throttle would suppress for --viewer")
}
