package main

import (
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zfogg/watchfeed/internal/activity"
)

var (
	activitySince time.Duration
	activityLimit int
)

var activityCmd = &cobra.Command{
	Use:   "activity <user-id>",
	Short: "Show a user's grouped activity feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opContext(cmd)
		defer cancel()

		var since time.Time
		if activitySince > 0 {
			since = time.Now().Add(-activitySince)
		}
		entries, err := k.Activity().Feed(ctx, args[0], since, activityLimit)
		if err != nil {
			return err
		}
		return renderActivity(cmd, entries)
	},
}

func renderActivity(cmd *cobra.Command, entries []activity.FeedEntry) error {
	return render(cmd.OutOrStdout(), output, entries, func(tw *tabwriter.Writer) {
		row(tw, "WHEN", "TITLE", "ACTIONS", "RECORDS")
		for _, e := range entries {
			types := make([]string, len(e.ActivityTypes))
			for i, t := range e.ActivityTypes {
				types[i] = string(t)
			}
			row(tw, e.Timestamp.Local().Format("2006-01-02 15:04"), e.ContentID, strings.Join(types, "+"), len(e.ActivityIDs))
		}
	})
}

func init() {
	activityCmd.Flags().DurationVar(&activitySince, "since", 30*24*time.Hour, "How far back to read (0 = everything)")
	activityCmd.Flags().IntVar(&activityLimit, "limit", 50, "Maximum entries (0 = all)")
}
