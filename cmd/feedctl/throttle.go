package main

import (
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zfogg/watchfeed/internal/models"
	"github.com/zfogg/watchfeed/internal/throttle"
)

var (
	maxImpressions int
	cooldownDays   int
	sourceContent  string
)

// policyOptions turns the policy flags into throttle options; unset flags keep the configured policy
func policyOptions(cmd *cobra.Command) []throttle.Option {
	var opts []throttle.Option
	if cmd.Flags().Changed("max-impressions") {
		opts = append(opts, throttle.WithMaxImpressions(maxImpressions))
	}
	if cmd.Flags().Changed("cooldown-days") {
		opts = append(opts, throttle.WithCooldownDays(cooldownDays))
	}
	return opts
}

func parseKey(userID, cardType, contentID string) (models.ImpressionKey, error) {
	ct, err := models.ParseCardType(cardType)
	if err != nil {
		return models.ImpressionKey{}, err
	}
	return models.ImpressionKey{UserID: userID, CardType: ct, ContentID: contentID}, nil
}

var shouldShowCmd = &cobra.Command{
	Use:   "should-show <user-id> <card-type> <content-id>",
	Short: "Ask the exposure throttle whether a card may be displayed",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opContext(cmd)
		defer cancel()

		key, err := parseKey(args[0], args[1], args[2])
		if err != nil {
			return err
		}
		show, err := k.Throttle().ShouldShow(ctx, key, policyOptions(cmd)...)
		if err != nil {
			return err
		}
		payload := struct {
			models.ImpressionKey
			Show bool `json:"show"`
		}{key, show}
		return render(cmd.OutOrStdout(), output, payload, func(tw *tabwriter.Writer) {
			if show {
				row(tw, "✓ show", key.CardType, key.ContentID)
			} else {
				row(tw, "✗ suppress", key.CardType, key.ContentID)
			}
		})
	},
}

var recordImpressionCmd = &cobra.Command{
	Use:   "record-impression <user-id> <card-type> <content-id>",
	Short: "Count one display of a card",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opContext(cmd)
		defer cancel()

		key, err := parseKey(args[0], args[1], args[2])
		if err != nil {
			return err
		}
		if err := k.Throttle().RecordImpression(ctx, key, sourceContent); err != nil {
			return err
		}
		payload := struct {
			models.ImpressionKey
			Recorded bool `json:"recorded"`
		}{key, true}
		return render(cmd.OutOrStdout(), output, payload, func(tw *tabwriter.Writer) {
			row(tw, "✓ impression recorded", key.CardType, key.ContentID)
		})
	},
}

var showableCmd = &cobra.Command{
	Use:   "showable <user-id> <card-type> <content-id>[,<content-id>...]",
	Short: "Filter candidate cards down to the ones the throttle allows",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opContext(cmd)
		defer cancel()

		ct, err := models.ParseCardType(args[1])
		if err != nil {
			return err
		}
		candidates := splitIDs(args[2:])
		showable, err := k.Throttle().ComputeShowableSet(ctx, args[0], ct, candidates, policyOptions(cmd)...)
		if err != nil {
			return err
		}
		ids := showable.Slice()
		return render(cmd.OutOrStdout(), output, ids, func(tw *tabwriter.Writer) {
			for _, id := range candidates {
				mark := "✗"
				if showable.Has(id) {
					mark = "✓"
				}
				row(tw, mark, id)
			}
		})
	},
}

// splitIDs accepts ids as separate args, comma lists, or both
func splitIDs(args []string) []models.TitleID {
	var out []models.TitleID
	for _, a := range args {
		for _, id := range strings.Split(a, ",") {
			if id = strings.TrimSpace(id); id != "" {
				out = append(out, models.TitleID(id))
			}
		}
	}
	return out
}

func init() {
	for _, c := range []*cobra.Command{shouldShowCmd, showableCmd} {
		c.Flags().IntVar(&maxImpressions, "max-impressions", throttle.DefaultMaxImpressions, "Impression cap for this check")
		c.Flags().IntVar(&cooldownDays, "cooldown-days", throttle.DefaultCooldownDays, "Cooldown in days for this check")
	}
	recordImpressionCmd.Flags().StringVar(&sourceContent, "source", "", "Title that triggered the recommendation")
}
