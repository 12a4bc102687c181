package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/zfogg/watchfeed/internal/config"
	"github.com/zfogg/watchfeed/internal/kernel"
	"github.com/zfogg/watchfeed/internal/logger"
)

var (
	output  = "text" // "text" or "json"
	timeout = 30 * time.Second

	k *kernel.Kernel
)

var rootCmd = &cobra.Command{
	Use:   "feedctl",
	Short: "feedctl - operate the feed personalization engine",
	Long: `feedctl runs the feed engine operations directly against the configured
database, Redis and media catalog: exclusion sets, similar content ranking,
taste matching, the exposure throttle and grouped activity.`,
	SilenceUsage:      true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if output != "text" && output != "json" {
			return fmt.Errorf("--output must be text or json, got %q", output)
		}
		if cmd.Name() == "help" || cmd.Parent() == nil {
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		// CLI output owns stdout; logs only go to the file
		if err := logger.InitializeWithConsole(cfg.Log.Level, cfg.Log.File, nil); err != nil {
			return err
		}

		k, err = kernel.Boot(cmd.Context(), cfg, "feedctl")
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if k != nil {
			_ = k.Cleanup(context.Background())
		}
		_ = logger.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", timeout, "Deadline for the whole operation")

	// Add command groups
	rootCmd.AddCommand(exclusionsCmd)
	rootCmd.AddCommand(similarCmd)
	rootCmd.AddCommand(tasteMatchCmd)
	rootCmd.AddCommand(similarUsersCmd)
	rootCmd.AddCommand(shouldShowCmd)
	rootCmd.AddCommand(recordImpressionCmd)
	rootCmd.AddCommand(showableCmd)
	rootCmd.AddCommand(activityCmd)
}

// opContext bounds one operation by --timeout
func opContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
