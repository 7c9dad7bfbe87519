// -- cmd/stats.go --
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ckarabey/attendbot/internal/observability"
	"github.com/ckarabey/attendbot/internal/store"
)

var statsSince time.Duration

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show submission statistics from the local log",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().DurationVar(&statsSince, "since", 24*time.Hour,
		"look-back window for the summary")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()

	st, err := store.Open(appConfig.Store, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	stats, err := st.StatsSince(ctx, time.Now().Add(-statsSince))
	if err != nil {
		return err
	}

	fmt.Printf("Submissions in the last %s:\n", statsSince)
	fmt.Printf("  total:      %d\n", stats.Total)
	fmt.Printf("  successful: %d\n", stats.Successful)
	fmt.Printf("  failed:     %d\n", stats.Failed)
	fmt.Printf("  captcha:    %d\n", stats.Captcha)
	if stats.Total > 0 {
		fmt.Printf("  avg time:   %s\n", stats.AvgProcessingTime.Round(10*time.Millisecond))
	}

	recent, err := st.Recent(ctx, 10)
	if err != nil {
		return err
	}
	if len(recent) > 0 {
		fmt.Println("\nMost recent attempts:")
		for _, sub := range recent {
			fmt.Printf("  %s  %-8s  %s\n",
				sub.Timestamp.Format("2006-01-02 15:04"), sub.Status, sub.FormURL)
		}
	}
	return nil
}
