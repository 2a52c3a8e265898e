package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	statusWindow time.Duration
	statusJSON   bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog health, metrics and cache statistics",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var ackCmd = &cobra.Command{
	Use:   "ack [alert-id]",
	Short: "Acknowledge a performance alert",
	Args:  cobra.ExactArgs(1),
	RunE:  runAck,
}

func init() {
	statusCmd.Flags().DurationVar(&statusWindow, "window", 0, "metrics window (0 = full retention)")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output report as JSON")
	statusCmd.AddCommand(ackCmd)
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := requireCore(cmd); err != nil {
		return err
	}

	report := core.MetricsReport(statusWindow)

	if statusJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Health: %s\n", report.Health)

	if len(report.PerOp) > 0 {
		cmd.Println("\nOperations (last minute):")
		for op, stats := range report.PerOp {
			cmd.Printf("  %-16s count=%d avg=%v max=%v hit=%.0f%%\n",
				op, stats.Count, stats.Avg.Round(time.Microsecond), stats.Max.Round(time.Microsecond),
				stats.CacheHitRate*100)
		}
	}

	if len(report.Alerts) > 0 {
		cmd.Println("\nAlerts:")
		for _, alert := range report.Alerts {
			cmd.Printf("  [%s] %s %s on %s: %.1f (threshold %.1f)\n",
				alert.ID, alert.Severity, alert.Kind, alert.Op, alert.Actual, alert.Threshold)
		}
	}

	cmd.Println("\nCache:")
	for level, stats := range report.Cache.Levels {
		cmd.Printf("  %-14s %d/%d entries, hit rate %.0f%%\n",
			level, stats.Size, stats.MaxSize, stats.HitRate()*100)
	}

	for _, rec := range report.Recommendations {
		cmd.Printf("\nRecommendation: %s\n", rec)
	}
	return nil
}

func runAck(cmd *cobra.Command, args []string) error {
	if err := requireCore(cmd); err != nil {
		return err
	}

	if !core.AcknowledgeAlert(args[0]) {
		return fmt.Errorf("unknown alert %s", args[0])
	}
	cmd.Printf("Alert %s acknowledged.\n", args[0])
	return nil
}
