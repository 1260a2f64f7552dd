package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mdthewzrd/chartscan/internal/contracts"
	"github.com/mdthewzrd/chartscan/internal/pipeline"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one pattern scan over an output date range",
	Long: `Run one whole-market pattern scan and print the result as JSON.

Example:
  scanctl scan --pattern highest_high_breakout --from 2024-01-02 --to 2024-01-31 \
    --lookback 20 --exclusion 1 --threshold min_prev_close=5 --threshold min_breakout_pct=0.02`,
	RunE: runScan,
}

var (
	scanPattern       string
	scanFrom          string
	scanTo            string
	scanLookback      int
	scanExclusion     int
	scanThresholds    []string
	scanFetchWorkers  int
	scanDetectWorkers int
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanPattern, "pattern", "", "pattern ID to scan for (required)")
	scanCmd.Flags().StringVar(&scanFrom, "from", "", "output range start, YYYY-MM-DD (required)")
	scanCmd.Flags().StringVar(&scanTo, "to", "", "output range end, YYYY-MM-DD (defaults to --from)")
	scanCmd.Flags().IntVar(&scanLookback, "lookback", 20, "lookback window in trading sessions")
	scanCmd.Flags().IntVar(&scanExclusion, "exclusion", 1, "sessions excluded from the end of each window")
	scanCmd.Flags().StringArrayVar(&scanThresholds, "threshold", nil, "pattern threshold, key=value (repeatable)")
	scanCmd.Flags().IntVar(&scanFetchWorkers, "fetch-workers", 0, "fetch worker override (0 = configured default)")
	scanCmd.Flags().IntVar(&scanDetectWorkers, "detect-workers", 0, "detect worker override (0 = configured default)")
	scanCmd.MarkFlagRequired("pattern")
	scanCmd.MarkFlagRequired("from")
}

func runScan(cmd *cobra.Command, args []string) error {
	spec, err := buildSpec()
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	runner := pipeline.NewDefault(a.store, a.calendar, a.cfg.Scan, a.log)

	// Ctrl+C cancels the run; the pipeline reports a cancelled result
	// rather than dying mid-stage.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := runner.RunScan(ctx, spec)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	if result.Status == contracts.StatusError {
		return fmt.Errorf("scan failed: %s", result.Reason)
	}
	return nil
}

func buildSpec() (*contracts.ScanSpec, error) {
	from, err := time.Parse("2006-01-02", scanFrom)
	if err != nil {
		return nil, fmt.Errorf("invalid --from date: %w", err)
	}

	to := from
	if scanTo != "" {
		to, err = time.Parse("2006-01-02", scanTo)
		if err != nil {
			return nil, fmt.Errorf("invalid --to date: %w", err)
		}
	}

	thresholds, err := parseThresholds(scanThresholds)
	if err != nil {
		return nil, err
	}

	spec := &contracts.ScanSpec{
		PatternID:        scanPattern,
		OutputStart:      from,
		OutputEnd:        to,
		LookbackDays:     scanLookback,
		ExclusionDays:    scanExclusion,
		Thresholds:       thresholds,
		MaxFetchWorkers:  scanFetchWorkers,
		MaxDetectWorkers: scanDetectWorkers,
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// parseThresholds turns repeated key=value flags into a threshold map.
func parseThresholds(pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	thresholds := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --threshold %q (expected key=value)", pair)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --threshold %q: %w", pair, err)
		}
		thresholds[key] = v
	}
	return thresholds, nil
}
