// Package discount runs the monthly driving discount by hand.
package discount

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/felixgeelhaar/covera/adapter/cli"
	"github.com/felixgeelhaar/covera/internal/contracts/application/workers"
	"github.com/spf13/cobra"
)

// Cmd is the discount command group
var Cmd = &cobra.Command{
	Use:   "discount",
	Short: "Driving score discounts",
}

var (
	runFrom string
	runTo   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Apply driving score discounts for a period",
	Long: `Average the driving scores of every active contract over the period and
apply the matching coupon to its subscription.

The period defaults to the current month up to now. Runs already holding the
discount lock are skipped.

Examples:
  covera discount run
  covera discount run --from 2024-03-01 --to 2024-04-01`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Discount run")
		if app == nil {
			return nil
		}

		start, end, err := period(time.Now().UTC())
		if err != nil {
			return err
		}

		report, err := app.DiscountJob.Run(cmd.Context(), start, end)
		if err != nil {
			return fmt.Errorf("discount run failed: %w", err)
		}
		printReport(cmd.OutOrStdout(), report)
		return nil
	},
}

// period resolves the flags against now.
func period(now time.Time) (time.Time, time.Time, error) {
	start, end := workers.MonthToDate(now)
	var err error
	if runFrom != "" {
		if start, err = cli.ParseTime("from", runFrom); err != nil {
			return start, end, err
		}
	}
	if runTo != "" {
		if end, err = cli.ParseTime("to", runTo); err != nil {
			return start, end, err
		}
	}
	if !end.After(start) {
		return start, end, errors.New("--to must be after --from")
	}
	return start, end, nil
}

func printReport(w io.Writer, r workers.Report) {
	fmt.Fprintf(w, "Discount run %s to %s\n", r.PeriodStart.Format(time.RFC3339), r.PeriodEnd.Format(time.RFC3339))
	fmt.Fprintf(w, "  Contracts:   %d\n", r.Visited)
	fmt.Fprintf(w, "  Applied:     %d\n", r.Applied)
	fmt.Fprintf(w, "  No discount: %d\n", r.NoDiscount)
	fmt.Fprintf(w, "  Skipped:     %d\n", r.Skipped)
	fmt.Fprintf(w, "  Failed:      %d\n", r.Failed)
}

func init() {
	runCmd.Flags().StringVar(&runFrom, "from", "", "period start (RFC 3339 or YYYY-MM-DD)")
	runCmd.Flags().StringVar(&runTo, "to", "", "period end, exclusive (RFC 3339 or YYYY-MM-DD)")

	Cmd.AddCommand(runCmd)
}
