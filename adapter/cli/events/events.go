// Package events replays payment gateway events captured on disk.
package events

import (
	"fmt"

	"github.com/felixgeelhaar/covera/adapter/cli"
	"github.com/felixgeelhaar/covera/internal/applications/application/subscribers"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/security"
	"github.com/spf13/cobra"
)

// Cmd is the events command group
var Cmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect and replay broker events",
}

var (
	replayFile    string
	replaySubject string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a payment event through the reconciler",
	Long: `Decode a payment gateway event and hand it to the payment reconciler, as
the worker does for events read from the broker. Useful to recover messages
parked on the dead letter exchange.

Examples:
  covera events replay --file checkout-completed.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Event replay")
		if app == nil {
			return nil
		}

		body, err := security.SafeReadFile(replayFile)
		if err != nil {
			return err
		}

		bus := eventbus.NewInProcessEventBusWithDecoder(nil, subscribers.DecodePaymentEvent)
		bus.RegisterConsumer(app.PaymentEvents)
		if err := bus.Deliver(cmd.Context(), replaySubject, body); err != nil {
			return fmt.Errorf("failed to replay %s: %w", replayFile, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Replayed %s\n", replayFile)
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVarP(&replayFile, "file", "f", "", "path to the event JSON envelope")
	replayCmd.Flags().StringVar(&replaySubject, "subject", "", "broker subject the event was read from")
	_ = replayCmd.MarkFlagRequired("file")

	Cmd.AddCommand(replayCmd)
}
