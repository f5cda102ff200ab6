package cli

import (
	"github.com/spf13/cobra"

	"pricewatch/internal/inbound"
	"pricewatch/pkg/utils"
)

func addInboxCommand(rootCmd *cobra.Command, app *App) {
	inboxCmd := &cobra.Command{
		Use:   "inbox",
		Short: "Poll WhatsApp once and process pending commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)

			if app.Poller == nil || !app.Poller.Configured() {
				out.Warning("Inbound polling is not configured (see [inbound] and twilio credentials)")
				return nil
			}

			messages, err := app.Poller.Poll(cmd.Context())
			if err != nil {
				out.Error("Inbound poll failed: %v", err)
				return err
			}

			if len(messages) == 0 {
				out.Info("No messages from your number in the lookback window")
				return nil
			}

			for _, msg := range messages {
				if _, ok := inbound.ParseCommand(msg.Body); ok {
					out.Printf("  command:  %q\n", msg.Body)
				} else {
					out.Printf("  ignored:  %q\n", msg.Body)
				}
			}

			added, err := app.Watcher.Ingest(cmd.Context(), messages)
			if err != nil {
				out.Error("Failed to save inbound rules: %v", err)
				return err
			}

			for _, rule := range added {
				out.Success("Added %s @ %s", rule.Ticker, utils.FormatPrice(rule.TargetPrice))
			}
			if len(added) == 0 {
				out.Info("No new rules added")
			}
			return nil
		},
	}
	rootCmd.AddCommand(inboxCmd)
}
