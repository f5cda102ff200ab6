package cli

import (
	"time"

	"github.com/spf13/cobra"

	"pricewatch/internal/models"
	"pricewatch/internal/notify"
)

func addNotifyTestCommand(rootCmd *cobra.Command, app *App) {
	testCmd := &cobra.Command{
		Use:   "notify-test",
		Short: "Send a test notification through every configured channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)

			trigger := notify.Trigger{
				Ticker:    "TEST",
				Price:     123.45,
				Target:    123.00,
				Direction: models.DirectionUp,
				Notes:     "pricewatch notify-test",
				At:        time.Now(),
			}

			results := app.Dispatcher.Dispatch(cmd.Context(), trigger)
			if len(results) == 0 {
				out.Warning("No notification channels are enabled")
				return nil
			}

			if out.IsJSON() {
				return out.JSON(results)
			}
			for _, res := range results {
				if res.OK {
					out.Success("%-10s ok", res.Channel)
				} else {
					out.Error("%-10s failed: %s", res.Channel, res.Detail)
				}
			}
			return nil
		},
	}
	rootCmd.AddCommand(testCmd)
}
