package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pricewatch/pkg/utils"
)

func addWatchCommand(rootCmd *cobra.Command, app *App) {
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the evaluation loop",
		Long: `Poll the market data feed at a fixed interval and evaluate every active
rule. When inbound polling is configured, each tick first checks WhatsApp
for "<TICKER> <PRICE>" commands and turns them into rules.

The loop is a single thread: one tick runs to completion, then the process
sleeps for the interval. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)

			interval, _ := cmd.Flags().GetDuration("interval")
			if interval <= 0 {
				interval = app.Config.Watch.Interval
			}
			once, _ := cmd.Flags().GetBool("once")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !once {
				out.Info("Watching every %s. Press Ctrl-C to stop.", interval)
			}

			for {
				runTick(ctx, app, out)

				if once {
					return nil
				}

				select {
				case <-ctx.Done():
					out.Println()
					out.Info("Stopped.")
					return nil
				case <-time.After(interval):
				}
			}
		},
	}
	watchCmd.Flags().Duration("interval", 0, "evaluation interval (default from config)")
	watchCmd.Flags().Bool("once", false, "run a single tick and exit")
	rootCmd.AddCommand(watchCmd)
}

// runTick performs one poll-and-evaluate pass. All failures are absorbed
// here: a dead store or feed skips the tick, it never stops the loop.
func runTick(ctx context.Context, app *App, out *Output) {
	if app.Poller != nil {
		messages, err := app.Poller.Poll(ctx)
		if err != nil {
			app.Logger.Warn().Err(err).Msg("Inbound poll failed")
		} else if added, err := app.Watcher.Ingest(ctx, messages); err != nil {
			app.Logger.Warn().Err(err).Msg("Inbound rule save failed")
		} else {
			for _, rule := range added {
				out.Success("📱 WhatsApp: watching %s @ %s", rule.Ticker, utils.FormatPrice(rule.TargetPrice))
			}
		}
	}

	result, err := app.Watcher.Tick(ctx)
	if err != nil {
		out.Warning("Tick skipped: %v", err)
		return
	}

	for _, rule := range result.Triggered {
		out.Success("🔔 %s hit %s (target %s %s)",
			rule.Ticker,
			utils.FormatPrice(rule.CurrentPrice),
			utils.FormatDirection(string(rule.Direction)),
			utils.FormatPrice(rule.TargetPrice))
	}
	for _, res := range result.Results {
		if !res.OK {
			out.Warning("Notification via %s failed: %s", res.Channel, res.Detail)
		}
	}
}
