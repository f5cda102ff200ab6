package cli

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"pricewatch/internal/models"
	"pricewatch/pkg/utils"
)

// exportRow is the CSV shape for triggered-alert history. Everything is
// text, matching the storage boundary.
type exportRow struct {
	Ticker       string `csv:"ticker"`
	TargetPrice  string `csv:"target_price"`
	TriggerPrice string `csv:"trigger_price"`
	Direction    string `csv:"direction"`
	Notes        string `csv:"notes"`
	CreatedAt    string `csv:"created_at"`
	TriggeredAt  string `csv:"triggered_at"`
}

func addExportCommand(rootCmd *cobra.Command, app *App) {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export triggered-alert history as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)

			rules, err := app.Watcher.List(cmd.Context(), true)
			if err != nil {
				out.Error("Failed to load rules: %v", err)
				return err
			}

			var rows []exportRow
			for _, r := range rules {
				if r.Malformed || r.Status != models.StatusCompleted {
					continue
				}
				row := exportRow{
					Ticker:       r.Ticker,
					TargetPrice:  fmt.Sprintf("%.2f", r.TargetPrice),
					TriggerPrice: fmt.Sprintf("%.2f", r.CurrentPrice),
					Direction:    string(r.Direction),
					Notes:        r.Notes,
					CreatedAt:    utils.FormatTimestamp(r.CreatedAt),
				}
				if r.TriggeredAt != nil {
					row.TriggeredAt = utils.FormatTimestamp(*r.TriggeredAt)
				}
				rows = append(rows, row)
			}

			outPath, _ := cmd.Flags().GetString("out")
			if outPath == "" {
				return gocsv.Marshal(rows, cmd.OutOrStdout())
			}

			f, err := os.Create(outPath)
			if err != nil {
				out.Error("Failed to create %s: %v", outPath, err)
				return err
			}
			defer f.Close()

			if err := gocsv.Marshal(rows, f); err != nil {
				out.Error("Failed to write CSV: %v", err)
				return err
			}
			out.Success("Exported %d triggered alert(s) to %s", len(rows), outPath)
			return nil
		},
	}
	exportCmd.Flags().String("out", "", "output file (default: stdout)")
	rootCmd.AddCommand(exportCmd)
}
