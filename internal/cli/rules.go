package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	apperrors "pricewatch/internal/errors"
	"pricewatch/internal/models"
	"pricewatch/pkg/utils"
)

func addRuleCommands(rootCmd *cobra.Command, app *App) {
	addCmd := &cobra.Command{
		Use:   "add TICKER PRICE",
		Short: "Create a price alert rule",
		Long: `Create a rule that fires once when TICKER reaches PRICE.

By default the rule watches for the price rising to or above the target;
use --direction down for a fall to or below it. Creating a rule identical
to an existing active one (same ticker, target and direction) is rejected.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)

			target, err := strconv.ParseFloat(args[1], 64)
			if err != nil || target <= 0 {
				out.Error("Invalid target price %q: must be a positive number", args[1])
				return apperrors.ErrInvalidRule
			}

			dirFlag, _ := cmd.Flags().GetString("direction")
			direction, ok := models.ParseDirection(dirFlag)
			if !ok {
				out.Error("Invalid direction %q: must be \"up\" or \"down\"", dirFlag)
				return apperrors.ErrInvalidRule
			}

			notes, _ := cmd.Flags().GetString("notes")

			rule, err := app.Watcher.CreateRule(cmd.Context(), args[0], target, direction, notes)
			if err != nil {
				switch {
				case apperrors.Is(err, apperrors.ErrDuplicateRule):
					out.Warning("An identical active rule already exists for %s", strings.ToUpper(args[0]))
				case apperrors.Is(err, apperrors.ErrInvalidRule):
					out.Error("Invalid rule: ticker must be letters and target positive")
				default:
					out.Error("Failed to create rule: %v", err)
				}
				return err
			}

			if out.IsJSON() {
				return out.JSON(rule)
			}
			out.Success("Watching %s %s %s (rule %s)",
				rule.Ticker, utils.FormatDirection(string(rule.Direction)),
				utils.FormatPrice(rule.TargetPrice), shortID(rule.ID))
			return nil
		},
	}
	addCmd.Flags().String("direction", "up", "trigger direction: up or down")
	addCmd.Flags().String("notes", "", "free-form annotation")
	rootCmd.AddCommand(addCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List alert rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)
			all, _ := cmd.Flags().GetBool("all")

			rules, err := app.Watcher.List(cmd.Context(), all)
			if err != nil {
				out.Error("Failed to load rules: %v", err)
				return err
			}

			if out.IsJSON() {
				return out.JSON(rules)
			}

			if len(rules) == 0 {
				out.Info("No rules. Add one with: pricewatch add TICKER PRICE")
				return nil
			}

			header := []string{"ID", "TICKER", "TARGET", "CURRENT", "DIR", "STATUS", "CREATED", "TRIGGERED", "NOTES"}
			rows := make([][]string, 0, len(rules))
			for _, r := range rules {
				if r.Malformed {
					rows = append(rows, []string{shortID(r.ID), r.Ticker, "?", "?", "?", "corrupt", "-", "-", ""})
					continue
				}
				triggered := "-"
				if r.TriggeredAt != nil {
					triggered = utils.FormatTimestamp(*r.TriggeredAt)
				}
				rows = append(rows, []string{
					shortID(r.ID),
					r.Ticker,
					utils.FormatPrice(r.TargetPrice),
					utils.FormatPrice(r.CurrentPrice),
					string(r.Direction),
					string(r.Status),
					utils.FormatTimestamp(r.CreatedAt),
					triggered,
					r.Notes,
				})
			}
			out.Table(header, rows)
			return nil
		},
	}
	listCmd.Flags().Bool("all", false, "include completed rules")
	rootCmd.AddCommand(listCmd)

	removeCmd := &cobra.Command{
		Use:   "remove ID|TICKER",
		Short: "Delete a rule by ID, or all rules for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)

			removed, err := app.Watcher.Remove(cmd.Context(), args[0])
			if err != nil {
				if apperrors.Is(err, apperrors.ErrRuleNotFound) {
					out.Warning("No rule matches %q", args[0])
				} else {
					out.Error("Failed to remove rule: %v", err)
				}
				return err
			}

			out.Success("Removed %d rule(s)", removed)
			return nil
		},
	}
	rootCmd.AddCommand(removeCmd)

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all completed rules, keeping active ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)

			removed, err := app.Watcher.ClearCompleted(cmd.Context())
			if err != nil {
				out.Error("Failed to clear history: %v", err)
				return err
			}

			if removed == 0 {
				out.Info("No completed rules to clear")
				return nil
			}
			out.Success("Cleared %d completed rule(s)", removed)
			return nil
		},
	}
	rootCmd.AddCommand(clearCmd)
}

// shortID truncates a uuid for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
