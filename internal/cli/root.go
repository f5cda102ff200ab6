package cli

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"pricewatch/internal/config"
	"pricewatch/internal/engine"
	"pricewatch/internal/feed"
	"pricewatch/internal/inbound"
	"pricewatch/internal/logging"
	"pricewatch/internal/notify"
	"pricewatch/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Store      store.RuleStore
	Provider   feed.Provider
	Dispatcher *notify.Dispatcher
	Watcher    *engine.Watcher
	Poller     *inbound.Poller
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	initStore(app)
	app.Provider = feed.NewGuardedProvider(
		feed.NewStooqProvider(cfg.Feed.BaseURL, cfg.Feed.Timeout, logger),
		feed.DefaultGuardConfig(), logger)
	app.Dispatcher = buildDispatcher(cfg, logger)
	app.Watcher = engine.NewWatcher(app.Store, app.Provider, app.Dispatcher, logger)

	if cfg.Inbound.Enabled {
		app.Poller = inbound.NewPoller(cfg.Credentials.Twilio, cfg.Notifications.WhatsApp.To, cfg.Inbound.Lookback, logger)
		logger.Debug().
			Str("account_sid", logging.MaskCredential(cfg.Credentials.Twilio.AccountSID)).
			Int("lookback", cfg.Inbound.Lookback).
			Msg("Inbound command polling enabled")
	}

	rootCmd := &cobra.Command{
		Use:   "pricewatch",
		Short: "Personal price-alert watcher for stock tickers",
		Long: `Pricewatch polls a market data feed for tickers you watch and fires an
email or WhatsApp notification exactly once when a rule's threshold is
crossed. Rules live in a Google Sheets spreadsheet with a local SQLite
mirror.

Use 'pricewatch help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/pricewatch)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addWatchCommand(rootCmd, app)
	addRuleCommands(rootCmd, app)
	addInboxCommand(rootCmd, app)
	addNotifyTestCommand(rootCmd, app)
	addExportCommand(rootCmd, app)
	addVersionCommand(rootCmd)

	return rootCmd
}

// initStore wires the rule store: the remote sheet fronted by a local
// SQLite mirror when both are available, the mirror alone otherwise, and
// an in-memory store as a last resort.
func initStore(app *App) {
	cfg := app.Config
	logger := app.Logger

	var local store.RuleStore
	if cfg.Store.CacheEnabled {
		sqliteStore, err := store.NewSQLiteStore(cfg.Store.CachePath)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to open local rule mirror")
		} else {
			local = sqliteStore
			logger.Debug().Str("path", cfg.Store.CachePath).Msg("Local rule mirror initialized")
		}
	}

	if cfg.RemoteStoreConfigured() {
		remote, err := store.NewSheetsStore(context.Background(),
			cfg.Credentials.Google.ServiceKeyBase64, cfg.Store.SpreadsheetID, cfg.Store.SheetName)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize sheets store")
		} else if local != nil {
			app.Store = store.NewMirroredStore(remote, local, logger)
			logger.Debug().Msg("Sheets store with local mirror initialized")
			return
		} else {
			app.Store = remote
			logger.Debug().Msg("Sheets store initialized")
			return
		}
	}

	if local != nil {
		app.Store = local
		logger.Info().Msg("No spreadsheet configured, rules are stored locally only")
		return
	}

	app.Store = store.NewMemoryStore()
	logger.Warn().Msg("No durable store available, rules will not survive this run")
}

// buildDispatcher assembles the configured notification channels.
func buildDispatcher(cfg *config.Config, logger zerolog.Logger) *notify.Dispatcher {
	dispatcher := notify.NewDispatcher(logger)
	if !cfg.Notifications.Enabled {
		return dispatcher
	}

	if cfg.Notifications.Email.Enabled {
		dispatcher.AddChannel(notify.NewEmailChannel(cfg.Notifications.Email))
	}
	if cfg.Notifications.WhatsApp.Enabled {
		dispatcher.AddChannel(notify.NewWhatsAppChannel(cfg.Notifications.WhatsApp, cfg.Credentials.Twilio))
	}
	return dispatcher
}

func addVersionCommand(rootCmd *cobra.Command) {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := NewOutput(cmd)
			if out.IsJSON() {
				out.JSON(map[string]string{"version": Version})
				return
			}
			out.Printf("pricewatch %s\n", Version)
		},
	})
}
