package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/levgame/config"
	"github.com/rustyeddy/levgame/internal/logger"
	"github.com/rustyeddy/levgame/journal"
	"github.com/rustyeddy/levgame/store"
)

var rootCmd = &cobra.Command{
	Use:   "levgame",
	Short: "A leveraged crypto trading game for the terminal",
	Long: `Levgame simulates synthetic coin prices and lets you trade them with leverage.

It provides:
  - A live game with a biased random-walk market and random news events
  - Long and short positions with stop-loss and liquidation
  - A persistent balance, history and ranking (file, SQLite, Redis or PostgreSQL)
  - Headless simulations with an Org-mode report
  - A trade journal you can query by id or day`,
	SilenceUsage: true,
}

var (
	cfgPath  string
	logLevel string
	cfg      *config.Config
	log      = zap.NewNop()
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "f", "", "config file (YAML or JSON); defaults apply when empty")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level")
	rootCmd.PersistentPreRunE = loadConfig
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if cfgPath == "" {
		cfg = config.Default()
	} else {
		c, err := config.LoadFromFile(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	l, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	log = l
	return nil
}

func openGateway(ctx context.Context) (store.Gateway, error) {
	gw, err := store.Open(ctx, cfg.StoreConfig())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return gw, nil
}

func openJournal() (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "csv":
		return journal.NewCSV(cfg.Journal.TradesFile, cfg.Journal.EquityFile)
	case "sqlite":
		return journal.NewSQLite(cfg.Journal.DBPath)
	}
	return journal.Nop{}, nil
}
