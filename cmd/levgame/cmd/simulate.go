package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/levgame/game"
	"github.com/rustyeddy/levgame/journal"
	"github.com/rustyeddy/levgame/pkg/id"
	"github.com/rustyeddy/levgame/present"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a headless game with a random trader",
	Long: `Play a whole session on simulated time against an in-memory account.

A random trader opens one position every N rounds on a random asset and
leverage. The same seed always produces the same run. Stored progress is
never touched.

Examples:
  levgame simulate --rounds 1000 --seed 42
  levgame simulate --rounds 500 --stop-loss 50 --report run.org --journal-db sim.sqlite`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

var (
	simRounds    int
	simOpenEvery int
	simStopLoss  float64
	simSeed      uint64
	simReport    string
	simJournalDB string
)

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().IntVarP(&simRounds, "rounds", "n", 1000, "tick rounds over every asset")
	simulateCmd.Flags().IntVar(&simOpenEvery, "open-every", 10, "open a position every N rounds (0 never)")
	simulateCmd.Flags().Float64Var(&simStopLoss, "stop-loss", 0, "stop-loss percent for simulated trades (0 none)")
	simulateCmd.Flags().Uint64Var(&simSeed, "seed", 0, "random seed (0 uses market.seed, then a random one)")
	simulateCmd.Flags().StringVarP(&simReport, "report", "o", "", "write an Org-mode report here")
	simulateCmd.Flags().StringVar(&simJournalDB, "journal-db", "", "journal simulated trades into this SQLite file")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simSeed != 0 {
		cfg.Market.Seed = simSeed
	}
	if cfg.Market.Seed == 0 {
		cfg.Market.Seed = uint64(time.Now().UnixNano())
	}

	var j journal.Journal = journal.Nop{}
	if simJournalDB != "" {
		sj, err := journal.NewSQLite(simJournalDB)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer sj.Close()
		j = sj
	}

	res, err := game.Simulate(cmd.Context(), cfg, game.SimOptions{
		Rounds:    simRounds,
		OpenEvery: simOpenEvery,
		StopLoss:  simStopLoss,
	}, j, log)
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}

	trades := make([]journal.TradeRecord, 0, len(res.Trades))
	for _, h := range res.Trades {
		trades = append(trades, h.TradeRecord())
	}
	report := journal.NewSimulationReport(id.New(), cfg.Market.Seed, cfg.Catalog().Symbols(), res.Rounds,
		res.StartBalance, res.EndBalance, trades)
	report.Start, report.End = res.Start, res.End
	report.Notes = append(report.Notes,
		fmt.Sprintf("%d market events, %d rejected opens", res.Events, res.Rejected))

	out := cmd.OutOrStdout()
	st := report.Stats
	fmt.Fprintf(out, "Simulated %d rounds (seed %d)\n", res.Rounds, cfg.Market.Seed)
	fmt.Fprintf(out, "  Balance: %s -> %s (%s)\n", present.Money(res.StartBalance), present.Money(res.EndBalance), present.Percent(report.ReturnPct))
	fmt.Fprintf(out, "  Trades: %d (wins %d, losses %d, stop-loss %d, liquidated %d)\n",
		st.Trades, st.Wins, st.Losses, st.StopLosses, st.Liquidations)
	fmt.Fprintf(out, "  Events: %d\n", res.Events)

	if simReport != "" {
		if err := report.WriteOrgFile(simReport); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(out, "✓ Report written: %s\n", simReport)
	}
	return nil
}
