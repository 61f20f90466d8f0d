package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/levgame/game"
	"github.com/rustyeddy/levgame/present"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show closed trades and the ranking",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var rankingCmd = &cobra.Command{
	Use:   "ranking",
	Short: "Show the balance ranking",
	Args:  cobra.NoArgs,
	RunE:  runRanking,
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the balance to the starting balance",
	Long: `Put the balance back to account.starting_balance. Open positions and
history are kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *game.Session) error {
			return s.RestoreBalance(ctx)
		})
	},
}

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all progress and start over",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes {
			return errors.New("reset deletes balance, positions and history; rerun with --yes")
		}
		return withSession(cmd, func(ctx context.Context, s *game.Session) error {
			return s.Reset(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(historyCmd, rankingCmd, restoreCmd, resetCmd)
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "confirm the reset")
}

func runHistory(cmd *cobra.Command, args []string) error {
	gw, err := openGateway(cmd.Context())
	if err != nil {
		return err
	}
	defer gw.Close()

	doc, err := gw.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if doc == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "no saved game yet")
		return nil
	}
	present.NewTerminal(cmd.OutOrStdout()).HistoryShown(doc.History, doc.Ranking, doc.UserData.UserID)
	return nil
}

func runRanking(cmd *cobra.Command, args []string) error {
	gw, err := openGateway(cmd.Context())
	if err != nil {
		return err
	}
	defer gw.Close()

	doc, err := gw.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if doc == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "no saved game yet")
		return nil
	}
	for i, r := range doc.Ranking {
		mark := ""
		if r.ID == doc.UserData.UserID {
			mark = " (you)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s%s %s\n", i+1, r.ID, mark, present.Money(r.Balance))
	}
	return nil
}

// withSession runs fn against a started session and saves on the way out.
func withSession(cmd *cobra.Command, fn func(context.Context, *game.Session) error) error {
	ctx := cmd.Context()
	gw, err := openGateway(ctx)
	if err != nil {
		return err
	}
	defer gw.Close()

	j, err := openJournal()
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	s, err := game.New(game.Deps{Config: cfg, Log: log, Gateway: gw, Journal: j})
	if err != nil {
		return err
	}
	if err := s.Init(ctx); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	ferr := fn(ctx, s)
	s.Stop()
	if err := <-done; err != nil {
		return err
	}
	if ferr != nil {
		return ferr
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ done")
	return nil
}
