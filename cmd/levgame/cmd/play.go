package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/levgame/game"
	"github.com/rustyeddy/levgame/internal/logger"
	"github.com/rustyeddy/levgame/internal/metrics"
	"github.com/rustyeddy/levgame/present"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start an interactive trading session",
	Long: `Start the live market and read commands from stdin.

Type "help" for the command list. Progress is saved after every action,
every autosave interval, and on exit.

Example:
  levgame play -f levgame.yaml`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

var playLogFile string

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().StringVar(&playLogFile, "log-file", "levgame.log", "write logs here instead of the terminal; empty keeps stderr")
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if playLogFile != "" {
		l, closeLog, err := logger.ToFile(cfg.Log.Level, playLogFile)
		if err != nil {
			return fmt.Errorf("log file: %w", err)
		}
		defer closeLog()
		log = l
	}
	defer func() { _ = log.Sync() }()

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

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("metrics listener", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	out := cmd.OutOrStdout()
	s, err := game.New(game.Deps{
		Config:    cfg,
		Log:       log,
		Gateway:   gw,
		Journal:   j,
		Presenter: present.NewTerminal(out),
	})
	if err != nil {
		return err
	}
	if err := s.Init(ctx); err != nil {
		return err
	}

	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()
	s.Start()

	done := make(chan struct{})
	defer close(done)
	lines := readLines(done, cmd.InOrStdin())

	fmt.Fprintln(out, `levgame: type "help" for commands, "quit" to leave`)
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			c, err := game.ParseCommand(line)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			if c.Name == "help" {
				fmt.Fprintln(out, game.Help)
			}
			if err := s.Exec(ctx, c); errors.Is(err, game.ErrQuit) {
				break loop
			}
		}
	}

	s.Stop()
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Fprintln(out, "saved. bye")
	return nil
}

// readLines feeds r line by line until r ends or done is closed. The
// returned channel is closed when the reader goroutine exits.
func readLines(done <-chan struct{}, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}
