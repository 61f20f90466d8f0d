package game

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rustyeddy/levgame/ledger"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrQuit           = errors.New("quit")
)

// Command is one parsed line of player input.
type Command struct {
	Name string
	Args []string
}

// canonical maps a short alias to its command name.
func canonical(name string) string {
	switch name {
	case "a", "coin":
		return "asset"
	case "x", "lev":
		return "leverage"
	case "amt", "$":
		return "amount"
	case "sl", "stoploss":
		return "stop"
	case "buy":
		return "long"
	case "sell":
		return "short"
	case "c":
		return "close"
	case "hist", "rank", "ranking":
		return "history"
	case "s", "ls":
		return "status"
	case "q", "exit":
		return "quit"
	case "?":
		return "help"
	}
	return name
}

// argRange is how many arguments a command takes.
func argRange(name string) (lo, hi int, ok bool) {
	switch name {
	case "asset", "leverage", "amount", "stop":
		return 1, 1, true
	case "close":
		return 0, 1, true
	case "long", "short", "restore", "reset", "history", "status", "help", "quit":
		return 0, 0, true
	}
	return 0, 0, false
}

// ParseCommand splits a line into a command name and arguments.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty", ErrUnknownCommand)
	}
	name := canonical(strings.ToLower(fields[0]))

	lo, hi, ok := argRange(name)
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}
	args := fields[1:]
	if len(args) < lo || len(args) > hi {
		return Command{}, fmt.Errorf("%s: wrong number of arguments", name)
	}
	return Command{Name: name, Args: args}, nil
}

// Help lists the commands Exec understands.
const Help = `asset <SYM>      select asset (a)
leverage <N>     select leverage (x)
amount <N>       select amount ($)
stop <PCT>|off   set or clear stop-loss percent (sl)
long | short     open a position (buy, sell)
close [ID]       close latest on the asset, or by id (c)
restore          restore the starting balance
reset            wipe all progress
history          closed trades and ranking (hist)
status           redraw (s)
quit             save and exit (q)`

// Exec runs one parsed command. It returns ErrQuit for quit.
func (s *Session) Exec(ctx context.Context, cmd Command) error {
	arg := func() string {
		if len(cmd.Args) == 0 {
			return ""
		}
		return cmd.Args[0]
	}

	switch cmd.Name {
	case "asset":
		return s.SelectAsset(ctx, strings.ToUpper(arg()))
	case "leverage":
		n, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(arg()), "x"))
		if err != nil {
			return s.rejectAsync(ctx, "select leverage", fmt.Errorf("%w: %q", ErrLeverageNotOffered, arg()))
		}
		return s.SelectLeverage(ctx, n)
	case "amount":
		v, err := strconv.ParseFloat(strings.TrimPrefix(arg(), "$"), 64)
		if err != nil {
			return s.rejectAsync(ctx, "select amount", fmt.Errorf("%w: %q", ledger.ErrInvalidAmount, arg()))
		}
		return s.SelectAmount(ctx, v)
	case "stop":
		switch strings.ToLower(arg()) {
		case "off", "none", "0":
			return s.SetStopLoss(ctx, nil)
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(arg(), "%"), 64)
		if err != nil {
			return s.rejectAsync(ctx, "set stop-loss", fmt.Errorf("%w: %q", ledger.ErrInvalidStopLoss, arg()))
		}
		return s.SetStopLoss(ctx, &v)
	case "long", "short":
		dir, _ := ledger.ParseDirection(cmd.Name)
		_, err := s.Open(ctx, dir)
		return err
	case "close":
		if id := arg(); id != "" {
			_, err := s.ClosePosition(ctx, id)
			return err
		}
		_, err := s.CloseLatest(ctx)
		return err
	case "restore":
		return s.RestoreBalance(ctx)
	case "reset":
		return s.Reset(ctx)
	case "history":
		return s.ShowHistory(ctx)
	case "status", "help":
		return s.Refresh(ctx)
	case "quit":
		return ErrQuit
	}
	return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Name)
}

func (s *Session) rejectAsync(ctx context.Context, action string, err error) error {
	_ = s.Do(ctx, func(context.Context) error { return s.reject(action, err) })
	return err
}
