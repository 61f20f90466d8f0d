package present

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/rustyeddy/levgame/events"
	"github.com/rustyeddy/levgame/game"
	"github.com/rustyeddy/levgame/ledger"
)

// Terminal writes session output as styled lines.
type Terminal struct {
	mu sync.Mutex
	w  io.Writer

	header   lipgloss.Style
	subtle   lipgloss.Style
	positive lipgloss.Style
	negative lipgloss.Style
	alert    lipgloss.Style
	box      lipgloss.Style
}

var _ game.Presenter = (*Terminal)(nil)

func NewTerminal(w io.Writer) *Terminal {
	r := lipgloss.NewRenderer(w)
	return &Terminal{
		w:        w,
		header:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		subtle:   r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}),
		positive: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}),
		negative: r.NewStyle().Foreground(lipgloss.Color("#FF5F5F")),
		alert:    r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}),
		box:      r.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1),
	}
}

func (t *Terminal) signed(v float64, s string) string {
	if v < 0 {
		return t.negative.Render(s)
	}
	return t.positive.Render(s)
}

func (t *Terminal) println(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, s)
}

// PriceUpdated prints the selected asset only.
func (t *Terminal) PriceUpdated(v game.PriceView) {
	if !v.Selected {
		return
	}
	line := fmt.Sprintf("%s %s %s %s",
		t.header.Render(fmt.Sprintf("%-5s", v.Asset.Symbol)),
		Price(v.Price, v.Asset.Decimals),
		t.signed(v.Change, Percent(v.Change)),
		t.subtle.Render(Sparkline(v.History)))
	if v.Trend > 0 {
		arrow := "above"
		if v.Price < v.Trend {
			arrow = "below"
		}
		line += t.subtle.Render(fmt.Sprintf(" %s EMA %s", arrow, Price(v.Trend, v.Asset.Decimals)))
	}
	if n := len(v.Markers); n > 0 {
		line += t.subtle.Render(fmt.Sprintf(" [%d markers]", n))
	}
	t.println(line)
}

func (t *Terminal) PositionsUpdated(v game.PositionsView) {
	var b strings.Builder
	sel := v.Selection
	stop := "off"
	if sel.StopLoss != nil {
		stop = fmt.Sprintf("%g%%", *sel.StopLoss)
	}
	fmt.Fprintf(&b, "Balance %s   Ticket %s x%d %s stop %s\n",
		Money(v.Balance), sel.Asset, sel.Leverage, Money(sel.Amount), stop)

	if len(v.Rows) == 0 {
		b.WriteString(t.subtle.Render("no open positions"))
		t.println(t.box.Render(b.String()))
		return
	}
	for _, r := range v.Rows {
		fmt.Fprintf(&b, "%s %-4s %-5s x%-3d %s  entry %s  now %s  %s (%s)\n",
			r.ID, r.Asset, strings.ToUpper(string(r.Direction)), r.Leverage, Money(r.Amount),
			Price(r.EntryPrice, r.Decimals), Price(r.CurrentPrice, r.Decimals),
			t.signed(r.PnL, Money(r.PnL)), t.signed(r.ROE, Percent(r.ROE)))
		risk := "liq " + Price(r.Liquidation, r.Decimals)
		if r.StopLoss != nil {
			risk = fmt.Sprintf("stop %s @ %s  %s", Percent(-*r.StopLoss), Price(r.StopPrice, r.Decimals), risk)
		}
		fmt.Fprintf(&b, "    %s\n", t.subtle.Render(risk))
	}
	s := v.Summary
	fmt.Fprintf(&b, "Total P&L %s  Invested %s  ROE %s",
		t.signed(s.TotalPnL, Money(s.TotalPnL)), Money(s.TotalInvested), t.signed(s.TotalROE, Percent(s.TotalROE)))
	t.println(t.box.Render(b.String()))
}

func (t *Terminal) Settled(h ledger.HistoryEntry) {
	label := "Position closed"
	switch h.Reason {
	case ledger.ReasonStopLoss:
		label = "Stop-loss hit"
	case ledger.ReasonLiquidation:
		label = "LIQUIDATED"
	}
	t.println(fmt.Sprintf("%s %s %s x%d  P&L %s (ROE %s)",
		t.alert.Render(label), h.Asset, strings.ToUpper(string(h.Direction)), h.Leverage,
		t.signed(h.PnL, Money(h.PnL)), t.signed(h.ROE, Percent(h.ROE))))
}

func (t *Terminal) EventActivated(a events.Activation) {
	style := t.positive
	if a.Event.Kind == events.Negative {
		style = t.negative
	}
	t.println(fmt.Sprintf("%s %s: %s", style.Render("NEWS"), a.Event.Title, a.Event.Description))
}

func (t *Terminal) HistoryShown(history []ledger.HistoryEntry, ranking ledger.Ranking, me string) {
	var b strings.Builder
	b.WriteString(t.header.Render("History") + "\n")
	if len(history) == 0 {
		b.WriteString(t.subtle.Render("no closed trades") + "\n")
	}
	for _, h := range history {
		fmt.Fprintf(&b, "%s %-4s %-5s x%-3d %s -> %s  %s (%s) %s\n",
			h.CloseTime.Local().Format("01-02 15:04:05"), h.Asset, strings.ToUpper(string(h.Direction)), h.Leverage,
			Plain(h.EntryPrice), Plain(h.ExitPrice),
			t.signed(h.PnL, Money(h.PnL)), t.signed(h.ROE, Percent(h.ROE)), h.Reason)
	}
	b.WriteString(t.header.Render("Ranking"))
	for i, r := range ranking {
		name := r.ID
		if r.ID == me {
			name = t.alert.Render(r.ID + " (you)")
		}
		fmt.Fprintf(&b, "\n%2d. %s %s", i+1, name, Money(r.Balance))
	}
	t.println(t.box.Render(b.String()))
}

func (t *Terminal) Rejected(action string, err error) {
	t.println(t.negative.Render(fmt.Sprintf("%s: %v", action, err)))
}
