package journal

import (
	"bytes"
	"io"
	"os"
	"text/template"
	"time"
)

// SimulationReport describes one headless run of the game loop.
type SimulationReport struct {
	RunID   string
	Created time.Time
	Seed    uint64
	Assets  []string
	Ticks   int

	Start time.Time
	End   time.Time

	StartBalance float64
	EndBalance   float64
	ReturnPct    float64

	Stats Stats

	Notes []string
}

// NewSimulationReport fills in the derived fields from the settled trades.
func NewSimulationReport(runID string, seed uint64, assets []string, ticks int, startBal, endBal float64, trades []TradeRecord) SimulationReport {
	r := SimulationReport{
		RunID:        runID,
		Created:      time.Now(),
		Seed:         seed,
		Assets:       assets,
		Ticks:        ticks,
		StartBalance: startBal,
		EndBalance:   endBal,
		Stats:        Summarize(trades),
	}
	if startBal > 0 {
		r.ReturnPct = (endBal - startBal) / startBal * 100
	}
	for _, t := range trades {
		if r.Start.IsZero() || t.OpenTime.Before(r.Start) {
			r.Start = t.OpenTime
		}
		if t.CloseTime.After(r.End) {
			r.End = t.CloseTime
		}
	}
	return r
}

var reportOrgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var reportTmpl = template.Must(template.New("simulation").Funcs(reportOrgFuncs).Parse(SimulationOrgTemplate))

// WriteOrg renders the report as an Org-mode document.
func (r SimulationReport) WriteOrg(w io.Writer) error {
	return reportTmpl.Execute(w, r)
}

// WriteOrgFile renders the report to path.
func (r SimulationReport) WriteOrgFile(path string) error {
	buf := new(bytes.Buffer)
	if err := r.WriteOrg(buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

const SimulationOrgTemplate = `* SIMULATION: {{range $i, $a := .Assets}}{{if $i}} {{end}}{{$a}}{{end}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:SEED:        {{.Seed}}
:TICKS:       {{.Ticks}}
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:NET_PL:      {{printf "%.2f" .Stats.NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:TRADES:      {{.Stats.Trades}}
:WINS:        {{.Stats.Wins}}
:LOSSES:      {{.Stats.Losses}}
:WIN_RATE:    {{printf "%.2f" (mul100 .Stats.WinRate)}}
:PROFIT_FAC:  {{if ne .Stats.ProfitFactor 0.0}}{{printf "%.2f" .Stats.ProfitFactor}}{{else}}(no losses){{end}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Net P/L:          *{{printf "%.2f" .Stats.NetPL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Win Rate:         *{{printf "%.2f" (mul100 .Stats.WinRate)}}%*

** Settlements
| Outcome      | Count |
|--------------+-------|
| Wins         | {{.Stats.Wins}} |
| Losses       | {{.Stats.Losses}} |
| Stop-loss    | {{.Stats.StopLosses}} |
| Liquidations | {{.Stats.Liquidations}} |
| Total        | {{.Stats.Trades}} |

{{- if .Notes }}
** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
