package api

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/skycargo/targetplanner/internal/planner"
	"github.com/skycargo/targetplanner/internal/session"
)

// Achievement bands for the gap-to-target boxes.
const (
	bandExcellent = "excellent" // ≥ 95% of target
	bandGood      = "good"      // ≥ 85%
	bandAttention = "attention"
)

// planView is the full dashboard payload for the selected station,
// week and currency.
type planView struct {
	Station  string `json:"station"`
	Week     int    `json:"week"`
	Weeks    []int  `json:"weeks"`
	Currency string `json:"currency"`
	Symbol   string `json:"symbol"`

	Targets metricsView `json:"targets"`
	Current metricsView `json:"current"`
	Gaps    []gapView   `json:"gaps"`
	Table   tableView   `json:"table"`
}

type metricsView struct {
	Tonnage metricView `json:"tonnage"`
	Yield   metricView `json:"yield"`
	Revenue metricView `json:"revenue"`
}

type metricView struct {
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

type gapView struct {
	Label   string  `json:"label"`
	Gap     float64 `json:"gap"`
	Percent float64 `json:"percent"`
	Band    string  `json:"band"`
	Display string  `json:"display"`
}

type tableView struct {
	Source string        `json:"source"` // "weekly" or "recommendations"
	Week   int           `json:"week"`
	Rows   []planner.Row `json:"rows"`
}

func (s *Server) buildPlanView(st *session.State) *planView {
	cur := s.cfg.Currency(st.Currency)
	targets, _ := st.WeekTargets()
	conv := s.convertTargets(targets, st.Currency)

	view := &planView{
		Station:  st.Station,
		Week:     st.Week,
		Weeks:    st.WeekOrder,
		Currency: st.Currency,
		Symbol:   cur.Symbol,
		Targets: metricsView{
			Tonnage: metricView{conv.Tonnage, fmtTonnage(conv.Tonnage)},
			Yield:   metricView{conv.AvgYield, fmtYield(cur.Symbol, conv.AvgYield)},
			Revenue: metricView{conv.Revenue, fmtRevenue(cur.Symbol, conv.Revenue)},
		},
		Current: metricsView{
			Tonnage: metricView{st.Current.TotalTonnage, fmtTonnage(st.Current.TotalTonnage)},
			Yield:   metricView{st.Current.AvgYield, fmtYield(cur.Symbol, st.Current.AvgYield)},
			Revenue: metricView{st.Current.TotalRevenue, fmtRevenue(cur.Symbol, st.Current.TotalRevenue)},
		},
		Gaps: []gapView{
			buildGap("Tonnage Gap", st.Current.TotalTonnage, conv.Tonnage,
				func(gap float64) string { return signedComma(gap, 0) + " kg" }),
			buildGap("Yield Gap", st.Current.AvgYield, conv.AvgYield,
				func(gap float64) string { return cur.Symbol + " " + signedComma(gap, 2) }),
			buildGap("Revenue Gap", st.Current.TotalRevenue, conv.Revenue,
				func(gap float64) string { return cur.Symbol + " " + signedComma(gap, 0) }),
		},
	}

	if tbl, ok := st.ActiveTable(); ok {
		source := "weekly"
		if st.ShowRecommendations && st.Recommendations != nil {
			source = "recommendations"
		}
		view.Table = tableView{Source: source, Week: tbl.Week, Rows: tbl.Rows}
	}

	return view
}

func buildGap(label string, current, target float64, fmtGap func(float64) string) gapView {
	gap := current - target
	percent := 0.0
	if target > 0 {
		percent = current / target * 100
	}

	band := bandAttention
	switch {
	case percent >= 95:
		band = bandExcellent
	case percent >= 85:
		band = bandGood
	}

	return gapView{
		Label:   label,
		Gap:     gap,
		Percent: percent,
		Band:    band,
		Display: fmt.Sprintf("%s (%.1f%%)", fmtGap(gap), percent),
	}
}

func fmtTonnage(v float64) string {
	return humanize.CommafWithDigits(v, 0) + " kg"
}

func fmtYield(symbol string, v float64) string {
	return fmt.Sprintf("%s %.2f / kg", symbol, v)
}

func fmtRevenue(symbol string, v float64) string {
	return symbol + " " + humanize.CommafWithDigits(v, 0)
}

// signedComma keeps the explicit plus sign the gap boxes use.
func signedComma(v float64, digits int) string {
	formatted := humanize.CommafWithDigits(v, digits)
	if v >= 0 {
		return "+" + formatted
	}
	return formatted
}
