package session

import (
	"github.com/skycargo/targetplanner/internal/planner"
)

// State is one user's dashboard: the loaded station, the selected week
// and currency, the current-performance rollup, and the recommendations
// table when one has been generated. Weekly tables are keyed by week;
// targets are kept in AED as loaded.
type State struct {
	Station   string
	Currency  string
	Week      int
	WeekOrder []int
	Targets   map[int]planner.Targets
	Weeks     map[int]planner.Table

	Current planner.Summary

	Recommendations     *planner.Table
	ShowRecommendations bool
}

// SetStation replaces the loaded station data and resets everything
// derived from it. The first week in order becomes the selection.
func (st *State) SetStation(name string, targets map[int]planner.Targets, weeks map[int]planner.Table, order []int) {
	st.Station = name
	st.Targets = targets
	st.Weeks = weeks
	st.WeekOrder = order
	st.Week = 0
	if len(order) > 0 {
		st.Week = order[0]
	}
	st.resetDerived()
}

// SelectWeek switches the dashboard to a loaded week. The current
// performance and any recommendations belong to the old week, so both
// are discarded.
func (st *State) SelectWeek(week int) bool {
	if _, ok := st.Targets[week]; !ok {
		return false
	}
	st.Week = week
	st.resetDerived()
	return true
}

func (st *State) resetDerived() {
	st.Current = planner.Summary{}
	st.Recommendations = nil
	st.ShowRecommendations = false
}

// WeekTargets returns the selected week's targets in AED.
func (st *State) WeekTargets() (planner.Targets, bool) {
	t, ok := st.Targets[st.Week]
	return t, ok
}

// WeekTable returns the selected week's performance rows.
func (st *State) WeekTable() (planner.Table, bool) {
	t, ok := st.Weeks[st.Week]
	return t, ok
}

// ActiveTable is the table the dashboard is showing: recommendations
// when generated, otherwise the week's performance rows.
func (st *State) ActiveTable() (planner.Table, bool) {
	if st.ShowRecommendations && st.Recommendations != nil {
		return *st.Recommendations, true
	}
	return st.WeekTable()
}

// ReplaceActive swaps in edited rows for the active table. Row order is
// the table's identity, so the rows land as given.
func (st *State) ReplaceActive(rows []planner.Row) bool {
	if st.ShowRecommendations && st.Recommendations != nil {
		st.Recommendations.Rows = rows
		return true
	}
	tbl, ok := st.Weeks[st.Week]
	if !ok {
		return false
	}
	tbl.Rows = rows
	st.Weeks[st.Week] = tbl
	return true
}

// Recommend allocates the given targets over the selected week's
// performance rows (never over earlier recommendations) and shows the
// result.
func (st *State) Recommend(targets planner.Targets) ([]planner.Diagnostic, bool) {
	tbl, ok := st.WeekTable()
	if !ok || len(tbl.Rows) == 0 {
		return nil, false
	}
	rec, diags := planner.Allocate(tbl, targets)
	st.Recommendations = &rec
	st.ShowRecommendations = true
	return diags, true
}

// Adjust normalizes the active table in place.
func (st *State) Adjust() ([]planner.Diagnostic, bool) {
	tbl, ok := st.ActiveTable()
	if !ok {
		return nil, false
	}
	clean, diags := planner.Normalize(tbl)
	st.ReplaceActive(clean.Rows)
	return diags, true
}

// Apply rolls the active table up into current performance.
func (st *State) Apply() bool {
	tbl, ok := st.ActiveTable()
	if !ok {
		return false
	}
	st.Current = planner.Aggregate(tbl)
	return true
}

// Reset zeroes current performance.
func (st *State) Reset() {
	st.Current = planner.Summary{}
}

// Back hides the recommendations view without discarding it.
func (st *State) Back() {
	st.ShowRecommendations = false
}
