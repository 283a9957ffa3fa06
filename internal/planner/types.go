// Package planner is the weekly target planning core: row normalization
// enforcing revenue = tonnage × yield, proportional redistribution of
// station targets across agents, and table aggregation.
package planner

// Row holds one agent's figures for a week. Tonnage is in kg, Yield is
// currency per kg, Revenue is currency. Tables carry no stable agent
// key — a row's identity is its position.
type Row struct {
	Agent   string  `json:"agent"`
	Tonnage float64 `json:"tonnage"`
	Yield   float64 `json:"yield"`
	Revenue float64 `json:"revenue"`
}

// Table is the ordered set of agent rows for one week. Normalize and
// Allocate return tables of the same length and order.
type Table struct {
	Week int   `json:"week"`
	Rows []Row `json:"rows"`
}

// Clone returns a deep copy so transforms never alias the caller's rows.
func (t Table) Clone() Table {
	out := Table{Week: t.Week, Rows: make([]Row, len(t.Rows))}
	copy(out.Rows, t.Rows)
	return out
}

// Targets are the station-level goals for one week. All three must be
// strictly positive for allocation to run.
type Targets struct {
	Tonnage  float64 `json:"tonnage"`
	Revenue  float64 `json:"revenue"`
	AvgYield float64 `json:"avg_yield"`
}

// Positive reports whether every target is strictly positive.
func (g Targets) Positive() bool {
	return g.Tonnage > 0 && g.Revenue > 0 && g.AvgYield > 0
}

// Summary is the table-level rollup consumed by the dashboard.
type Summary struct {
	TotalTonnage float64 `json:"total_tonnage"`
	TotalRevenue float64 `json:"total_revenue"`
	AvgYield     float64 `json:"avg_yield"`
}

// Reason classifies a recovery the core applied instead of failing.
type Reason string

const (
	// ReasonValueCoerced — a NaN or infinite field was coerced to 0.
	ReasonValueCoerced Reason = "value_coerced"
	// ReasonNegativeClamped — a negative field was clamped to 0.
	ReasonNegativeClamped Reason = "negative_clamped"
	// ReasonRowZeroed — the all-or-nothing rule zeroed the row.
	ReasonRowZeroed Reason = "row_zeroed"
	// ReasonRowExcluded — the row had no valid history and received no
	// share of the allocation.
	ReasonRowExcluded Reason = "row_excluded"
	// ReasonTargetsNotPositive — allocation was a no-op because a
	// target was zero or negative.
	ReasonTargetsNotPositive Reason = "targets_not_positive"
	// ReasonDegenerateWeights — allocation was a no-op because the
	// weight base summed to zero.
	ReasonDegenerateWeights Reason = "degenerate_weights"
	// ReasonEqualSplit — no row had valid history, so targets were
	// split equally across all rows.
	ReasonEqualSplit Reason = "equal_split_fallback"
)

// Diagnostic reports one recovery so callers can surface which rows
// were altered without any code path aborting the table. Index is the
// row's position, or -1 for table-level conditions.
type Diagnostic struct {
	Index  int    `json:"index"`
	Agent  string `json:"agent,omitempty"`
	Reason Reason `json:"reason"`
}
