package planner

import "math"

// Normalize cleans every row and enforces the core invariant: after the
// pass, each row satisfies revenue == round(tonnage × yield, 2) with
// tonnage rounded to whole kg and yield to 2 decimals, or is exactly
// (0, 0, 0). A row whose tonnage or yield rounds to zero cannot carry
// revenue, so all three of its fields are zeroed (all-or-nothing rule).
// Revenue is always derived from the rounded pair, never trusted from
// input. Normalize is idempotent and preserves row count and order.
func Normalize(t Table) (Table, []Diagnostic) {
	out := t.Clone()
	var diags []Diagnostic

	for i := range out.Rows {
		r := &out.Rows[i]

		tonnage, c1 := coerce(r.Tonnage)
		yield, c2 := coerce(r.Yield)
		revenue, c3 := coerce(r.Revenue)
		if c1 || c2 || c3 {
			diags = append(diags, Diagnostic{Index: i, Agent: r.Agent, Reason: ReasonValueCoerced})
		}

		if tonnage < 0 || yield < 0 || revenue < 0 {
			diags = append(diags, Diagnostic{Index: i, Agent: r.Agent, Reason: ReasonNegativeClamped})
			tonnage = math.Max(tonnage, 0)
			yield = math.Max(yield, 0)
			revenue = math.Max(revenue, 0)
		}

		// Round before the zero check: a tonnage that rounds to 0 kg
		// must zero the row too, otherwise a second pass would change
		// the result.
		tonnage = math.Round(tonnage)
		yield = round2(yield)

		if tonnage == 0 || yield == 0 {
			if tonnage != 0 || yield != 0 || revenue != 0 {
				diags = append(diags, Diagnostic{Index: i, Agent: r.Agent, Reason: ReasonRowZeroed})
			}
			r.Tonnage, r.Yield, r.Revenue = 0, 0, 0
			continue
		}

		r.Tonnage = tonnage
		r.Yield = yield
		r.Revenue = round2(tonnage * yield)
	}

	return out, diags
}

// coerce maps NaN and ±Inf to 0 so a malformed row cannot poison the
// arithmetic of the rest of the table.
func coerce(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, true
	}
	return v, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
