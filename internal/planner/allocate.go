package planner

// Allocate redistributes a week's targets across agents in proportion
// to each agent's historical share of tonnage and revenue. A row is
// valid when tonnage, yield and revenue are all strictly positive; each
// valid row's weight is the mean of its tonnage share and revenue share
// over the valid rows, so weights sum to 1 and the allocated columns
// sum to the targets up to Normalize's rounding. Per-row yield is
// back-computed from the allocated tonnage/revenue pair, which keeps
// the revenue invariant without disturbing the allocated totals.
//
// If any target is not strictly positive, or the valid rows' tonnage or
// revenue sums to zero, the input table is returned unchanged together
// with a table-level diagnostic — a no-op, not an error. When no row is
// valid, every row receives an equal split of the targets regardless of
// its original figures (the fallback deliberately ignores invalid rows'
// data even as a weighting hint). The result is always normalized.
func Allocate(t Table, targets Targets) (Table, []Diagnostic) {
	if !targets.Positive() {
		return t, []Diagnostic{{Index: -1, Reason: ReasonTargetsNotPositive}}
	}

	out := t.Clone()
	n := len(out.Rows)
	if n == 0 {
		return out, nil
	}

	valid := make([]bool, n)
	anyValid := false
	var totalTonnage, totalRevenue float64
	for i, r := range out.Rows {
		if r.Tonnage > 0 && r.Yield > 0 && r.Revenue > 0 {
			valid[i] = true
			anyValid = true
			totalTonnage += r.Tonnage
			totalRevenue += r.Revenue
		}
	}

	var diags []Diagnostic

	if !anyValid {
		diags = append(diags, Diagnostic{Index: -1, Reason: ReasonEqualSplit})
		share := 1 / float64(n)
		for i := range out.Rows {
			out.Rows[i].Tonnage = targets.Tonnage * share
			out.Rows[i].Yield = targets.AvgYield
			out.Rows[i].Revenue = targets.Revenue * share
		}
		norm, nd := Normalize(out)
		return norm, append(diags, nd...)
	}

	if totalTonnage == 0 || totalRevenue == 0 {
		return t, []Diagnostic{{Index: -1, Reason: ReasonDegenerateWeights}}
	}

	for i := range out.Rows {
		r := &out.Rows[i]
		if !valid[i] {
			// No prior activity: excluded from the new allocation
			// rather than guessed at.
			r.Tonnage, r.Yield, r.Revenue = 0, 0, 0
			diags = append(diags, Diagnostic{Index: i, Agent: r.Agent, Reason: ReasonRowExcluded})
			continue
		}

		weight := (r.Tonnage/totalTonnage + r.Revenue/totalRevenue) / 2
		tonnage := targets.Tonnage * weight
		revenue := targets.Revenue * weight
		yield := targets.AvgYield
		if tonnage > 0 {
			yield = revenue / tonnage
		}
		r.Tonnage, r.Revenue, r.Yield = tonnage, revenue, yield
	}

	norm, nd := Normalize(out)
	return norm, append(diags, nd...)
}
