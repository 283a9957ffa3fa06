package planner

// Aggregate rolls a table up into the station-level view. Tonnage and
// revenue are plain sums. Average yield is the arithmetic mean over
// rows with yield > 0 — zeroed rows are excluded from the average, not
// counted as zero contributions — or 0 when no such row exists.
func Aggregate(t Table) Summary {
	var s Summary
	var yieldSum float64
	var yieldCount int

	for _, r := range t.Rows {
		s.TotalTonnage += r.Tonnage
		s.TotalRevenue += r.Revenue
		if r.Yield > 0 {
			yieldSum += r.Yield
			yieldCount++
		}
	}

	if yieldCount > 0 {
		s.AvgYield = yieldSum / float64(yieldCount)
	}
	return s
}
