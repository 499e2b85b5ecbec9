package overlap

// BuildSectorAllocation sums each fund's weights per sector. Securities of
// the same sector accumulate within a fund; funds without exposure to a
// sector are left out of that sector's map rather than zero-filled.
func BuildSectorAllocation(agg *Aggregation) SectorAllocation {
	allocation := make(SectorAllocation)

	// Sorted traversal keeps float accumulation order stable across runs
	for _, key := range agg.SortedKeys() {
		sec := agg.Securities[key]

		byFund, ok := allocation[sec.Sector]
		if !ok {
			byFund = make(map[string]float64)
			allocation[sec.Sector] = byFund
		}

		for _, fundID := range sec.sortedFundIDs() {
			byFund[fundID] += sec.WeightsByFund[fundID]
		}
	}

	return allocation
}
