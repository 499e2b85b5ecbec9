package overlap

import (
	"math"
	"sort"

	"github.com/aristath/fundoverlap/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Scores is the scoring half of an overlap report
type Scores struct {
	CommonHoldings       []CommonHolding
	OverlapPercent       float64
	DiversificationScore float64
	UniqueHoldingsByFund map[string]UniqueHoldings
}

// commonEntry pairs a common holding with its sort key
type commonEntry struct {
	holding CommonHolding
	name    string // normalized name, primary tie-breaker
	key     string // aggregation key, final tie-breaker
}

// Score turns an aggregation into overlap percent, diversification score and
// per-fund uniqueness. funds must be the lists the aggregation was built from.
func Score(agg *Aggregation, funds []domain.FundHoldings) Scores {
	common := commonHoldings(agg)

	averages := make([]float64, len(common))
	for i, c := range common {
		averages[i] = c.AverageWeightPercent
	}
	// Bounded: many large overlapping positions must not push past 100
	overlapPct := math.Min(100, floats.Sum(averages))

	return Scores{
		CommonHoldings:       common,
		OverlapPercent:       overlapPct,
		DiversificationScore: 100 - overlapPct,
		UniqueHoldingsByFund: uniqueHoldings(agg, funds),
	}
}

// commonHoldings returns the entries held by at least two funds, sorted by
// average weight descending, ties broken by normalized name ascending
func commonHoldings(agg *Aggregation) []CommonHolding {
	entries := make([]commonEntry, 0)
	for key, sec := range agg.Securities {
		if sec.FundCount() < 2 {
			continue
		}

		fundIDs := sec.sortedFundIDs()
		weights := make([]float64, len(fundIDs))
		for i, id := range fundIDs {
			weights[i] = sec.WeightsByFund[id]
		}

		entries = append(entries, commonEntry{
			holding: CommonHolding{
				SecurityName:         sec.SecurityName,
				Sector:               sec.Sector,
				FundCount:            len(fundIDs),
				AverageWeightPercent: stat.Mean(weights, nil),
			},
			name: domain.NormalizeSecurityName(sec.SecurityName),
			key:  key,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.holding.AverageWeightPercent != b.holding.AverageWeightPercent {
			return a.holding.AverageWeightPercent > b.holding.AverageWeightPercent
		}
		if a.name != b.name {
			return a.name < b.name
		}
		return a.key < b.key
	})

	result := make([]CommonHolding, len(entries))
	for i, e := range entries {
		result[i] = e.holding
	}
	return result
}

// uniqueHoldings counts, per fund, the securities no other selected fund owns.
// A security the fund lists more than once was merged into one aggregation
// entry and counts once, in the numerator and the denominator alike.
// A fund with no holdings has a uniqueness percent of 0.
func uniqueHoldings(agg *Aggregation, funds []domain.FundHoldings) map[string]UniqueHoldings {
	result := make(map[string]UniqueHoldings, len(funds))
	for _, fund := range funds {
		held := make(map[string]struct{}, len(fund.Holdings))
		unique := 0
		for _, h := range fund.Holdings {
			key := agg.KeyFor(h)
			if _, seen := held[key]; seen {
				continue
			}
			held[key] = struct{}{}
			if sec, ok := agg.Securities[key]; ok && sec.FundCount() == 1 {
				unique++
			}
		}

		var pct float64
		if len(held) > 0 {
			pct = float64(unique) / float64(len(held)) * 100
		}

		result[fund.FundID] = UniqueHoldings{
			Count:                 unique,
			PercentOfFundHoldings: pct,
		}
	}
	return result
}
