package overlap

import (
	"sort"
	"strings"

	"github.com/aristath/fundoverlap/internal/domain"
)

// AggregatedSecurity is one security merged across the selected funds.
// It only lives for the duration of a single analysis.
type AggregatedSecurity struct {
	Key            string              // matching key (normalized name, or ticker in ticker mode)
	SecurityName   string              // display name as first observed
	Sector         string              // first non-empty sector observed wins
	FundsHoldingIt map[string]struct{} // fund IDs holding this security
	WeightsByFund  map[string]float64  // fund ID -> weight percent
}

// FundCount returns the number of funds holding the security
func (s *AggregatedSecurity) FundCount() int {
	return len(s.FundsHoldingIt)
}

// sortedFundIDs returns the holding fund IDs in ascending order so that any
// arithmetic over them is order-independent of map iteration
func (s *AggregatedSecurity) sortedFundIDs() []string {
	ids := make([]string, 0, len(s.FundsHoldingIt))
	for id := range s.FundsHoldingIt {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Aggregation is the per-security merge of several funds' holdings
type Aggregation struct {
	Mode       MatchMode
	Securities map[string]*AggregatedSecurity
}

// KeyFor returns the aggregation key of a holding under the aggregation's match mode
func (a *Aggregation) KeyFor(h domain.Holding) string {
	return matchKey(a.Mode, h)
}

// SortedKeys returns the aggregation keys in ascending order
func (a *Aggregation) SortedKeys() []string {
	keys := make([]string, 0, len(a.Securities))
	for k := range a.Securities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func matchKey(mode MatchMode, h domain.Holding) string {
	if mode == MatchByTicker {
		if ticker := domain.NormalizeTicker(h.Ticker); ticker != "" {
			return "ticker:" + ticker
		}
		return "name:" + domain.NormalizeSecurityName(h.SecurityName)
	}
	return domain.NormalizeSecurityName(h.SecurityName)
}

// Aggregate merges holdings lists into per-security entries keyed by the
// normalized security name (or ticker in MatchByTicker mode). Normalization
// trims, folds case and also collapses inner whitespace runs, so
// "HDFC  Bank Ltd" and "hdfc bank ltd" match. The inputs are not mutated.
// A fund listing the same security more than once contributes the sum of
// those weights.
func Aggregate(funds []domain.FundHoldings, mode MatchMode) (*Aggregation, error) {
	if len(funds) < MinFunds {
		return nil, InsufficientFundsError{Count: len(funds)}
	}
	if mode == "" {
		mode = MatchByName
	}

	agg := &Aggregation{
		Mode:       mode,
		Securities: make(map[string]*AggregatedSecurity),
	}

	for _, fund := range funds {
		for _, h := range fund.Holdings {
			key := matchKey(mode, h)

			entry, ok := agg.Securities[key]
			if !ok {
				entry = &AggregatedSecurity{
					Key:            key,
					SecurityName:   collapseSpaces(h.SecurityName),
					FundsHoldingIt: make(map[string]struct{}),
					WeightsByFund:  make(map[string]float64),
				}
				agg.Securities[key] = entry
			}

			entry.FundsHoldingIt[fund.FundID] = struct{}{}
			entry.WeightsByFund[fund.FundID] += h.WeightPercent
			if entry.Sector == "" {
				entry.Sector = collapseSpaces(h.Sector)
			}
		}
	}

	for _, entry := range agg.Securities {
		if entry.Sector == "" {
			entry.Sector = domain.UnknownSector
		}
	}

	return agg, nil
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
