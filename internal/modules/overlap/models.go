// Package overlap measures how much the underlying stock holdings of a
// selection of funds coincide, scores the resulting diversification and
// breaks down sector concentration across the selection.
package overlap

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Selection bounds for a single analysis
const (
	MinFunds = 2
	MaxFunds = 5
)

// MatchMode selects how holdings from different funds are identified as the same security
type MatchMode string

const (
	// MatchByName matches on the normalized display name (default)
	MatchByName MatchMode = "name"
	// MatchByTicker matches on the normalized ticker, falling back to the
	// normalized name for holdings that carry no ticker
	MatchByTicker MatchMode = "ticker"
)

// ParseMatchMode parses a match mode, treating the empty string as MatchByName
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchByName:
		return MatchByName, nil
	case MatchByTicker:
		return MatchByTicker, nil
	default:
		return "", fmt.Errorf("unknown match mode %q", s)
	}
}

// CommonHolding is a security held by two or more of the selected funds
type CommonHolding struct {
	SecurityName         string  `json:"security_name"`
	Sector               string  `json:"sector"`
	FundCount            int     `json:"fund_count"`
	AverageWeightPercent float64 `json:"average_weight_percent"` // mean over holding funds only
}

// UniqueHoldings describes the holdings only one fund of the selection owns
type UniqueHoldings struct {
	Count                 int     `json:"count"`
	PercentOfFundHoldings float64 `json:"percent_of_fund_holdings"`
}

// SectorAllocation maps sector -> fund ID -> summed weight percent.
// It is sparse: a fund with no holdings in a sector is absent from that
// sector's map. Absence means zero.
type SectorAllocation map[string]map[string]float64

// Weight returns the summed weight of a fund in a sector, zero when absent
func (sa SectorAllocation) Weight(sector, fundID string) float64 {
	return sa[sector][fundID]
}

// Sectors returns the sector names in ascending order
func (sa SectorAllocation) Sectors() []string {
	sectors := make([]string, 0, len(sa))
	for sector := range sa {
		sectors = append(sectors, sector)
	}
	sort.Strings(sectors)
	return sectors
}

// SectorRow is one dense row of a sector matrix
type SectorRow struct {
	Sector  string    `json:"sector"`
	Weights []float64 `json:"weights"` // aligned with the fund IDs the matrix was built for
	Total   float64   `json:"total"`
}

// Matrix returns a dense presentation view of the allocation: one row per
// sector (ascending), one column per fund in fundIDs order, zeros filled in.
func (sa SectorAllocation) Matrix(fundIDs []string) []SectorRow {
	rows := make([]SectorRow, 0, len(sa))
	for _, sector := range sa.Sectors() {
		weights := make([]float64, len(fundIDs))
		for i, fundID := range fundIDs {
			weights[i] = sa.Weight(sector, fundID)
		}
		rows = append(rows, SectorRow{
			Sector:  sector,
			Weights: weights,
			Total:   floats.Sum(weights),
		})
	}
	return rows
}

// OverlapReport is the result of one analysis. It is built fresh per request
// and never mutated after construction.
type OverlapReport struct {
	ID                   string                    `json:"id"`
	FundIDs              []string                  `json:"fund_ids"`
	MatchMode            MatchMode                 `json:"match_mode"`
	CommonHoldings       []CommonHolding           `json:"common_holdings"`
	OverlapPercent       float64                   `json:"overlap_percent"`
	DiversificationScore float64                   `json:"diversification_score"`
	UniqueHoldingsByFund map[string]UniqueHoldings `json:"unique_holdings_by_fund"`
	SectorAllocation     SectorAllocation          `json:"sector_allocation"`
	FallbackFundIDs      []string                  `json:"fallback_fund_ids"` // sorted, no duplicates
	GeneratedAt          time.Time                 `json:"generated_at"`
}

// IsFallback reports whether the holdings of fundID were synthesized
func (r *OverlapReport) IsFallback(fundID string) bool {
	i := sort.SearchStrings(r.FallbackFundIDs, fundID)
	return i < len(r.FallbackFundIDs) && r.FallbackFundIDs[i] == fundID
}
