// Package domain holds the fund holdings types shared between the resolver
// and the overlap engine.
package domain

import "strings"

// UnknownSector is the sector assigned when a holding has no classification
const UnknownSector = "Other"

// Holding is one weighted position in a fund's portfolio
type Holding struct {
	SecurityName  string  `json:"security_name" msgpack:"n"`
	Ticker        string  `json:"ticker,omitempty" msgpack:"t,omitempty"` // display only, never used for default matching
	WeightPercent float64 `json:"weight_percent" msgpack:"w"`             // 0 < weight <= 100
	Sector        string  `json:"sector" msgpack:"s"`
}

// HoldingsSource records whether a holdings list is real data or a synthetic approximation
type HoldingsSource string

const (
	SourceResolved HoldingsSource = "RESOLVED"
	SourceFallback HoldingsSource = "FALLBACK"
)

// FundHoldings is the weighted holdings list of one fund.
// Weights are not required to sum to 100; lists may be partial (e.g. top-10 only).
type FundHoldings struct {
	FundID   string         `json:"fund_id"`
	Holdings []Holding      `json:"holdings"`
	Source   HoldingsSource `json:"source"`
}

// IsFallback reports whether the holdings were synthesized
func (f FundHoldings) IsFallback() bool {
	return f.Source == SourceFallback
}

// NormalizeSecurityName produces the matching key for a security display name:
// surrounding whitespace trimmed, inner whitespace runs collapsed, case folded.
func NormalizeSecurityName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// NormalizeTicker produces the matching key for a ticker symbol
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
