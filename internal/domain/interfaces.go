package domain

import "context"

// HoldingsResolver resolves the current weighted holdings of a fund.
// Implementations must never fail: on any error (not found, timeout,
// malformed data) they return a FALLBACK-tagged result instead.
type HoldingsResolver interface {
	Resolve(ctx context.Context, fundID string) FundHoldings
}

// FallbackHoldingsProvider supplies deterministic synthetic holdings for a
// fund category. It replaces real data when resolution fails.
type FallbackHoldingsProvider interface {
	FallbackHoldings(fundID, category string) []Holding
}
