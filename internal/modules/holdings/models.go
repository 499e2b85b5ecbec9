// Package holdings owns the fund catalog and resolves the current weighted
// holdings of a fund, substituting category fallback data when no usable
// source exists.
package holdings

import (
	"time"

	"github.com/aristath/fundoverlap/internal/domain"
)

// Fund is a catalog entry
type Fund struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`             // e.g. "Large Cap", "Mid Cap", "Flexi Cap"
	ETFSymbol string    `json:"etf_symbol,omitempty"` // set when holdings can be fetched from an ETF profile
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot sources recorded with each stored holdings list
const (
	SnapshotSourceManual       = "manual"
	SnapshotSourceAlphaVantage = "alphavantage"
)

// Snapshot is the latest stored holdings list of a fund
type Snapshot struct {
	FundID   string           `json:"fund_id"`
	Holdings []domain.Holding `json:"holdings"`
	Source   string           `json:"source"`
	AsOf     time.Time        `json:"as_of"`
}
