package holdings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/fundoverlap/internal/clients/alphavantage"
	"github.com/aristath/fundoverlap/internal/domain"
	"github.com/rs/zerolog"
)

var (
	ErrFundNotFound      = errors.New("fund not found in catalog")
	ErrNoHoldingsSource  = errors.New("no holdings snapshot and no ETF source")
	ErrMalformedHoldings = errors.New("malformed holdings payload")
)

// ETFProfileSource fetches ETF constituent data
type ETFProfileSource interface {
	GetETFProfile(ctx context.Context, symbol string) (*alphavantage.ETFProfile, error)
}

// Resolver implements domain.HoldingsResolver on top of the catalog.
// Lookup order: stored snapshot, then the fund's ETF profile. Anything that
// goes wrong yields the category fallback list.
type Resolver struct {
	repo     *Repository
	etf      ETFProfileSource // nil disables remote lookups
	fallback domain.FallbackHoldingsProvider
	now      func() time.Time
	log      zerolog.Logger
}

// NewResolver creates a new holdings resolver. etf may be nil.
func NewResolver(repo *Repository, etf ETFProfileSource, fallback domain.FallbackHoldingsProvider, log zerolog.Logger) *Resolver {
	return &Resolver{
		repo:     repo,
		etf:      etf,
		fallback: fallback,
		now:      time.Now,
		log:      log.With().Str("component", "holdings_resolver").Logger(),
	}
}

// Resolve returns the holdings of a fund. It never fails.
func (r *Resolver) Resolve(ctx context.Context, fundID string) domain.FundHoldings {
	fund, err := r.repo.GetFund(fundID)
	if err == nil && fund == nil {
		err = ErrFundNotFound
	}

	var holdings []domain.Holding
	if err == nil {
		holdings, err = r.resolveFund(ctx, fund)
	}

	if err != nil {
		category := ""
		if fund != nil {
			category = fund.Category
		}
		r.log.Warn().
			Err(err).
			Str("fund_id", fundID).
			Str("category", category).
			Msg("Holdings resolution failed, using category fallback")

		return domain.FundHoldings{
			FundID:   fundID,
			Holdings: r.fallbackHoldings(fundID, category),
			Source:   domain.SourceFallback,
		}
	}

	return domain.FundHoldings{
		FundID:   fundID,
		Holdings: holdings,
		Source:   domain.SourceResolved,
	}
}

func (r *Resolver) resolveFund(ctx context.Context, fund *Fund) ([]domain.Holding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapshot, err := r.repo.GetHoldings(fund.ID)
	if err != nil {
		return nil, err
	}
	if snapshot != nil && len(snapshot.Holdings) > 0 {
		return ValidateHoldings(snapshot.Holdings)
	}

	if fund.ETFSymbol == "" || r.etf == nil {
		return nil, ErrNoHoldingsSource
	}

	return r.FetchETFHoldings(ctx, fund)
}

// FetchETFHoldings pulls a fund's ETF profile, converts and validates it,
// and stores the result as the fund's snapshot
func (r *Resolver) FetchETFHoldings(ctx context.Context, fund *Fund) ([]domain.Holding, error) {
	if r.etf == nil {
		return nil, ErrNoHoldingsSource
	}
	if fund.ETFSymbol == "" {
		return nil, fmt.Errorf("fund %s has no ETF symbol: %w", fund.ID, ErrNoHoldingsSource)
	}

	profile, err := r.etf.GetETFProfile(ctx, fund.ETFSymbol)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ETF profile %s: %w", fund.ETFSymbol, err)
	}

	holdings, err := ValidateHoldings(r.convertProfile(profile))
	if err != nil {
		return nil, fmt.Errorf("ETF profile %s: %w", fund.ETFSymbol, err)
	}

	if err := r.repo.SaveHoldings(fund.ID, holdings, SnapshotSourceAlphaVantage, r.now()); err != nil {
		// The data is still good for this analysis
		r.log.Warn().Err(err).Str("fund_id", fund.ID).Msg("Failed to store holdings snapshot")
	}

	return holdings, nil
}

// convertProfile maps ETF constituents to holdings. Zero-weight lines such
// as cash placeholders are dropped. Sectors come from the catalog.
func (r *Resolver) convertProfile(profile *alphavantage.ETFProfile) []domain.Holding {
	tickers := make([]string, 0, len(profile.Holdings))
	for _, h := range profile.Holdings {
		if h.Symbol != "" {
			tickers = append(tickers, h.Symbol)
		}
	}

	sectors, err := r.repo.SectorsForTickers(tickers)
	if err != nil {
		r.log.Warn().Err(err).Str("symbol", profile.Symbol).Msg("Failed to look up sectors")
		sectors = map[string]string{}
	}

	holdings := make([]domain.Holding, 0, len(profile.Holdings))
	for _, h := range profile.Holdings {
		if h.WeightPercent <= 0 {
			continue
		}
		name := h.Description
		if strings.TrimSpace(name) == "" {
			name = h.Symbol
		}
		holdings = append(holdings, domain.Holding{
			SecurityName:  name,
			Ticker:        h.Symbol,
			WeightPercent: h.WeightPercent,
			Sector:        sectors[domain.NormalizeTicker(h.Symbol)],
		})
	}
	return holdings
}

// ValidateHoldings returns a cleaned copy of holdings: names and tickers
// trimmed, blank sectors set to domain.UnknownSector. An empty list, a blank
// name or a weight outside (0, 100] makes the whole list malformed.
func ValidateHoldings(holdings []domain.Holding) ([]domain.Holding, error) {
	if len(holdings) == 0 {
		return nil, fmt.Errorf("%w: no holdings", ErrMalformedHoldings)
	}

	out := make([]domain.Holding, len(holdings))
	for i, h := range holdings {
		h.SecurityName = strings.TrimSpace(h.SecurityName)
		h.Ticker = strings.TrimSpace(h.Ticker)
		h.Sector = strings.TrimSpace(h.Sector)

		if h.SecurityName == "" {
			return nil, fmt.Errorf("%w: holding %d has no name", ErrMalformedHoldings, i)
		}
		if h.WeightPercent <= 0 || h.WeightPercent > 100 {
			return nil, fmt.Errorf("%w: %s has weight %.4f", ErrMalformedHoldings, h.SecurityName, h.WeightPercent)
		}
		if h.Sector == "" {
			h.Sector = domain.UnknownSector
		}
		out[i] = h
	}
	return out, nil
}

func (r *Resolver) fallbackHoldings(fundID, category string) []domain.Holding {
	if r.fallback == nil {
		return nil
	}
	return r.fallback.FallbackHoldings(fundID, category)
}
