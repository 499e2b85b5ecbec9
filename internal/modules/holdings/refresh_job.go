package holdings

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/fundoverlap/internal/utils"
	"github.com/rs/zerolog"
)

// RefreshJob re-fetches the holdings of every ETF-backed fund so analyses
// read recent snapshots instead of hitting the API on demand
type RefreshJob struct {
	repo     *Repository
	resolver *Resolver
	timeout  time.Duration
	log      zerolog.Logger
}

// NewRefreshJob creates a new holdings refresh job. perFundTimeout bounds
// each fund's fetch.
func NewRefreshJob(repo *Repository, resolver *Resolver, perFundTimeout time.Duration, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		repo:     repo,
		resolver: resolver,
		timeout:  perFundTimeout,
		log:      log.With().Str("job", "holdings_refresh").Logger(),
	}
}

// Run refreshes all ETF-backed funds. Per-fund failures are logged and the
// job continues; it fails only when every attempted fund failed.
func (j *RefreshJob) Run() error {
	defer utils.OperationTimer("holdings_refresh", j.log)()

	funds, err := j.repo.ListETFFunds()
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to list ETF funds")
		return err
	}

	if len(funds) == 0 {
		j.log.Debug().Msg("No ETF-backed funds to refresh")
		return nil
	}

	var refreshed, failed int
	for i := range funds {
		fund := &funds[i]

		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		holdings, err := j.resolver.FetchETFHoldings(ctx, fund)
		cancel()

		if err != nil {
			failed++
			j.log.Warn().
				Err(err).
				Str("fund_id", fund.ID).
				Str("symbol", fund.ETFSymbol).
				Msg("Failed to refresh holdings")
			continue
		}

		refreshed++
		j.log.Debug().
			Str("fund_id", fund.ID).
			Int("holdings", len(holdings)).
			Msg("Refreshed holdings")
	}

	j.log.Info().
		Int("refreshed", refreshed).
		Int("failed", failed).
		Msg("Holdings refresh completed")

	if refreshed == 0 {
		return fmt.Errorf("holdings refresh failed for all %d funds", failed)
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *RefreshJob) Name() string {
	return "holdings_refresh"
}
