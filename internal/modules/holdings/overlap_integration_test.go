package holdings

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/fundoverlap/internal/modules/overlap"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeOverlap_SlowETFSourceGetsCategoryFallback(t *testing.T) {
	etf := new(MockETFSource)
	etf.On("GetETFProfile", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return(nil, context.DeadlineExceeded)

	repo := setupRepo(t)
	require.NoError(t, repo.UpsertFund(Fund{ID: "large", Name: "Bluechip Fund", Category: "Large Cap", ETFSymbol: "LARGEETF"}))
	require.NoError(t, repo.UpsertFund(Fund{ID: "mid", Name: "Emerging Fund", Category: "Mid Cap", ETFSymbol: "MIDETF"}))

	provider := NewCategoryFallbackProvider()
	resolver := NewResolver(repo, etf, provider, zerolog.Nop())
	service := overlap.NewService(resolver, provider, overlap.ServiceConfig{
		ResolveTimeout: 50 * time.Millisecond,
		ResolveGrace:   2 * time.Second,
	}, zerolog.Nop())

	report, err := service.AnalyzeOverlap(context.Background(), []string{"large", "mid"})
	require.NoError(t, err)

	assert.Equal(t, []string{"large", "mid"}, report.FallbackFundIDs)
	assert.Empty(t, report.CommonHoldings, "large-cap and mid-cap lists share no securities")
	assert.Equal(t, 0.0, report.OverlapPercent)

	large := provider.FallbackHoldings("", "Large Cap")
	mid := provider.FallbackHoldings("", "Mid Cap")
	assert.Equal(t, len(large), report.UniqueHoldingsByFund["large"].Count)
	assert.Equal(t, len(mid), report.UniqueHoldingsByFund["mid"].Count)

	largeSectors := make(map[string]float64)
	for _, h := range large {
		largeSectors[h.Sector] += h.WeightPercent
	}
	for sector, weight := range largeSectors {
		assert.InDelta(t, weight, report.SectorAllocation.Weight(sector, "large"), 1e-9, sector)
	}
}
