package holdings

import (
	"errors"
	"testing"
	"time"

	"github.com/aristath/fundoverlap/internal/clients/alphavantage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRefreshJobName(t *testing.T) {
	resolver, repo := newResolver(t, nil)
	job := NewRefreshJob(repo, resolver, time.Second, zerolog.Nop())
	assert.Equal(t, "holdings_refresh", job.Name())
}

func TestRefreshJob_NoETFFunds(t *testing.T) {
	resolver, repo := newResolver(t, new(MockETFSource))
	require.NoError(t, repo.UpsertFund(Fund{ID: "manual", Name: "Manual Fund"}))

	job := NewRefreshJob(repo, resolver, time.Second, zerolog.Nop())
	assert.NoError(t, job.Run())
}

func TestRefreshJob_PartialFailureSucceeds(t *testing.T) {
	etf := new(MockETFSource)
	etf.On("GetETFProfile", mock.Anything, "QQQ").Return(qqqProfile, nil)
	etf.On("GetETFProfile", mock.Anything, "SPY").Return(nil, errors.New("upstream down"))

	resolver, repo := newResolver(t, etf)
	require.NoError(t, repo.UpsertFund(Fund{ID: "nasdaq", Name: "Nasdaq", ETFSymbol: "QQQ"}))
	require.NoError(t, repo.UpsertFund(Fund{ID: "sp", Name: "S&P", ETFSymbol: "SPY"}))

	job := NewRefreshJob(repo, resolver, time.Second, zerolog.Nop())
	require.NoError(t, job.Run())

	snapshot, err := repo.GetHoldings("nasdaq")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Len(t, snapshot.Holdings, 2)

	missing, err := repo.GetHoldings("sp")
	require.NoError(t, err)
	assert.Nil(t, missing)

	etf.AssertNumberOfCalls(t, "GetETFProfile", 2)
}

func TestRefreshJob_AllFailed(t *testing.T) {
	etf := new(MockETFSource)
	etf.On("GetETFProfile", mock.Anything, mock.Anything).Return(nil, alphavantage.ErrRateLimitExceeded{})

	resolver, repo := newResolver(t, etf)
	require.NoError(t, repo.UpsertFund(Fund{ID: "nasdaq", Name: "Nasdaq", ETFSymbol: "QQQ"}))
	require.NoError(t, repo.UpsertFund(Fund{ID: "sp", Name: "S&P", ETFSymbol: "SPY"}))

	job := NewRefreshJob(repo, resolver, time.Second, zerolog.Nop())
	err := job.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 funds")
}
