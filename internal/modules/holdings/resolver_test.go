package holdings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aristath/fundoverlap/internal/clients/alphavantage"
	"github.com/aristath/fundoverlap/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockETFSource is a mock ETF profile source for testing
type MockETFSource struct {
	mock.Mock
}

func (m *MockETFSource) GetETFProfile(ctx context.Context, symbol string) (*alphavantage.ETFProfile, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*alphavantage.ETFProfile), args.Error(1)
}

var qqqProfile = &alphavantage.ETFProfile{
	Symbol: "QQQ",
	Holdings: []alphavantage.ETFHolding{
		{Symbol: "AAPL", Description: "APPLE INC", WeightPercent: 8.94},
		{Symbol: "MSFT", Description: "MICROSOFT CORP", WeightPercent: 8.11},
		{Symbol: "CASH", Description: "CASH COLLATERAL", WeightPercent: 0},
	},
}

func newResolver(t *testing.T, etf ETFProfileSource) (*Resolver, *Repository) {
	t.Helper()

	repo := setupRepo(t)
	return NewResolver(repo, etf, NewCategoryFallbackProvider(), zerolog.Nop()), repo
}

func TestResolve_StoredSnapshot(t *testing.T) {
	resolver, repo := newResolver(t, nil)

	require.NoError(t, repo.UpsertFund(Fund{ID: "f1", Name: "Fund One", Category: "Flexi Cap"}))
	require.NoError(t, repo.SaveHoldings("f1", []domain.Holding{
		{SecurityName: "  HDFC Bank Ltd ", WeightPercent: 9.5, Sector: "Financial Services"},
		{SecurityName: "Infosys Ltd", WeightPercent: 4.2},
	}, SnapshotSourceManual, time.Now()))

	fh := resolver.Resolve(context.Background(), "f1")

	assert.Equal(t, "f1", fh.FundID)
	assert.Equal(t, domain.SourceResolved, fh.Source)
	require.Len(t, fh.Holdings, 2)
	assert.Equal(t, "HDFC Bank Ltd", fh.Holdings[0].SecurityName)
	assert.Equal(t, domain.UnknownSector, fh.Holdings[1].Sector)
}

func TestResolve_UnknownFundFallsBackToDefault(t *testing.T) {
	resolver, _ := newResolver(t, nil)

	fh := resolver.Resolve(context.Background(), "ghost")

	assert.Equal(t, domain.SourceFallback, fh.Source)
	assert.Equal(t, "ghost", fh.FundID)
	assert.Equal(t, NewCategoryFallbackProvider().FallbackHoldings("", ""), fh.Holdings)
}

func TestResolve_NoSourceFallsBackByCategory(t *testing.T) {
	resolver, repo := newResolver(t, nil)
	require.NoError(t, repo.UpsertFund(Fund{ID: "mid", Name: "Some Midcap", Category: "Mid Cap", ETFSymbol: "MIDCAPETF"}))

	fh := resolver.Resolve(context.Background(), "mid")

	assert.Equal(t, domain.SourceFallback, fh.Source)
	assert.Equal(t, NewCategoryFallbackProvider().FallbackHoldings("", "Mid Cap"), fh.Holdings)
}

func TestResolve_MalformedSnapshotFallsBack(t *testing.T) {
	resolver, repo := newResolver(t, nil)
	require.NoError(t, repo.UpsertFund(Fund{ID: "f1", Name: "Fund One", Category: "Large Cap"}))
	require.NoError(t, repo.SaveHoldings("f1", []domain.Holding{
		{SecurityName: "Fine Co", WeightPercent: 5},
		{SecurityName: "Overweight Co", WeightPercent: 140},
	}, SnapshotSourceManual, time.Now()))

	fh := resolver.Resolve(context.Background(), "f1")

	assert.Equal(t, domain.SourceFallback, fh.Source)
	assert.Len(t, fh.Holdings, 10)
}

func TestResolve_FetchesETFProfile(t *testing.T) {
	etf := new(MockETFSource)
	etf.On("GetETFProfile", mock.Anything, "QQQ").Return(qqqProfile, nil).Once()

	resolver, repo := newResolver(t, etf)
	require.NoError(t, repo.UpsertFund(Fund{ID: "nasdaq", Name: "Nasdaq 100 FoF", Category: "International", ETFSymbol: "QQQ"}))
	require.NoError(t, repo.SetSecuritySector("AAPL", "Information Technology"))

	fh := resolver.Resolve(context.Background(), "nasdaq")

	assert.Equal(t, domain.SourceResolved, fh.Source)
	assert.Equal(t, []domain.Holding{
		{SecurityName: "APPLE INC", Ticker: "AAPL", WeightPercent: 8.94, Sector: "Information Technology"},
		{SecurityName: "MICROSOFT CORP", Ticker: "MSFT", WeightPercent: 8.11, Sector: domain.UnknownSector},
	}, fh.Holdings)

	snapshot, err := repo.GetHoldings("nasdaq")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, SnapshotSourceAlphaVantage, snapshot.Source)
	assert.Equal(t, fh.Holdings, snapshot.Holdings)

	// Second resolution is served from the snapshot
	again := resolver.Resolve(context.Background(), "nasdaq")
	assert.Equal(t, fh, again)
	etf.AssertExpectations(t)
}

func TestResolve_ETFErrorFallsBack(t *testing.T) {
	etf := new(MockETFSource)
	etf.On("GetETFProfile", mock.Anything, "SPY").Return(nil, alphavantage.ErrRateLimitExceeded{})

	resolver, repo := newResolver(t, etf)
	require.NoError(t, repo.UpsertFund(Fund{ID: "sp", Name: "S&P 500 FoF", Category: "Large Cap", ETFSymbol: "SPY"}))

	fh := resolver.Resolve(context.Background(), "sp")

	assert.Equal(t, domain.SourceFallback, fh.Source)
	assert.Equal(t, NewCategoryFallbackProvider().FallbackHoldings("", "Large Cap"), fh.Holdings)

	snapshot, err := repo.GetHoldings("sp")
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestResolve_CancelledContextFallsBack(t *testing.T) {
	etf := new(MockETFSource)
	resolver, repo := newResolver(t, etf)
	require.NoError(t, repo.UpsertFund(Fund{ID: "sp", Name: "S&P 500 FoF", ETFSymbol: "SPY"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fh := resolver.Resolve(ctx, "sp")

	assert.Equal(t, domain.SourceFallback, fh.Source)
	etf.AssertNotCalled(t, "GetETFProfile", mock.Anything, mock.Anything)
}

func TestResolve_NilFallbackProvider(t *testing.T) {
	resolver := NewResolver(setupRepo(t), nil, nil, zerolog.Nop())

	fh := resolver.Resolve(context.Background(), "ghost")
	assert.Equal(t, domain.SourceFallback, fh.Source)
	assert.Empty(t, fh.Holdings)
}

func TestFetchETFHoldings_AllZeroWeightsIsMalformed(t *testing.T) {
	etf := new(MockETFSource)
	etf.On("GetETFProfile", mock.Anything, "ZERO").Return(&alphavantage.ETFProfile{
		Symbol:   "ZERO",
		Holdings: []alphavantage.ETFHolding{{Symbol: "X", Description: "X CORP", WeightPercent: 0}},
	}, nil)

	resolver, _ := newResolver(t, etf)
	_, err := resolver.FetchETFHoldings(context.Background(), &Fund{ID: "z", ETFSymbol: "ZERO"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedHoldings))
}

func TestValidateHoldings(t *testing.T) {
	tests := []struct {
		name     string
		holdings []domain.Holding
		wantErr  bool
	}{
		{"empty", nil, true},
		{"blank name", []domain.Holding{{SecurityName: "  ", WeightPercent: 3}}, true},
		{"zero weight", []domain.Holding{{SecurityName: "A", WeightPercent: 0}}, true},
		{"negative weight", []domain.Holding{{SecurityName: "A", WeightPercent: -1}}, true},
		{"over 100", []domain.Holding{{SecurityName: "A", WeightPercent: 100.5}}, true},
		{"exactly 100", []domain.Holding{{SecurityName: "A", WeightPercent: 100}}, false},
		{"valid", []domain.Holding{{SecurityName: "A", WeightPercent: 0.01, Sector: " "}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ValidateHoldings(tt.holdings)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedHoldings)
				return
			}
			require.NoError(t, err)
			for _, h := range out {
				assert.NotEmpty(t, h.Sector)
			}
		})
	}
}

func TestValidateHoldings_DoesNotMutateInput(t *testing.T) {
	in := []domain.Holding{{SecurityName: " A ", WeightPercent: 5}}

	out, err := ValidateHoldings(in)
	require.NoError(t, err)

	assert.Equal(t, " A ", in[0].SecurityName)
	assert.Equal(t, "", in[0].Sector)
	assert.Equal(t, "A", out[0].SecurityName)
	assert.Equal(t, domain.UnknownSector, out[0].Sector)
}
