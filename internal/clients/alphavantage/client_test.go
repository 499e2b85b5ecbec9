package alphavantage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/fundoverlap/internal/clientdata"
	"github.com/aristath/fundoverlap/internal/database"
	testingpkg "github.com/aristath/fundoverlap/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const qqqProfile = `{
	"net_assets": "295000000000",
	"net_expense_ratio": "0.002",
	"inception_date": "1999-03-10",
	"sectors": [
		{"sector": "INFORMATION TECHNOLOGY", "weight": "0.497"},
		{"sector": "COMMUNICATION SERVICES", "weight": "0.155"}
	],
	"holdings": [
		{"symbol": "AAPL", "description": "APPLE INC", "weight": "0.0894"},
		{"symbol": "msft", "description": "MICROSOFT CORP", "weight": "0.0811"},
		{"symbol": "n/a", "description": "CASH COLLATERAL", "weight": "None"}
	]
}`

func newProfileServer(t *testing.T, body string, hits *int32) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "ETF_PROFILE", r.URL.Query().Get("function"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newCacheRepo(t *testing.T) *clientdata.Repository {
	t.Helper()

	return clientdata.NewRepository(testingpkg.NewMemoryDB(t, database.NameClientData))
}

// TestNewClient tests client creation.
func TestNewClient(t *testing.T) {
	client := NewClient("test-key", zerolog.Nop())

	assert.NotNil(t, client)
	assert.Equal(t, "test-key", client.apiKey)
	assert.Equal(t, 25, client.GetRemainingRequests())
}

// TestRateLimiting tests the rate limiting functionality.
func TestRateLimiting(t *testing.T) {
	client := NewClient("test-key", zerolog.Nop())

	for i := 0; i < 25; i++ {
		assert.Equal(t, 25-i, client.GetRemainingRequests())
		require.NoError(t, client.checkRateLimit())
	}

	err := client.checkRateLimit()
	assert.Error(t, err)
	assert.IsType(t, ErrRateLimitExceeded{}, err)
}

// TestResetDailyCounter tests counter reset.
func TestResetDailyCounter(t *testing.T) {
	client := NewClient("test-key", zerolog.Nop())

	for i := 0; i < 10; i++ {
		_ = client.checkRateLimit()
	}
	assert.Equal(t, 15, client.GetRemainingRequests())

	client.ResetDailyCounter()
	assert.Equal(t, 25, client.GetRemainingRequests())
}

func TestRateLimitResetsAfterMidnight(t *testing.T) {
	client := NewClient("test-key", zerolog.Nop())

	for i := 0; i < 25; i++ {
		_ = client.checkRateLimit()
	}
	assert.Equal(t, 0, client.GetRemainingRequests())

	client.resetAt = time.Now().UTC().Add(-time.Second)
	assert.Equal(t, 25, client.GetRemainingRequests())
}

// TestCaching tests the cache functionality.
func TestCaching(t *testing.T) {
	client := NewClient("test-key", zerolog.Nop())

	client.setCache("test-key", "test data", time.Hour)

	cached, ok := client.getFromCache("test-key")
	assert.True(t, ok)
	assert.Equal(t, "test data", cached)

	_, ok = client.getFromCache("non-existent")
	assert.False(t, ok)
}

// TestCacheExpiration tests cache expiration.
func TestCacheExpiration(t *testing.T) {
	client := NewClient("test-key", zerolog.Nop())

	client.setCache("test-key", "test data", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := client.getFromCache("test-key")
	assert.False(t, ok)
}

// TestClearCache tests cache clearing.
func TestClearCache(t *testing.T) {
	client := NewClient("test-key", zerolog.Nop())

	client.setCache("key1", "data1", time.Hour)
	client.setCache("key2", "data2", time.Hour)

	client.ClearCache()

	_, ok1 := client.getFromCache("key1")
	_, ok2 := client.getFromCache("key2")
	assert.False(t, ok1)
	assert.False(t, ok2)
}

// TestBuildCacheKey tests cache key generation.
func TestBuildCacheKey(t *testing.T) {
	tests := []struct {
		name     string
		function string
		params   map[string]string
	}{
		{
			name:     "Simple function",
			function: "ETF_PROFILE",
			params:   map[string]string{"symbol": "QQQ"},
		},
		{
			name:     "Multiple params",
			function: "ETF_PROFILE",
			params:   map[string]string{"symbol": "SPY", "datatype": "json"},
		},
		{
			name:     "With apikey excluded",
			function: "ETF_PROFILE",
			params:   map[string]string{"symbol": "VTI", "apikey": "secret"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := buildCacheKey(tt.function, tt.params)
			assert.Contains(t, key, tt.function)
			assert.NotContains(t, key, "apikey=")
			assert.NotContains(t, key, "secret")
		})
	}

	a := buildCacheKey("ETF_PROFILE", map[string]string{"symbol": "SPY", "datatype": "json"})
	b := buildCacheKey("ETF_PROFILE", map[string]string{"datatype": "json", "symbol": "SPY"})
	assert.Equal(t, a, b)
}

// TestParseFloat64 tests float parsing.
func TestParseFloat64(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"123.45", 123.45},
		{"0", 0},
		{"None", 0},
		{"", 0},
		{"null", 0},
		{"-", 0},
		{"50.5%", 50.5},
		{"invalid", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseFloat64(tt.input))
		})
	}
}

// TestErrorTypes tests error type implementations.
func TestErrorTypes(t *testing.T) {
	assert.Contains(t, ErrRateLimitExceeded{}.Error(), "rate limit")
	assert.Contains(t, ErrInvalidAPIKey{}.Error(), "invalid")
	assert.Contains(t, ErrSymbolNotFound{Symbol: "XYZ"}.Error(), "XYZ")
}

// TestAPIErrorDetection tests detection of API error responses.
func TestAPIErrorDetection(t *testing.T) {
	client := NewClient("test-key", zerolog.Nop())

	tests := []struct {
		name        string
		body        string
		expectError bool
		errorType   error
	}{
		{"Rate limit message", `{"Note": "API call frequency is limited"}`, true, ErrRateLimitExceeded{}},
		{"Information notice", `{"Information": "Our standard API rate limit is 25 requests per day"}`, true, ErrRateLimitExceeded{}},
		{"Invalid key", `{"Error Message": "the parameter apikey is invalid or missing"}`, true, ErrInvalidAPIKey{}},
		{"Error message", `{"Error Message": "Invalid API call"}`, true, nil},
		{"Thank you message", `Thank you for using Alpha Vantage!`, true, ErrRateLimitExceeded{}},
		{"Valid response", `{"holdings": []}`, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.checkAPIError([]byte(tt.body))
			if !tt.expectError {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.errorType != nil {
				assert.IsType(t, tt.errorType, err)
			}
		})
	}
}

// TestNextMidnightUTC tests the midnight calculation.
func TestNextMidnightUTC(t *testing.T) {
	midnight := nextMidnightUTC()

	assert.True(t, midnight.After(time.Now().UTC()))
	assert.Equal(t, 0, midnight.Hour())
	assert.Equal(t, 0, midnight.Minute())
	assert.Equal(t, 0, midnight.Second())
}

func TestGetETFProfile(t *testing.T) {
	var hits int32
	srv := newProfileServer(t, qqqProfile, &hits)

	client := NewClient("test-key", zerolog.Nop())
	client.SetBaseURL(srv.URL)

	profile, err := client.GetETFProfile(context.Background(), " qqq ")
	require.NoError(t, err)

	assert.Equal(t, "QQQ", profile.Symbol)
	assert.Equal(t, 295000000000.0, profile.NetAssets)
	require.Len(t, profile.Holdings, 3)
	assert.Equal(t, "AAPL", profile.Holdings[0].Symbol)
	assert.Equal(t, "APPLE INC", profile.Holdings[0].Description)
	assert.InDelta(t, 8.94, profile.Holdings[0].WeightPercent, 1e-9)
	assert.Equal(t, "MSFT", profile.Holdings[1].Symbol)
	assert.Equal(t, 0.0, profile.Holdings[2].WeightPercent)
	require.Len(t, profile.Sectors, 2)
	assert.InDelta(t, 49.7, profile.Sectors[0].WeightPercent, 1e-9)

	_, err = client.GetETFProfile(context.Background(), "QQQ")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "second call served from memory")
	assert.Equal(t, 24, client.GetRemainingRequests())
}

func TestGetETFProfile_EmptyResponseIsNotFound(t *testing.T) {
	var hits int32
	srv := newProfileServer(t, `{}`, &hits)

	client := NewClient("test-key", zerolog.Nop())
	client.SetBaseURL(srv.URL)

	_, err := client.GetETFProfile(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Equal(t, ErrSymbolNotFound{Symbol: "NOPE"}, err)
}

func TestGetETFProfile_MissingAPIKey(t *testing.T) {
	client := NewClient("", zerolog.Nop())

	_, err := client.GetETFProfile(context.Background(), "QQQ")
	assert.IsType(t, ErrInvalidAPIKey{}, err)
	assert.Equal(t, 25, client.GetRemainingRequests(), "no request consumed")
}

func TestGetETFProfile_PersistsAndFallsBackToStale(t *testing.T) {
	var hits int32
	srv := newProfileServer(t, qqqProfile, &hits)
	repo := newCacheRepo(t)

	client := NewClientWithCache("test-key", repo, zerolog.Nop())
	client.SetBaseURL(srv.URL)

	_, err := client.GetETFProfile(context.Background(), "QQQ")
	require.NoError(t, err)

	// A fresh client reads the persisted row without calling the API
	second := NewClientWithCache("test-key", repo, zerolog.Nop())
	second.SetBaseURL(srv.URL)
	profile, err := second.GetETFProfile(context.Background(), "QQQ")
	require.NoError(t, err)
	assert.Len(t, profile.Holdings, 3)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	// Expire the row and break the API: the stale copy is served
	require.NoError(t, repo.Store(clientdata.TableETFProfile, "QQQ", profile, -time.Hour))
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()

	third := NewClientWithCache("test-key", repo, zerolog.Nop())
	third.SetBaseURL(failing.URL)
	stale, err := third.GetETFProfile(context.Background(), "QQQ")
	require.NoError(t, err)
	assert.Equal(t, profile.Holdings, stale.Holdings)
}

func TestGetETFProfile_HonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewClient("test-key", zerolog.Nop())
	client.SetBaseURL(srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetETFProfile(ctx, "QQQ")
	assert.Error(t, err)
}

// BenchmarkParseFloat64 benchmarks float parsing.
func BenchmarkParseFloat64(b *testing.B) {
	for i := 0; i < b.N; i++ {
		parseFloat64("123.456789")
	}
}

// TestInterfaceImplementation verifies Client implements ClientInterface.
func TestInterfaceImplementation(t *testing.T) {
	var _ ClientInterface = (*Client)(nil)
}
