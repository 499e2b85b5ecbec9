// Package alphavantage provides a client for the Alpha Vantage ETF_PROFILE
// endpoint, which publishes the constituent holdings of exchange traded funds.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aristath/fundoverlap/internal/clientdata"
	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://www.alphavantage.co/query"
	// Free tier allowance
	defaultDailyLimit = 25
	defaultMemoryTTL  = time.Hour
)

// ErrRateLimitExceeded is returned when the daily allowance is used up or the
// API answers with a throttling notice
type ErrRateLimitExceeded struct{}

func (e ErrRateLimitExceeded) Error() string {
	return "alphavantage: rate limit exceeded"
}

// ErrInvalidAPIKey is returned when the API rejects the configured key
type ErrInvalidAPIKey struct{}

func (e ErrInvalidAPIKey) Error() string {
	return "alphavantage: invalid or missing API key"
}

// ErrSymbolNotFound is returned when the API has no profile for a symbol
type ErrSymbolNotFound struct {
	Symbol string
}

func (e ErrSymbolNotFound) Error() string {
	return fmt.Sprintf("alphavantage: symbol not found: %s", e.Symbol)
}

// ETFHolding is one constituent of an ETF
type ETFHolding struct {
	Symbol        string  `json:"symbol"`
	Description   string  `json:"description"`
	WeightPercent float64 `json:"weight_percent"`
}

// ETFSector is a fund-level sector weight
type ETFSector struct {
	Sector        string  `json:"sector"`
	WeightPercent float64 `json:"weight_percent"`
}

// ETFProfile is the parsed ETF_PROFILE response. Weights are converted from
// the API's fractions to percentages.
type ETFProfile struct {
	Symbol          string       `json:"symbol"`
	NetAssets       float64      `json:"net_assets"`
	NetExpenseRatio float64      `json:"net_expense_ratio"`
	InceptionDate   string       `json:"inception_date"`
	Sectors         []ETFSector  `json:"sectors"`
	Holdings        []ETFHolding `json:"holdings"`
}

// ClientInterface is the subset of the client used by the holdings resolver
type ClientInterface interface {
	GetETFProfile(ctx context.Context, symbol string) (*ETFProfile, error)
	GetRemainingRequests() int
}

type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
}

// Client is the Alpha Vantage API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
	cacheRepo  *clientdata.Repository // optional persistent cache

	cacheMu   sync.RWMutex
	cache     map[string]cacheEntry
	memoryTTL time.Duration

	limitMu      sync.Mutex
	dailyLimit   int
	requestCount int
	resetAt      time.Time
}

// NewClient creates a new Alpha Vantage client with an in-memory cache only.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:        log.With().Str("component", "alphavantage").Logger(),
		cache:      make(map[string]cacheEntry),
		memoryTTL:  defaultMemoryTTL,
		dailyLimit: defaultDailyLimit,
		resetAt:    nextMidnightUTC(),
	}
}

// NewClientWithCache creates a client that also persists responses in client_data.db.
func NewClientWithCache(apiKey string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	c := NewClient(apiKey, log)
	c.cacheRepo = cacheRepo
	return c
}

// SetBaseURL overrides the API endpoint
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// GetETFProfile returns the holdings profile of an ETF.
// Lookup order: memory cache, fresh persistent cache, API. If the API fails,
// stale persistent data is returned when available.
func (c *Client) GetETFProfile(ctx context.Context, symbol string) (*ETFProfile, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrSymbolNotFound{Symbol: symbol}
	}

	params := map[string]string{"symbol": symbol}
	key := buildCacheKey("ETF_PROFILE", params)

	if cached, ok := c.getFromCache(key); ok {
		if profile, ok := cached.(*ETFProfile); ok {
			return profile, nil
		}
	}

	if profile, ok := c.getPersisted(symbol, false); ok {
		c.log.Debug().Str("symbol", symbol).Msg("ETF profile cache hit")
		c.setCache(key, profile, c.memoryTTL)
		return profile, nil
	}

	body, err := c.doRequest(ctx, "ETF_PROFILE", params)
	if err == nil {
		var profile *ETFProfile
		profile, err = parseETFProfile(symbol, body)
		if err == nil {
			c.setCache(key, profile, c.memoryTTL)
			c.persist(symbol, profile)
			return profile, nil
		}
	}

	if stale, ok := c.getPersisted(symbol, true); ok {
		c.log.Warn().
			Err(err).
			Str("symbol", symbol).
			Msg("API failed, using stale cached data")
		return stale, nil
	}

	return nil, err
}

// GetRemainingRequests returns how many API calls are left today.
func (c *Client) GetRemainingRequests() int {
	c.limitMu.Lock()
	defer c.limitMu.Unlock()

	c.maybeResetLocked()
	return c.dailyLimit - c.requestCount
}

// ResetDailyCounter restores the full daily allowance.
func (c *Client) ResetDailyCounter() {
	c.limitMu.Lock()
	defer c.limitMu.Unlock()

	c.requestCount = 0
	c.resetAt = nextMidnightUTC()
}

// ClearCache drops every in-memory cache entry.
func (c *Client) ClearCache() {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	c.cache = make(map[string]cacheEntry)
}

// checkRateLimit consumes one request from the daily allowance
func (c *Client) checkRateLimit() error {
	c.limitMu.Lock()
	defer c.limitMu.Unlock()

	c.maybeResetLocked()
	if c.requestCount >= c.dailyLimit {
		return ErrRateLimitExceeded{}
	}
	c.requestCount++
	return nil
}

func (c *Client) maybeResetLocked() {
	if time.Now().UTC().After(c.resetAt) {
		c.requestCount = 0
		c.resetAt = nextMidnightUTC()
	}
}

func (c *Client) doRequest(ctx context.Context, function string, params map[string]string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrInvalidAPIKey{}
	}
	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("function", function)
	for k, v := range params {
		query.Set(k, v)
	}
	query.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.log.Debug().Str("function", function).Msg("Making Alpha Vantage request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Alpha Vantage API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := c.checkAPIError(body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkAPIError detects the error payloads Alpha Vantage returns with status 200
func (c *Client) checkAPIError(body []byte) error {
	if strings.Contains(string(body), "Thank you for using Alpha Vantage") {
		return ErrRateLimitExceeded{}
	}

	var envelope struct {
		Note         string `json:"Note"`
		Information  string `json:"Information"`
		ErrorMessage string `json:"Error Message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		// Not an object; let the caller's parser decide
		return nil
	}

	switch {
	case envelope.Note != "":
		return ErrRateLimitExceeded{}
	case envelope.Information != "":
		if strings.Contains(strings.ToLower(envelope.Information), "api key") {
			return ErrInvalidAPIKey{}
		}
		return ErrRateLimitExceeded{}
	case envelope.ErrorMessage != "":
		if strings.Contains(strings.ToLower(envelope.ErrorMessage), "apikey") {
			return ErrInvalidAPIKey{}
		}
		return fmt.Errorf("alphavantage: %s", envelope.ErrorMessage)
	}
	return nil
}

type rawETFProfile struct {
	NetAssets       string `json:"net_assets"`
	NetExpenseRatio string `json:"net_expense_ratio"`
	InceptionDate   string `json:"inception_date"`
	Sectors         []struct {
		Sector string `json:"sector"`
		Weight string `json:"weight"`
	} `json:"sectors"`
	Holdings []struct {
		Symbol      string `json:"symbol"`
		Description string `json:"description"`
		Weight      string `json:"weight"`
	} `json:"holdings"`
}

func parseETFProfile(symbol string, body []byte) (*ETFProfile, error) {
	var raw rawETFProfile
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode ETF profile: %w", err)
	}

	if len(raw.Holdings) == 0 && raw.NetAssets == "" {
		return nil, ErrSymbolNotFound{Symbol: symbol}
	}

	profile := &ETFProfile{
		Symbol:          symbol,
		NetAssets:       parseFloat64(raw.NetAssets),
		NetExpenseRatio: parseFloat64(raw.NetExpenseRatio),
		InceptionDate:   raw.InceptionDate,
		Sectors:         make([]ETFSector, 0, len(raw.Sectors)),
		Holdings:        make([]ETFHolding, 0, len(raw.Holdings)),
	}

	for _, s := range raw.Sectors {
		profile.Sectors = append(profile.Sectors, ETFSector{
			Sector:        s.Sector,
			WeightPercent: parseFloat64(s.Weight) * 100,
		})
	}

	for _, h := range raw.Holdings {
		if h.Description == "" && h.Symbol == "" {
			continue
		}
		profile.Holdings = append(profile.Holdings, ETFHolding{
			Symbol:        strings.ToUpper(strings.TrimSpace(h.Symbol)),
			Description:   h.Description,
			WeightPercent: parseFloat64(h.Weight) * 100,
		})
	}

	return profile, nil
}

func (c *Client) getFromCache(key string) (interface{}, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()

	entry, ok := c.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

func (c *Client) setCache(key string, data interface{}, ttl time.Duration) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	c.cache[key] = cacheEntry{data: data, expiresAt: time.Now().Add(ttl)}
}

// getPersisted reads a profile from client_data.db; stale allows expired rows
func (c *Client) getPersisted(symbol string, stale bool) (*ETFProfile, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	var (
		data json.RawMessage
		err  error
	)
	if stale {
		data, err = c.cacheRepo.Get(clientdata.TableETFProfile, symbol)
	} else {
		data, err = c.cacheRepo.GetIfFresh(clientdata.TableETFProfile, symbol)
	}
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to get from cache")
		return nil, false
	}
	if data == nil {
		return nil, false
	}

	var profile ETFProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to unmarshal cached data")
		return nil, false
	}
	return &profile, true
}

func (c *Client) persist(symbol string, profile *ETFProfile) {
	if c.cacheRepo == nil {
		return
	}
	if err := c.cacheRepo.Store(clientdata.TableETFProfile, symbol, profile, clientdata.TTLETFProfile); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache ETF profile")
	}
}

// buildCacheKey renders function and params deterministically, never including the API key
func buildCacheKey(function string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "apikey" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(function)
	for _, k := range keys {
		b.WriteString("&")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}
	return b.String()
}

// parseFloat64 parses Alpha Vantage numeric strings. Placeholders and
// malformed values yield 0.
func parseFloat64(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	switch s {
	case "", "None", "null", "-":
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func nextMidnightUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}
