package clientdata

import "time"

// TTL constants for cached API data.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// TTLETFProfile covers ETF holdings disclosures, which funds publish monthly at most
	TTLETFProfile = 7 * 24 * time.Hour
)

// StaleRetention is how long an expired entry is kept after expires_at.
// Clients read such entries when the upstream API fails.
const StaleRetention = 30 * 24 * time.Hour
