package holdings

import (
	"strings"

	"github.com/aristath/fundoverlap/internal/domain"
)

// Category styles with their own fallback list
const (
	StyleLargeCap = "large_cap"
	StyleMidCap   = "mid_cap"
	StyleDefault  = "default"
)

var largeCapHoldings = []domain.Holding{
	{SecurityName: "HDFC Bank Ltd", Ticker: "HDFCBANK", WeightPercent: 9.8, Sector: "Financial Services"},
	{SecurityName: "ICICI Bank Ltd", Ticker: "ICICIBANK", WeightPercent: 8.4, Sector: "Financial Services"},
	{SecurityName: "Reliance Industries Ltd", Ticker: "RELIANCE", WeightPercent: 7.6, Sector: "Energy"},
	{SecurityName: "Infosys Ltd", Ticker: "INFY", WeightPercent: 5.9, Sector: "Information Technology"},
	{SecurityName: "Larsen & Toubro Ltd", Ticker: "LT", WeightPercent: 4.7, Sector: "Industrials"},
	{SecurityName: "Bharti Airtel Ltd", Ticker: "BHARTIARTL", WeightPercent: 4.5, Sector: "Telecommunication"},
	{SecurityName: "ITC Ltd", Ticker: "ITC", WeightPercent: 4.1, Sector: "Consumer Staples"},
	{SecurityName: "Tata Consultancy Services Ltd", Ticker: "TCS", WeightPercent: 3.9, Sector: "Information Technology"},
	{SecurityName: "Axis Bank Ltd", Ticker: "AXISBANK", WeightPercent: 3.6, Sector: "Financial Services"},
	{SecurityName: "State Bank of India", Ticker: "SBIN", WeightPercent: 3.2, Sector: "Financial Services"},
}

var midCapHoldings = []domain.Holding{
	{SecurityName: "Max Healthcare Institute Ltd", Ticker: "MAXHEALTH", WeightPercent: 3.4, Sector: "Healthcare"},
	{SecurityName: "Persistent Systems Ltd", Ticker: "PERSISTENT", WeightPercent: 3.2, Sector: "Information Technology"},
	{SecurityName: "The Indian Hotels Company Ltd", Ticker: "INDHOTEL", WeightPercent: 3.0, Sector: "Consumer Discretionary"},
	{SecurityName: "Federal Bank Ltd", Ticker: "FEDERALBNK", WeightPercent: 2.9, Sector: "Financial Services"},
	{SecurityName: "Coforge Ltd", Ticker: "COFORGE", WeightPercent: 2.7, Sector: "Information Technology"},
	{SecurityName: "Cummins India Ltd", Ticker: "CUMMINSIND", WeightPercent: 2.6, Sector: "Industrials"},
	{SecurityName: "Dixon Technologies (India) Ltd", Ticker: "DIXON", WeightPercent: 2.5, Sector: "Consumer Discretionary"},
	{SecurityName: "Lupin Ltd", Ticker: "LUPIN", WeightPercent: 2.3, Sector: "Healthcare"},
	{SecurityName: "Tube Investments of India Ltd", Ticker: "TIINDIA", WeightPercent: 2.1, Sector: "Industrials"},
	{SecurityName: "PB Fintech Ltd", Ticker: "POLICYBZR", WeightPercent: 2.0, Sector: "Financial Services"},
}

var defaultHoldings = []domain.Holding{
	{SecurityName: "HDFC Bank Ltd", Ticker: "HDFCBANK", WeightPercent: 7.5, Sector: "Financial Services"},
	{SecurityName: "ICICI Bank Ltd", Ticker: "ICICIBANK", WeightPercent: 6.2, Sector: "Financial Services"},
	{SecurityName: "Reliance Industries Ltd", Ticker: "RELIANCE", WeightPercent: 5.1, Sector: "Energy"},
	{SecurityName: "Infosys Ltd", Ticker: "INFY", WeightPercent: 4.3, Sector: "Information Technology"},
	{SecurityName: "Bharti Airtel Ltd", Ticker: "BHARTIARTL", WeightPercent: 3.5, Sector: "Telecommunication"},
	{SecurityName: "Mahindra & Mahindra Ltd", Ticker: "M&M", WeightPercent: 3.0, Sector: "Consumer Discretionary"},
	{SecurityName: "Sun Pharmaceutical Industries Ltd", Ticker: "SUNPHARMA", WeightPercent: 2.8, Sector: "Healthcare"},
	{SecurityName: "Max Healthcare Institute Ltd", Ticker: "MAXHEALTH", WeightPercent: 2.2, Sector: "Healthcare"},
	{SecurityName: "Persistent Systems Ltd", Ticker: "PERSISTENT", WeightPercent: 2.0, Sector: "Information Technology"},
	{SecurityName: "Cummins India Ltd", Ticker: "CUMMINSIND", WeightPercent: 1.8, Sector: "Industrials"},
}

// CategoryFallbackProvider supplies a fixed top-10 list per category style.
// The same category always yields the same list.
type CategoryFallbackProvider struct {
	lists map[string][]domain.Holding
}

// NewCategoryFallbackProvider creates a provider with the built-in lists
func NewCategoryFallbackProvider() *CategoryFallbackProvider {
	return &CategoryFallbackProvider{
		lists: map[string][]domain.Holding{
			StyleLargeCap: largeCapHoldings,
			StyleMidCap:   midCapHoldings,
			StyleDefault:  defaultHoldings,
		},
	}
}

// FallbackHoldings returns a copy of the list for the fund's category style.
// The fund ID does not influence the result.
func (p *CategoryFallbackProvider) FallbackHoldings(fundID, category string) []domain.Holding {
	list := p.lists[CategoryStyle(category)]
	out := make([]domain.Holding, len(list))
	copy(out, list)
	return out
}

// CategoryStyle classifies a free-text fund category
func CategoryStyle(category string) string {
	c := strings.ToLower(category)
	switch {
	case strings.Contains(c, "large"), strings.Contains(c, "bluechip"), strings.Contains(c, "blue chip"):
		return StyleLargeCap
	case strings.Contains(c, "mid"), strings.Contains(c, "small"):
		return StyleMidCap
	default:
		return StyleDefault
	}
}
