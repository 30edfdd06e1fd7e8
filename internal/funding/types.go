package funding

import "time"

// Exchange identifiers for the two integrated feeds.
const (
	ExchangeLighter = "lighter"
	ExchangeHyena   = "hyena"
)

// Exchanges lists the supported exchange identifiers.
var Exchanges = []string{ExchangeLighter, ExchangeHyena}

// IsSupportedExchange reports whether name is one of the integrated feeds.
func IsSupportedExchange(name string) bool {
	for _, e := range Exchanges {
		if e == name {
			return true
		}
	}
	return false
}

// RateSample represents one observed funding rate. Samples are immutable once
// written and are uniquely identified by (exchange, symbol, observed_at).
type RateSample struct {
	Exchange      string     `json:"exchange"`
	Symbol        string     `json:"symbol"`
	Rate          float64    `json:"rate"`
	ObservedAt    time.Time  `json:"observed_at"`
	NextFundingAt *time.Time `json:"next_funding_at,omitempty"`
}

// AggregatedRate represents the rolling-window aggregate for one symbol.
// It is derived from stored samples on demand and never persisted.
type AggregatedRate struct {
	Symbol        string     `json:"symbol"`
	WindowDays    int        `json:"window_days"`
	AverageRate   float64    `json:"average_rate"`
	APR           float64    `json:"apr"`
	SampleCount   int        `json:"sample_count"`
	NextFundingAt *time.Time `json:"next_funding_at,omitempty"`
}

// OpportunitySet is the ranked output for one exchange at one point in time.
// TopLong holds the most negative average rates first (shorts pay longs),
// TopShort the most positive first (longs pay shorts). A set is replaced
// wholesale on each aggregation cycle.
type OpportunitySet struct {
	Exchange        string            `json:"exchange"`
	TopLong         []*AggregatedRate `json:"top_long"`
	TopShort        []*AggregatedRate `json:"top_short"`
	GeneratedAt     time.Time         `json:"generated_at"`
	NextFundingTime *time.Time        `json:"next_funding_time,omitempty"`
}

// Summary describes the stored series for one exchange.
type Summary struct {
	Exchange    string    `json:"exchange"`
	SampleCount int64     `json:"sample_count"`
	SymbolCount int64     `json:"symbol_count"`
	OldestAt    time.Time `json:"oldest_at"`
	NewestAt    time.Time `json:"newest_at"`
}

// HistoryPoint is one (timestamp, rate) pair of a symbol's stored series,
// shaped for charting.
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Rate      float64   `json:"rate"`
}
