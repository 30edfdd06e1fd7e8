package api

import "github.com/samnmbuguah/FundingRate/internal/funding"

// HistoryResponse is the charting series for one symbol.
type HistoryResponse struct {
	Exchange string                  `json:"exchange"`
	Symbol   string                  `json:"symbol"`
	Hours    int                     `json:"hours"`
	Points   []*funding.HistoryPoint `json:"points"`
}

// LegacyRate is one entry of the original funding_rates payload.
type LegacyRate struct {
	Symbol          string  `json:"symbol"`
	Average2DayRate float64 `json:"average_2day_rate"`
}

// LegacyRatesResponse mirrors the original backend's funding_rates payload.
type LegacyRatesResponse struct {
	TopLong   []LegacyRate `json:"top_long"`
	TopShort  []LegacyRate `json:"top_short"`
	Timestamp string       `json:"timestamp"`
}
