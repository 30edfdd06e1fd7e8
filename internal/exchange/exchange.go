package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/samnmbuguah/FundingRate/internal/funding"
)

// Adapter defines the interface for venue funding-rate clients. The collector
// drives one adapter per exchange: Refresh once at cycle start, then
// FetchRate per symbol.
type Adapter interface {
	// Name returns the exchange identifier used in stored samples.
	Name() string

	// Refresh updates venue-wide state for the coming cycle, such as the
	// symbol universe or a shared rates snapshot. A failed refresh does not
	// have to make the cycle unusable; Symbols may fall back to a static
	// universe.
	Refresh(ctx context.Context) error

	// Symbols returns the tracked universe in stable sorted order.
	Symbols(ctx context.Context) ([]string, error)

	// FetchRate returns the current funding rate sample for one symbol.
	// Failures are *FetchError values.
	FetchRate(ctx context.Context, symbol string) (*funding.RateSample, error)
}

// Backfiller is implemented by venues whose API can replay past settlement
// records, letting a cold store reach a full aggregation window immediately.
type Backfiller interface {
	// FetchHistory returns all samples for one symbol since the given time,
	// ordered by observation time ascending.
	FetchHistory(ctx context.Context, symbol string, since time.Time) ([]*funding.RateSample, error)
}

// FetchError reports a failed venue fetch. Symbol is empty for venue-level
// failures such as a snapshot or universe refresh.
type FetchError struct {
	Exchange string
	Symbol   string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("%s: fetch failed: %v", e.Exchange, e.Err)
	}
	return fmt.Sprintf("%s/%s: fetch failed: %v", e.Exchange, e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NextFundingHour returns the top of the hour after t. Both integrated venues
// settle funding hourly.
func NextFundingHour(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour).Add(time.Hour)
}

// RateValue holds a funding rate that arrives either quoted or bare,
// depending on the venue's serializer.
type RateValue string

// UnmarshalJSON accepts "0.0001", 0.0001 and null.
func (r *RateValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = RateValue(s)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to decode rate %s: %w", string(data), err)
	}
	*r = RateValue(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// Float parses the rate. An absent or malformed value is an error so callers
// can skip the symbol instead of storing a silent zero.
func (r RateValue) Float() (float64, error) {
	v, err := strconv.ParseFloat(string(r), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rate %q: %w", string(r), err)
	}
	return v, nil
}
