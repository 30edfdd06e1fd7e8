package lighter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/samnmbuguah/FundingRate/internal/exchange"
	"github.com/samnmbuguah/FundingRate/internal/funding"
)

// DefaultBaseURL is the Lighter mainnet API.
const DefaultBaseURL = "https://mainnet.zklighter.elliot.ai/api/v1"

// DefaultSymbols is the fallback universe used when no snapshot is available.
var DefaultSymbols = []string{
	"WETH-USDC", "WBTC-USDC", "SOL-USDC", "MATIC-USDC", "ARB-USDC",
	"AVAX-USDC", "OP-USDC", "LINK-USDC", "DOGE-USDC", "BNB-USDC",
}

// Config configures the Lighter client.
type Config struct {
	BaseURL            string
	Symbols            []string
	MinRequestInterval time.Duration
	Timeout            time.Duration
}

// Client fetches funding rates from the Lighter exchange. One funding-rates
// call covers every market, so Refresh snapshots the whole payload and
// FetchRate serves symbols from that snapshot without re-hitting the API.
type Client struct {
	baseURL    string
	fallback   []string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu          sync.RWMutex
	rates       map[string]exchange.RateValue
	refreshedAt time.Time
}

// NewClient creates a new Lighter API client.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	fallback := cfg.Symbols
	if len(fallback) == 0 {
		fallback = DefaultSymbols
	}
	interval := cfg.MinRequestInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:  baseURL,
		fallback: fallback,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Name returns the exchange identifier.
func (c *Client) Name() string {
	return funding.ExchangeLighter
}

// Refresh fetches the venue-wide funding snapshot.
func (c *Client) Refresh(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &exchange.FetchError{Exchange: c.Name(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/funding-rates", nil)
	if err != nil {
		return &exchange.FetchError{Exchange: c.Name(), Err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &exchange.FetchError{Exchange: c.Name(), Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &exchange.FetchError{Exchange: c.Name(), Err: fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))}
	}

	entries, err := decodeEntries(resp.Body)
	if err != nil {
		return &exchange.FetchError{Exchange: c.Name(), Err: err}
	}

	rates := make(map[string]exchange.RateValue, len(entries))
	for _, entry := range entries {
		if entry.Symbol == "" {
			continue
		}
		rates[entry.Symbol] = entry.Rate
	}

	c.mu.Lock()
	c.rates = rates
	c.refreshedAt = time.Now().UTC()
	c.mu.Unlock()

	return nil
}

// Symbols returns the markets in the current snapshot, or the fallback
// universe when no snapshot has been taken yet.
func (c *Client) Symbols(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.rates) == 0 {
		out := make([]string, len(c.fallback))
		copy(out, c.fallback)
		sort.Strings(out)
		return out, nil
	}

	symbols := make([]string, 0, len(c.rates))
	for symbol := range c.rates {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// FetchRate returns the snapshot rate for one symbol. All samples from one
// cycle share the snapshot's observation time.
func (c *Client) FetchRate(ctx context.Context, symbol string) (*funding.RateSample, error) {
	c.mu.RLock()
	raw, ok := c.rates[symbol]
	observedAt := c.refreshedAt
	c.mu.RUnlock()

	if observedAt.IsZero() {
		return nil, &exchange.FetchError{Exchange: c.Name(), Symbol: symbol, Err: errors.New("no funding snapshot available")}
	}
	if !ok {
		return nil, &exchange.FetchError{Exchange: c.Name(), Symbol: symbol, Err: errors.New("symbol missing from funding snapshot")}
	}

	value, err := raw.Float()
	if err != nil {
		return nil, &exchange.FetchError{Exchange: c.Name(), Symbol: symbol, Err: err}
	}

	next := exchange.NextFundingHour(observedAt)
	return &funding.RateSample{
		Exchange:      c.Name(),
		Symbol:        symbol,
		Rate:          value,
		ObservedAt:    observedAt,
		NextFundingAt: &next,
	}, nil
}

type fundingEntry struct {
	Symbol string             `json:"symbol"`
	Rate   exchange.RateValue `json:"rate"`
}

// decodeEntries handles both response shapes the endpoint has used:
// {"funding_rates": [...]} and a bare list.
func decodeEntries(r io.Reader) ([]fundingEntry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var wrapped struct {
		FundingRates []fundingEntry `json:"funding_rates"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.FundingRates != nil {
		return wrapped.FundingRates, nil
	}

	var list []fundingEntry
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to decode funding rates response: %w", err)
	}
	return list, nil
}
