package hyena

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/samnmbuguah/FundingRate/internal/exchange"
	"github.com/samnmbuguah/FundingRate/internal/funding"
)

// HyENA runs as a builder-deployed perp dex on Hyperliquid, so all data comes
// from the standard Hyperliquid info endpoint with a dex qualifier. Coins are
// prefixed on the wire ("hyna:BTC") and stored without the prefix.
const (
	DefaultBaseURL = "https://api.hyperliquid.xyz"
	DefaultDex     = "hyna"
)

// DefaultSymbols is the fallback universe used when the meta call fails.
var DefaultSymbols = []string{"BTC", "ETH", "SOL", "HYPE"}

// Config configures the HyENA client.
type Config struct {
	BaseURL            string
	Dex                string
	Symbols            []string
	HistoryHours       int
	MinRequestInterval time.Duration
	Timeout            time.Duration
}

// Client fetches funding rates for HyENA markets via the Hyperliquid info
// API. Refresh loads the dex universe; FetchRate reads the most recent
// settlement from the funding history.
type Client struct {
	baseURL      string
	dex          string
	fallback     []string
	historyHours int
	httpClient   *http.Client
	limiter      *rate.Limiter

	mu       sync.RWMutex
	universe []string
}

// NewClient creates a new HyENA client.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	dex := cfg.Dex
	if dex == "" {
		dex = DefaultDex
	}
	fallback := cfg.Symbols
	if len(fallback) == 0 {
		fallback = DefaultSymbols
	}
	historyHours := cfg.HistoryHours
	if historyHours <= 0 {
		historyHours = 6
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
		baseURL:      baseURL,
		dex:          dex,
		fallback:     fallback,
		historyHours: historyHours,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Name returns the exchange identifier.
func (c *Client) Name() string {
	return funding.ExchangeHyena
}

// Refresh loads the active coin universe from dex metadata. Delisted coins
// are skipped. On failure the previous universe is kept, so Symbols can still
// serve the last known or fallback list.
func (c *Client) Refresh(ctx context.Context) error {
	var meta struct {
		Universe []struct {
			Name       string `json:"name"`
			IsDelisted bool   `json:"isDelisted"`
		} `json:"universe"`
	}

	err := c.post(ctx, map[string]interface{}{"type": "meta", "dex": c.dex}, &meta)
	if err != nil {
		return &exchange.FetchError{Exchange: c.Name(), Err: fmt.Errorf("failed to load universe: %w", err)}
	}

	symbols := make([]string, 0, len(meta.Universe))
	for _, entry := range meta.Universe {
		if entry.Name == "" || entry.IsDelisted {
			continue
		}
		symbols = append(symbols, c.trimCoin(entry.Name))
	}
	if len(symbols) == 0 {
		return &exchange.FetchError{Exchange: c.Name(), Err: errors.New("universe is empty")}
	}
	sort.Strings(symbols)

	c.mu.Lock()
	c.universe = symbols
	c.mu.Unlock()

	return nil
}

// Symbols returns the last refreshed universe, or the fallback list before
// the first successful refresh.
func (c *Client) Symbols(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	source := c.universe
	if len(source) == 0 {
		source = c.fallback
	}
	out := make([]string, len(source))
	copy(out, source)
	sort.Strings(out)
	return out, nil
}

// FetchRate returns the most recent funding settlement for one symbol. The
// sample's observation time is the settlement time, so repeated cycles within
// one funding interval overwrite the same row instead of duplicating it.
func (c *Client) FetchRate(ctx context.Context, symbol string) (*funding.RateSample, error) {
	now := time.Now().UTC()
	since := now.Add(-time.Duration(c.historyHours) * time.Hour)

	records, err := c.fundingHistory(ctx, symbol, since)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &exchange.FetchError{Exchange: c.Name(), Symbol: symbol, Err: errors.New("no funding history")}
	}

	latest := records[0]
	for _, record := range records[1:] {
		if record.Time > latest.Time {
			latest = record
		}
	}

	value, err := latest.FundingRate.Float()
	if err != nil {
		return nil, &exchange.FetchError{Exchange: c.Name(), Symbol: symbol, Err: err}
	}

	next := exchange.NextFundingHour(now)
	return &funding.RateSample{
		Exchange:      c.Name(),
		Symbol:        symbol,
		Rate:          value,
		ObservedAt:    time.UnixMilli(latest.Time).UTC(),
		NextFundingAt: &next,
	}, nil
}

// FetchHistory replays all settlements for one symbol since the given time,
// letting the collector warm a cold store to a full window in one cycle.
// Records with unparseable rates are skipped.
func (c *Client) FetchHistory(ctx context.Context, symbol string, since time.Time) ([]*funding.RateSample, error) {
	records, err := c.fundingHistory(ctx, symbol, since)
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Time < records[j].Time
	})

	samples := make([]*funding.RateSample, 0, len(records))
	for _, record := range records {
		value, err := record.FundingRate.Float()
		if err != nil {
			continue
		}
		observed := time.UnixMilli(record.Time).UTC()
		next := exchange.NextFundingHour(observed)
		samples = append(samples, &funding.RateSample{
			Exchange:      c.Name(),
			Symbol:        symbol,
			Rate:          value,
			ObservedAt:    observed,
			NextFundingAt: &next,
		})
	}
	return samples, nil
}

type fundingRecord struct {
	Coin        string             `json:"coin"`
	FundingRate exchange.RateValue `json:"fundingRate"`
	Premium     exchange.RateValue `json:"premium"`
	Time        int64              `json:"time"`
}

func (c *Client) fundingHistory(ctx context.Context, symbol string, since time.Time) ([]fundingRecord, error) {
	payload := map[string]interface{}{
		"type":      "fundingHistory",
		"coin":      c.coinName(symbol),
		"startTime": since.UnixMilli(),
	}

	var records []fundingRecord
	if err := c.post(ctx, payload, &records); err != nil {
		return nil, &exchange.FetchError{Exchange: c.Name(), Symbol: symbol, Err: err}
	}
	return records, nil
}

// post sends one rate-limited info request and decodes the response.
func (c *Client) post(ctx context.Context, payload interface{}, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// coinName maps a stored symbol to its wire name, e.g. BTC -> hyna:BTC.
func (c *Client) coinName(symbol string) string {
	if strings.Contains(symbol, ":") {
		return symbol
	}
	return c.dex + ":" + symbol
}

// trimCoin strips the dex prefix from a wire coin name.
func (c *Client) trimCoin(coin string) string {
	return strings.TrimPrefix(coin, c.dex+":")
}
