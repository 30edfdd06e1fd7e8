package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/samnmbuguah/FundingRate/internal/cache"
	"github.com/samnmbuguah/FundingRate/internal/collector"
	"github.com/samnmbuguah/FundingRate/internal/funding"
)

// DefaultHistoryHours is the trailing window served when no hours parameter
// is given, matching the two-day ranking window.
const DefaultHistoryHours = 48

// Handler serves the funding endpoints. Reads never trigger fetches: ranked
// sets come from published snapshots, series from the store, latest samples
// from the cache with the store as fallback.
type Handler struct {
	store     funding.Store
	cacher    cache.Cacher
	status    *collector.StatusTracker
	snapshots *collector.Snapshots
}

// NewHandler creates a new handler
func NewHandler(store funding.Store, cacher cache.Cacher, status *collector.StatusTracker, snapshots *collector.Snapshots) *Handler {
	return &Handler{
		store:     store,
		cacher:    cacher,
		status:    status,
		snapshots: snapshots,
	}
}

// GetOpportunities returns the last published opportunity set for an exchange
func (h *Handler) GetOpportunities(c *gin.Context) {
	exchange := c.Param("exchange")
	if !funding.IsSupportedExchange(exchange) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown exchange %q", exchange)})
		return
	}

	set, ok := h.snapshots.Get(exchange)
	if !ok {
		// Nothing published yet: an empty set, not an error.
		set = &funding.OpportunitySet{
			Exchange:    exchange,
			TopLong:     []*funding.AggregatedRate{},
			TopShort:    []*funding.AggregatedRate{},
			GeneratedAt: time.Now().UTC(),
		}
	}

	c.JSON(http.StatusOK, set)
}

// GetHistory returns the stored rate series for one symbol
func (h *Handler) GetHistory(c *gin.Context) {
	exchange := c.Param("exchange")
	symbol := c.Param("symbol")
	if !funding.IsSupportedExchange(exchange) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown exchange %q", exchange)})
		return
	}

	hours := DefaultHistoryHours
	if raw := c.Query("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "hours must be a positive integer"})
			return
		}
		hours = parsed
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	samples, err := h.store.Query(c.Request.Context(), exchange, symbol, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	points := make([]*funding.HistoryPoint, 0, len(samples))
	for _, sample := range samples {
		points = append(points, &funding.HistoryPoint{Timestamp: sample.ObservedAt, Rate: sample.Rate})
	}

	c.JSON(http.StatusOK, HistoryResponse{
		Exchange: exchange,
		Symbol:   symbol,
		Hours:    hours,
		Points:   points,
	})
}

// GetLatest returns the most recent stored sample for one symbol
func (h *Handler) GetLatest(c *gin.Context) {
	exchange := c.Param("exchange")
	symbol := c.Param("symbol")
	if !funding.IsSupportedExchange(exchange) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown exchange %q", exchange)})
		return
	}

	if h.cacher != nil {
		if sample, err := h.cacher.GetLatestSample(c.Request.Context(), exchange, symbol); err == nil {
			c.JSON(http.StatusOK, sample)
			return
		}
	}

	sample, err := h.store.Latest(c.Request.Context(), exchange, symbol)
	if err != nil {
		if errors.Is(err, funding.ErrNoData) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no samples for %s/%s", exchange, symbol)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sample)
}

// GetSummary returns stored-series diagnostics for an exchange
func (h *Handler) GetSummary(c *gin.Context) {
	exchange := c.Param("exchange")
	if !funding.IsSupportedExchange(exchange) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown exchange %q", exchange)})
		return
	}

	summary, err := h.store.Summary(c.Request.Context(), exchange)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetStatus returns the fetch scheduler state
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.status.Snapshot())
}

// GetLegacyRates serves the original funding_rates contract for the lighter
// feed: symbol plus two-day average, ten entries per side.
func (h *Handler) GetLegacyRates(c *gin.Context) {
	resp := LegacyRatesResponse{
		TopLong:   []LegacyRate{},
		TopShort:  []LegacyRate{},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	set, ok := h.snapshots.Get(funding.ExchangeLighter)
	if !ok {
		c.JSON(http.StatusOK, resp)
		return
	}

	resp.Timestamp = set.GeneratedAt.UTC().Format(time.RFC3339)
	for _, agg := range set.TopLong {
		resp.TopLong = append(resp.TopLong, LegacyRate{Symbol: agg.Symbol, Average2DayRate: agg.AverageRate})
	}
	for _, agg := range set.TopShort {
		resp.TopShort = append(resp.TopShort, LegacyRate{Symbol: agg.Symbol, Average2DayRate: agg.AverageRate})
	}

	c.JSON(http.StatusOK, resp)
}
