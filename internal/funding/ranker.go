package funding

import (
	"sort"
	"time"
)

// DefaultTopN is how many symbols each ranked list carries.
const DefaultTopN = 10

// Rank builds the opportunity set for one exchange from its aggregates.
// TopLong is ordered by AverageRate ascending (most negative first), TopShort
// descending (most positive first); ties break by symbol name ascending so
// output is deterministic. Lists are truncated to topN after sorting.
func Rank(exchange string, aggregates []*AggregatedRate, topN int, generatedAt time.Time) *OpportunitySet {
	if topN <= 0 {
		topN = DefaultTopN
	}

	ranked := make([]*AggregatedRate, 0, len(aggregates))
	for _, agg := range aggregates {
		if agg == nil || agg.SampleCount == 0 {
			continue
		}
		ranked = append(ranked, agg)
	}

	longs := make([]*AggregatedRate, len(ranked))
	copy(longs, ranked)
	sort.Slice(longs, func(i, j int) bool {
		if longs[i].AverageRate != longs[j].AverageRate {
			return longs[i].AverageRate < longs[j].AverageRate
		}
		return longs[i].Symbol < longs[j].Symbol
	})

	shorts := make([]*AggregatedRate, len(ranked))
	copy(shorts, ranked)
	sort.Slice(shorts, func(i, j int) bool {
		if shorts[i].AverageRate != shorts[j].AverageRate {
			return shorts[i].AverageRate > shorts[j].AverageRate
		}
		return shorts[i].Symbol < shorts[j].Symbol
	})

	if len(longs) > topN {
		longs = longs[:topN]
	}
	if len(shorts) > topN {
		shorts = shorts[:topN]
	}

	return &OpportunitySet{
		Exchange:        exchange,
		TopLong:         longs,
		TopShort:        shorts,
		GeneratedAt:     generatedAt.UTC(),
		NextFundingTime: earliestFunding(longs, shorts),
	}
}

// earliestFunding returns the soonest known next-funding time across the
// ranked symbols, or nil when no venue supplied one.
func earliestFunding(lists ...[]*AggregatedRate) *time.Time {
	var earliest *time.Time
	for _, list := range lists {
		for _, agg := range list {
			if agg.NextFundingAt == nil {
				continue
			}
			if earliest == nil || agg.NextFundingAt.Before(*earliest) {
				t := *agg.NextFundingAt
				earliest = &t
			}
		}
	}
	return earliest
}
