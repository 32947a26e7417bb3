package pricing

import (
	"time"

	"pnlmonitor/internal/domain"
)

// minuteStrategy rewrites each pair's buy and sell prices to the
// volume-weighted average of its minute group, then recomputes pnl, percent,
// result and total cost from the new prices. Unlike the window strategies,
// this changes realized dollar amounts, not just the classification; the
// goal is smoothing fills of a scalped entry or exit into one effective
// price per minute.
type minuteStrategy struct{}

func (minuteStrategy) Name() string { return ModeMinute }

func (minuteStrategy) Apply(pairs []*domain.TradePair) []*domain.TradePair {
	if len(pairs) == 0 {
		return pairs
	}

	truncate := func(t time.Time) time.Time { return t.Truncate(time.Minute) }
	buyAvg, sellAvg := legAverages(pairs, truncate)

	for _, p := range pairs {
		if avg, ok := buyAvg[bucketKey{p.Symbol, truncate(p.BuyTime)}]; ok {
			p.BuyPrice = avg
		}
		if avg, ok := sellAvg[bucketKey{p.Symbol, truncate(p.SellTime)}]; ok {
			p.SellPrice = avg
		}
		p.Recalculate()
	}
	return pairs
}
