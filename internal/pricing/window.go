package pricing

import (
	"time"

	"pnlmonitor/internal/domain"
)

// reclassify re-derives only the Profit/Loss result of each pair from the
// averaged leg prices, leaving the pair's pnl amount untouched. The
// asymmetry with the minute strategy is intentional: how a trade is
// categorized is decoupled from how much money it made.
func reclassify(pairs []*domain.TradePair, bucket func(time.Time) time.Time) []*domain.TradePair {
	if len(pairs) == 0 {
		return pairs
	}

	buyAvg, sellAvg := legAverages(pairs, bucket)

	for _, p := range pairs {
		avgBuy, okBuy := buyAvg[bucketKey{p.Symbol, bucket(p.BuyTime)}]
		avgSell, okSell := sellAvg[bucketKey{p.Symbol, bucket(p.SellTime)}]
		if !okBuy || !okSell {
			continue
		}
		adjusted := (avgSell-avgBuy)*p.Quantity - p.BuyCommission - p.SellCommission
		if adjusted > 0 {
			p.Result = domain.ResultProfit
		} else {
			p.Result = domain.ResultLoss
		}
	}
	return pairs
}

// windowStrategy groups legs into fixed windows of the configured width and
// reclassifies results against the window VWAPs.
type windowStrategy struct {
	window time.Duration
}

func (windowStrategy) Name() string { return ModeTimeframe }

func (s windowStrategy) Apply(pairs []*domain.TradePair) []*domain.TradePair {
	return reclassify(pairs, func(t time.Time) time.Time { return t.Truncate(s.window) })
}

// symbolStrategy averages over the whole symbol: every leg of a symbol falls
// into one group regardless of time.
type symbolStrategy struct{}

func (symbolStrategy) Name() string { return ModeSymbol }

func (symbolStrategy) Apply(pairs []*domain.TradePair) []*domain.TradePair {
	return reclassify(pairs, func(time.Time) time.Time { return time.Time{} })
}
