// Package pricing re-evaluates closed trade pairs against volume-weighted
// average prices over configurable time windows. The two strategy families
// deliberately differ in what they touch: minute-based averaging rewrites
// prices and realized pnl, while timeframe- and symbol-based averaging only
// re-derive the Profit/Loss classification and leave pnl amounts alone.
package pricing

import (
	"fmt"
	"time"

	"pnlmonitor/internal/domain"
)

// Strategy mode names, as they appear in configuration.
const (
	ModeOff       = "off"
	ModeMinute    = "minute"
	ModeTimeframe = "timeframe"
	ModeSymbol    = "symbol"
)

// Strategy transforms a list of closed trade pairs in place and returns it.
// Exactly one strategy is active per cycle.
type Strategy interface {
	Name() string
	Apply(pairs []*domain.TradePair) []*domain.TradePair
}

// ForMode builds the strategy for a configuration mode. timeframeMinutes is
// only consulted for ModeTimeframe.
func ForMode(mode string, timeframeMinutes int) (Strategy, error) {
	switch mode {
	case ModeOff, "":
		return passthrough{}, nil
	case ModeMinute:
		return minuteStrategy{}, nil
	case ModeTimeframe:
		if timeframeMinutes < 1 || timeframeMinutes > 60 {
			return nil, fmt.Errorf("timeframe must be between 1 and 60 minutes, got %d", timeframeMinutes)
		}
		return windowStrategy{window: time.Duration(timeframeMinutes) * time.Minute}, nil
	case ModeSymbol:
		return symbolStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown pricing mode %q", mode)
	}
}

// passthrough leaves pairs untouched (averaging disabled).
type passthrough struct{}

func (passthrough) Name() string { return ModeOff }

func (passthrough) Apply(pairs []*domain.TradePair) []*domain.TradePair { return pairs }

// bucketKey identifies one VWAP group: a symbol and a truncated leg time.
// Symbol-wide grouping uses the zero time for every leg.
type bucketKey struct {
	symbol string
	bucket time.Time
}

type vwapAccum struct {
	notional float64
	quantity float64
}

// legAverages computes the volume-weighted average price of the buy and sell
// legs of the given pairs, grouped by the supplied bucketing function.
func legAverages(pairs []*domain.TradePair, bucket func(time.Time) time.Time) (buyAvg, sellAvg map[bucketKey]float64) {
	buyAcc := make(map[bucketKey]*vwapAccum)
	sellAcc := make(map[bucketKey]*vwapAccum)

	accumulate := func(acc map[bucketKey]*vwapAccum, key bucketKey, price, qty float64) {
		a, ok := acc[key]
		if !ok {
			a = &vwapAccum{}
			acc[key] = a
		}
		a.notional += price * qty
		a.quantity += qty
	}

	for _, p := range pairs {
		accumulate(buyAcc, bucketKey{p.Symbol, bucket(p.BuyTime)}, p.BuyPrice, p.Quantity)
		accumulate(sellAcc, bucketKey{p.Symbol, bucket(p.SellTime)}, p.SellPrice, p.Quantity)
	}

	buyAvg = make(map[bucketKey]float64, len(buyAcc))
	for k, a := range buyAcc {
		if a.quantity > 0 {
			buyAvg[k] = a.notional / a.quantity
		}
	}
	sellAvg = make(map[bucketKey]float64, len(sellAcc))
	for k, a := range sellAcc {
		if a.quantity > 0 {
			sellAvg[k] = a.notional / a.quantity
		}
	}
	return buyAvg, sellAvg
}
