// Package analytics reduces matched trade pairs into performance metrics.
package analytics

import (
	"math"
	"sort"

	"pnlmonitor/internal/domain"
)

// sortinoFloor is the downside-deviation floor used when fewer than two
// negative returns exist, so the ratio stays defined.
const sortinoFloor = 1e-4

// Snapshot holds one complete set of performance metrics computed from a
// trade-pair collection. It is recomputed in full on every pass; the zero
// value is the empty-input result.
type Snapshot struct {
	DayPnL float64

	TotalTrades  int
	ProfitTrades int
	LosingTrades int

	ProfitRate   float64 // Percent of trades that were profitable
	AvgProfit    float64
	AvgLoss      float64 // Negative or zero
	ProfitFactor float64 // +Inf when there are profits but no losses

	SharpeRatio  float64
	SortinoRatio float64

	MaxDrawdown    float64
	MaxDrawdownPct float64

	AvgTradeDuration float64 // Minutes
	Expectancy       float64

	ConsecutiveProfits    int
	ConsecutiveLosses     int
	MaxConsecutiveProfits int
	MaxConsecutiveLosses  int

	LargestProfit     float64
	LargestLoss       float64 // Negative or zero
	ProfitLossRatio   float64 // +Inf when avgLoss is zero but avgProfit positive
	StandardDeviation float64
}

// Compute calculates the full metrics snapshot from trade pairs. An empty
// input yields the zero snapshot.
func Compute(pairs []*domain.TradePair) Snapshot {
	var m Snapshot
	if len(pairs) == 0 {
		return m
	}

	// Work on a copy ordered by sell time; drawdown and streaks are
	// sequence-dependent.
	ordered := make([]*domain.TradePair, len(pairs))
	copy(ordered, pairs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SellTime.Before(ordered[j].SellTime)
	})

	var (
		profitPnls, lossPnls []float64
		allPnls              []float64
		returns              []float64
		totalDuration        float64
	)
	for _, p := range ordered {
		allPnls = append(allPnls, p.PnL)
		returns = append(returns, p.PnLPercent/100)
		totalDuration += p.DurationMinutes
		switch {
		case p.PnL > 0:
			profitPnls = append(profitPnls, p.PnL)
		case p.PnL < 0:
			lossPnls = append(lossPnls, p.PnL)
		}
	}

	m.TotalTrades = len(ordered)
	m.ProfitTrades = len(profitPnls)
	m.LosingTrades = len(lossPnls)
	m.ProfitRate = float64(m.ProfitTrades) / float64(m.TotalTrades) * 100

	m.AvgProfit = mean(profitPnls)
	m.AvgLoss = mean(lossPnls)

	totalProfit := sum(profitPnls)
	totalLoss := math.Abs(sum(lossPnls))
	m.DayPnL = totalProfit - totalLoss

	switch {
	case totalLoss > 0:
		m.ProfitFactor = totalProfit / totalLoss
	case totalProfit > 0:
		m.ProfitFactor = math.Inf(1)
	}

	if sd := sampleStdDev(returns); sd > 0 {
		m.SharpeRatio = mean(returns) / sd
	}

	var negReturns []float64
	for _, r := range returns {
		if r < 0 {
			negReturns = append(negReturns, r)
		}
	}
	downside := sortinoFloor
	if len(negReturns) > 1 {
		if sd := sampleStdDev(negReturns); sd > 0 {
			downside = sd
		}
	}
	m.SortinoRatio = mean(returns) / downside

	m.MaxDrawdown, m.MaxDrawdownPct = drawdown(ordered)

	m.AvgTradeDuration = totalDuration / float64(m.TotalTrades)
	m.Expectancy = m.AvgProfit*m.ProfitRate/100 + m.AvgLoss*(1-m.ProfitRate/100)

	m.ConsecutiveProfits, m.ConsecutiveLosses,
		m.MaxConsecutiveProfits, m.MaxConsecutiveLosses = streaks(ordered)

	if len(profitPnls) > 0 {
		m.LargestProfit = maxOf(profitPnls)
	}
	if len(lossPnls) > 0 {
		m.LargestLoss = minOf(lossPnls)
	}

	switch {
	case m.AvgLoss != 0:
		m.ProfitLossRatio = math.Abs(m.AvgProfit / m.AvgLoss)
	case m.AvgProfit > 0:
		m.ProfitLossRatio = math.Inf(1)
	}

	m.StandardDeviation = sampleStdDev(allPnls)

	return m
}

// RawPnL computes a display-only pnl directly from raw executions: sells
// contribute positively, buys negatively, commissions always subtract. Used
// as a fallback before any pair has closed; open exposure makes it unfit
// for real accounting.
func RawPnL(execs []*domain.Execution) float64 {
	var pnl float64
	for _, e := range execs {
		value := e.Quantity * e.Price
		if e.IsBuy() {
			value = -value
		}
		pnl += value - e.Commission
	}
	return pnl
}

// drawdown walks the cumulative pnl series (pairs already ordered by sell
// time) tracking the running maximum, and returns the deepest gap in
// dollars and as a percentage of the peak at that point.
func drawdown(ordered []*domain.TradePair) (maxDD, maxDDPct float64) {
	var cumulative, runningMax float64
	for i, p := range ordered {
		cumulative += p.PnL
		if i == 0 || cumulative > runningMax {
			runningMax = cumulative
		}
		dd := runningMax - cumulative
		if dd > maxDD {
			maxDD = dd
		}
		if runningMax > 0 {
			if pct := dd / runningMax * 100; pct > maxDDPct {
				maxDDPct = pct
			}
		}
	}
	return maxDD, maxDDPct
}

// streaks scans results in sell-time order and tracks the current and
// maximum consecutive profit/loss runs independently.
func streaks(ordered []*domain.TradePair) (curProfit, curLoss, maxProfit, maxLoss int) {
	for i, p := range ordered {
		if p.Result == domain.ResultProfit {
			if i > 0 && ordered[i-1].Result == domain.ResultProfit {
				curProfit++
			} else {
				curProfit = 1
			}
			curLoss = 0
			if curProfit > maxProfit {
				maxProfit = curProfit
			}
		} else {
			if i > 0 && ordered[i-1].Result != domain.ResultProfit {
				curLoss++
			} else {
				curLoss = 1
			}
			curProfit = 0
			if curLoss > maxLoss {
				maxLoss = curLoss
			}
		}
	}
	return curProfit, curLoss, maxProfit, maxLoss
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return sum(xs) / float64(len(xs))
}

// sampleStdDev returns the sample standard deviation (n-1 divisor), or 0
// when fewer than two values exist.
func sampleStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}
