package analytics

import (
	"math"
	"sort"

	"pnlmonitor/internal/domain"
	"pnlmonitor/internal/matching"
)

// DaySummary condenses one trading day's matched pairs.
type DaySummary struct {
	Date         string
	PnL          float64
	Trades       int
	ProfitRate   float64
	ProfitFactor float64
}

// OverallStats aggregates DaySummary values across the stored history.
type OverallStats struct {
	TradingDays     int
	TotalPnL        float64
	TotalTrades     int
	AvgDayPnL       float64
	AvgProfitRate   float64
	AvgProfitFactor float64 // Averaged over days with a finite factor
	BestDay         DaySummary
	WorstDay        DaySummary
}

// DailySummaries matches each stored day independently and returns one
// summary per day, ordered by date ascending. Days whose executions close
// no pairs still appear, with zero trades.
func DailySummaries(history map[string][]*domain.Execution) []DaySummary {
	dates := make([]string, 0, len(history))
	for d := range history {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	summaries := make([]DaySummary, 0, len(dates))
	for _, date := range dates {
		res := matching.Match(history[date])
		m := Compute(res.Pairs)
		summaries = append(summaries, DaySummary{
			Date:         date,
			PnL:          m.DayPnL,
			Trades:       m.TotalTrades,
			ProfitRate:   m.ProfitRate,
			ProfitFactor: m.ProfitFactor,
		})
	}
	return summaries
}

// Statistics reduces per-day summaries into overall stats. Infinite profit
// factors are excluded from the average so one loss-free day does not
// poison it.
func Statistics(days []DaySummary) OverallStats {
	var s OverallStats
	if len(days) == 0 {
		return s
	}

	s.TradingDays = len(days)
	s.BestDay = days[0]
	s.WorstDay = days[0]

	var finiteFactors []float64
	for _, d := range days {
		s.TotalPnL += d.PnL
		s.TotalTrades += d.Trades
		s.AvgProfitRate += d.ProfitRate
		if !math.IsInf(d.ProfitFactor, 0) {
			finiteFactors = append(finiteFactors, d.ProfitFactor)
		}
		if d.PnL > s.BestDay.PnL {
			s.BestDay = d
		}
		if d.PnL < s.WorstDay.PnL {
			s.WorstDay = d
		}
	}

	s.AvgDayPnL = s.TotalPnL / float64(s.TradingDays)
	s.AvgProfitRate /= float64(s.TradingDays)
	s.AvgProfitFactor = mean(finiteFactors)
	return s
}
