package main

import (
	"fmt"
	"math"

	"pnlmonitor/internal/analytics"
	"pnlmonitor/internal/session"
)

// printSnapshot writes the live session state to stdout.
func printSnapshot(snap session.Snapshot) {
	m := snap.Metrics
	if m.TotalTrades == 0 {
		// No closed pairs yet; fall back to the raw running pnl so the
		// console is not silent while positions are open.
		if len(snap.Executions) > 0 {
			fmt.Printf("--- No closed trades yet | executions: %d | raw P&L: %.2f ---\n",
				len(snap.Executions), analytics.RawPnL(snap.Executions))
		}
		return
	}

	fmt.Printf("--- Day P&L: %.2f | trades: %d (%d W / %d L, %.1f%%) | PF: %s | expectancy: %.2f ---\n",
		m.DayPnL, m.TotalTrades, m.ProfitTrades, m.LosingTrades, m.ProfitRate,
		formatFactor(m.ProfitFactor), m.Expectancy)
	fmt.Printf("    Sharpe: %.2f | Sortino: %.2f | max DD: %.2f (%.1f%%) | avg duration: %.1f min\n",
		m.SharpeRatio, m.SortinoRatio, m.MaxDrawdown, m.MaxDrawdownPct, m.AvgTradeDuration)

	for symbol, qty := range snap.OpenPositions {
		fmt.Printf("    open: %s %g shares\n", symbol, qty)
	}
}

// printHistoryReport writes per-day summaries and overall statistics for the
// persisted trade history.
func printHistoryReport(days []analytics.DaySummary, stats analytics.OverallStats) {
	fmt.Println("=== Stored trade history ===")
	for _, d := range days {
		fmt.Printf("  %s  P&L: %10.2f  trades: %3d  win rate: %5.1f%%  PF: %s\n",
			d.Date, d.PnL, d.Trades, d.ProfitRate, formatFactor(d.ProfitFactor))
	}
	fmt.Printf("  %d trading days | total P&L: %.2f | avg day: %.2f | best: %s (%.2f) | worst: %s (%.2f)\n",
		stats.TradingDays, stats.TotalPnL, stats.AvgDayPnL,
		stats.BestDay.Date, stats.BestDay.PnL, stats.WorstDay.Date, stats.WorstDay.PnL)
}

func formatFactor(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", f)
}
