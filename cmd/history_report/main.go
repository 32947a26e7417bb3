// history_report prints per-day summaries and overall statistics for the
// persisted trade history, then exits. Useful for reviewing past days
// without starting the live monitor.
package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"

	"pnlmonitor/config"
	"pnlmonitor/internal/adapters/logger"
	"pnlmonitor/internal/adapters/sqlite"
	"pnlmonitor/internal/analytics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.NewStdLogger(logger.LevelWarn)

	repo, err := sqlite.NewHistoryRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to open trade history: %v", err)
	}
	defer repo.Close()

	history, err := repo.LoadAll(context.Background())
	if err != nil {
		log.Fatalf("FATAL: Failed to load trade history: %v", err)
	}
	if len(history) == 0 {
		fmt.Println("No stored trade history.")
		os.Exit(0)
	}

	days := analytics.DailySummaries(history)
	stats := analytics.Statistics(days)

	fmt.Printf("%-12s %12s %8s %10s %8s\n", "DATE", "PNL", "TRADES", "WIN RATE", "PF")
	for _, d := range days {
		fmt.Printf("%-12s %12.2f %8d %9.1f%% %8s\n",
			d.Date, d.PnL, d.Trades, d.ProfitRate, formatFactor(d.ProfitFactor))
	}

	fmt.Println()
	fmt.Printf("Trading days:      %d\n", stats.TradingDays)
	fmt.Printf("Total trades:      %d\n", stats.TotalTrades)
	fmt.Printf("Total P&L:         %.2f\n", stats.TotalPnL)
	fmt.Printf("Avg day P&L:       %.2f\n", stats.AvgDayPnL)
	fmt.Printf("Avg win rate:      %.1f%%\n", stats.AvgProfitRate)
	fmt.Printf("Avg profit factor: %.2f\n", stats.AvgProfitFactor)
	fmt.Printf("Best day:          %s (%.2f)\n", stats.BestDay.Date, stats.BestDay.PnL)
	fmt.Printf("Worst day:         %s (%.2f)\n", stats.WorstDay.Date, stats.WorstDay.PnL)
}

func formatFactor(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", f)
}
