package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pnlmonitor/internal/domain"
)

var base = time.Date(2025, 4, 25, 9, 30, 0, 0, time.Local)

func pair(symbol string, qty, buyPrice, sellPrice float64, buyAt, sellAt time.Time) *domain.TradePair {
	p := &domain.TradePair{
		Symbol:    symbol,
		Quantity:  qty,
		BuyPrice:  buyPrice,
		SellPrice: sellPrice,
		BuyTime:   buyAt,
		SellTime:  sellAt,
	}
	p.Recalculate()
	return p
}

func TestForMode(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		tf       int
		wantName string
		wantErr  bool
	}{
		{name: "off", mode: ModeOff, wantName: ModeOff},
		{name: "empty means off", mode: "", wantName: ModeOff},
		{name: "minute", mode: ModeMinute, wantName: ModeMinute},
		{name: "timeframe", mode: ModeTimeframe, tf: 5, wantName: ModeTimeframe},
		{name: "symbol", mode: ModeSymbol, wantName: ModeSymbol},
		{name: "timeframe too small", mode: ModeTimeframe, tf: 0, wantErr: true},
		{name: "timeframe too large", mode: ModeTimeframe, tf: 61, wantErr: true},
		{name: "unknown", mode: "hourly", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ForMode(tt.mode, tt.tf)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, s.Name())
		})
	}
}

func TestPassthroughLeavesPairsAlone(t *testing.T) {
	p := pair("AAPL", 10, 100, 101, base, base.Add(time.Minute))
	pnlBefore := p.PnL

	s, err := ForMode(ModeOff, 0)
	require.NoError(t, err)
	out := s.Apply([]*domain.TradePair{p})

	require.Len(t, out, 1)
	assert.Equal(t, pnlBefore, out[0].PnL)
	assert.Equal(t, 100.0, out[0].BuyPrice)
}

func TestMinuteStrategyRewritesPricesAndPnL(t *testing.T) {
	// Two pairs bought within the same minute at different prices; the
	// minute VWAP replaces both buy prices.
	p1 := pair("AAPL", 10, 100, 110, base, base.Add(5*time.Minute))
	p2 := pair("AAPL", 30, 104, 110, base.Add(20*time.Second), base.Add(5*time.Minute))

	s, err := ForMode(ModeMinute, 0)
	require.NoError(t, err)
	out := s.Apply([]*domain.TradePair{p1, p2})
	require.Len(t, out, 2)

	// VWAP = (10*100 + 30*104) / 40 = 103
	assert.InDelta(t, 103.0, p1.BuyPrice, 1e-9)
	assert.InDelta(t, 103.0, p2.BuyPrice, 1e-9)

	// PnL is recomputed from the averaged prices.
	assert.InDelta(t, 70.0, p1.PnL, 1e-9)
	assert.InDelta(t, 210.0, p2.PnL, 1e-9)

	// Total pnl is conserved across the rewrite.
	assert.InDelta(t, 100.0+180.0, p1.PnL+p2.PnL, 1e-9)
}

func TestMinuteStrategySeparateMinutesUntouched(t *testing.T) {
	p1 := pair("AAPL", 10, 100, 110, base, base.Add(5*time.Minute))
	p2 := pair("AAPL", 10, 104, 111, base.Add(2*time.Minute), base.Add(8*time.Minute))

	s, _ := ForMode(ModeMinute, 0)
	s.Apply([]*domain.TradePair{p1, p2})

	assert.Equal(t, 100.0, p1.BuyPrice)
	assert.Equal(t, 104.0, p2.BuyPrice)
}

func TestWindowStrategyOnlyChangesResult(t *testing.T) {
	// A small winner and a big loser in the same window: the window VWAPs
	// make the averaged edge negative, so both classify as losses while
	// each pair's pnl stays exactly as matched.
	p1 := pair("AAPL", 10, 100, 101, base, base.Add(time.Minute))      // pnl +10
	p2 := pair("AAPL", 10, 100, 95, base.Add(time.Minute), base.Add(2*time.Minute)) // pnl -50

	require.Equal(t, domain.ResultProfit, p1.Result)

	s, err := ForMode(ModeTimeframe, 5)
	require.NoError(t, err)
	s.Apply([]*domain.TradePair{p1, p2})

	assert.InDelta(t, 10.0, p1.PnL, 1e-9)
	assert.InDelta(t, -50.0, p2.PnL, 1e-9)
	assert.Equal(t, domain.ResultLoss, p1.Result)
	assert.Equal(t, domain.ResultLoss, p2.Result)
}

func TestSymbolStrategyGroupsAcrossTime(t *testing.T) {
	// Hours apart, still one group per symbol.
	p1 := pair("TSLA", 10, 100, 101, base, base.Add(time.Minute))                       // pnl +10
	p2 := pair("TSLA", 10, 100, 95, base.Add(3*time.Hour), base.Add(3*time.Hour+time.Minute)) // pnl -50
	other := pair("AAPL", 10, 50, 51, base, base.Add(time.Minute))

	s, err := ForMode(ModeSymbol, 0)
	require.NoError(t, err)
	s.Apply([]*domain.TradePair{p1, p2, other})

	// TSLA average edge: avgSell (98) - avgBuy (100) < 0.
	assert.Equal(t, domain.ResultLoss, p1.Result)
	assert.Equal(t, domain.ResultLoss, p2.Result)
	// AAPL is unaffected by TSLA's averages.
	assert.Equal(t, domain.ResultProfit, other.Result)

	assert.InDelta(t, 10.0, p1.PnL, 1e-9)
	assert.InDelta(t, -50.0, p2.PnL, 1e-9)
}
