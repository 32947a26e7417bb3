package domain

import "time"

// TradePair represents one fully or partially closed round trip, produced by
// the FIFO matcher from a buy and a later sell execution. The pricing
// normalizer may rewrite BuyPrice/SellPrice/PnL/Result depending on the
// active strategy; no other stage mutates a pair.
type TradePair struct {
	Symbol          string
	Quantity        float64 // Matched quantity, <= min of the two legs
	BuyPrice        float64
	SellPrice       float64
	BuyTime         time.Time
	SellTime        time.Time
	BuyOrderID      string
	SellOrderID     string
	BuyCommission   float64
	SellCommission  float64
	PnL             float64 // Signed realized profit/loss
	PnLPercent      float64 // PnL relative to total cost, in percent
	TotalCost       float64 // Buy cost plus buy commission
	DurationMinutes float64 // Holding time, >= 0
	Result          TradeResult
	Exchange        string // Taken from the buy leg
	Date            string // Trade date (buy leg), YYYY-MM-DD
}

// NewTradePair builds a pair from a buy and sell leg at the given matched
// quantity. Symbol, exchange and trade date come from the buy leg.
func NewTradePair(buy, sell *Execution, quantity float64) *TradePair {
	p := &TradePair{
		Symbol:         buy.Symbol,
		Quantity:       quantity,
		BuyPrice:       buy.Price,
		SellPrice:      sell.Price,
		BuyTime:        buy.Timestamp,
		SellTime:       sell.Timestamp,
		BuyOrderID:     buy.OrderID,
		SellOrderID:    sell.OrderID,
		BuyCommission:  buy.Commission,
		SellCommission: sell.Commission,
		Exchange:       buy.Exchange,
		Date:           buy.Date(),
	}
	p.Recalculate()
	return p
}

// Recalculate recomputes PnL, PnLPercent, TotalCost, DurationMinutes and
// Result from the pair's current prices, quantity and commissions. Called on
// creation and again after a price-rewriting strategy touches the pair, so
// pnl = (sellPrice-buyPrice)*qty - commissions always holds internally.
func (p *TradePair) Recalculate() {
	buyCost := p.Quantity * p.BuyPrice
	sellProceeds := p.Quantity * p.SellPrice

	totalCost := buyCost + p.BuyCommission
	totalProceeds := sellProceeds - p.SellCommission

	p.TotalCost = totalCost
	p.PnL = totalProceeds - totalCost
	if totalCost > 0 {
		p.PnLPercent = p.PnL / totalCost * 100
	} else {
		p.PnLPercent = 0
	}
	p.DurationMinutes = p.SellTime.Sub(p.BuyTime).Minutes()
	if p.PnL > 0 {
		p.Result = ResultProfit
	} else {
		p.Result = ResultLoss
	}
}
