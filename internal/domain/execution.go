package domain

import "time"

// Execution represents one recorded fill event extracted from the log stream.
// An Execution is immutable once created by the normalizer.
type Execution struct {
	Symbol     string      // Trading symbol (e.g., "AAPL")
	Side       OrderSide   // BUY or SELL
	Quantity   float64     // Filled quantity, always > 0
	Price      float64     // Average fill price
	Commission float64     // Commission/fee for this fill, >= 0
	Timestamp  time.Time   // Fill time, source local time
	OrderID    string      // Globally unique per fill event; dedup key
	Status     OrderStatus // Filled or PartialFilled
	Exchange   string      // Exchange code, optional
}

// Date returns the trading day of the execution as YYYY-MM-DD.
func (e *Execution) Date() string {
	return e.Timestamp.Format("2006-01-02")
}

// IsBuy reports whether the execution is a buy fill.
func (e *Execution) IsBuy() bool {
	return e.Side == Buy
}
