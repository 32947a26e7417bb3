package domain

// OrderSide represents the side of an execution (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// OrderStatus represents the fill status reported for an execution.
// Status vocabularies vary across log payload shapes; these are the two
// values the normalizer accepts outright.
type OrderStatus string

const (
	StatusFilled        OrderStatus = "Filled"
	StatusPartialFilled OrderStatus = "PartialFilled"
)

// TradeResult classifies a closed trade pair.
type TradeResult string

const (
	ResultProfit TradeResult = "Profit"
	ResultLoss   TradeResult = "Loss"
)
