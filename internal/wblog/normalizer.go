package wblog

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	simplejson "github.com/bitly/go-simplejson"

	"pnlmonitor/internal/domain"
)

// Reject describes one order item the normalizer refused, with enough detail
// for the cycle diagnostics. Rejects are diagnostics, not errors: the stream
// continues.
type Reject struct {
	OrderID string
	Reason  string
}

func (r Reject) String() string {
	if r.OrderID == "" {
		return r.Reason
	}
	return fmt.Sprintf("order %s: %s", r.OrderID, r.Reason)
}

// Normalizer converts decoded order items into canonical Executions and
// holds the global seen-orderId set. The set is the sole mechanism against
// double-counting fills reported repeatedly across successive reads of a
// growing file; it is only cleared by an explicit Reset.
type Normalizer struct {
	seen map[string]struct{}
}

func NewNormalizer() *Normalizer {
	return &Normalizer{seen: make(map[string]struct{})}
}

// Reset clears the seen-orderId set.
func (n *Normalizer) Reset() {
	n.seen = make(map[string]struct{})
}

// SeenCount returns the number of distinct orderIds observed so far.
func (n *Normalizer) SeenCount() int {
	return len(n.seen)
}

// Normalize validates one order item and converts it into an Execution.
// Returns (nil, nil) for a duplicate orderId (silent drop) and (nil, reject)
// for a malformed item. On success the orderId is recorded as seen.
func (n *Normalizer) Normalize(item *simplejson.Json) (*domain.Execution, *Reject) {
	orderID := stringField(item, "id")
	if orderID != "" {
		if _, dup := n.seen[orderID]; dup {
			return nil, nil
		}
	}

	action := stringField(item, "action")
	status := stringField(item, "status")

	// For partial fills only the filled quantity is trustworthy; the total
	// quantity covers the whole parent order.
	var quantity float64
	var haveQty bool
	if status == string(domain.StatusPartialFilled) {
		quantity, haveQty = floatField(item, "filledQuantity")
	} else {
		if quantity, haveQty = floatField(item, "filledQuantity"); !haveQty {
			quantity, haveQty = floatField(item, "totalQuantity")
		}
	}

	// avgFilledPrice is the authoritative fill price; Price is a legacy
	// fallback seen in older payloads.
	price, havePrice := floatField(item, "avgFilledPrice")
	if !havePrice {
		price, havePrice = floatField(item, "Price")
	}

	filledTime := stringField(item, "filledTime")
	if filledTime == "" {
		filledTime = stringField(item, "updateTime")
	}

	// The ticker may be a nested object or the symbol may sit directly on
	// the item, depending on payload shape.
	symbol := ""
	exchange := ""
	if ticker := item.Get("ticker"); ticker != nil {
		if _, err := ticker.Map(); err == nil {
			symbol = stringField(ticker, "symbol")
			exchange = stringField(ticker, "disExchangeCode")
		}
	}
	if symbol == "" {
		symbol = stringField(item, "symbol")
	}

	var missing []string
	if action == "" {
		missing = append(missing, "action")
	}
	if !haveQty {
		missing = append(missing, "filledQuantity")
	}
	if !havePrice {
		missing = append(missing, "avgFilledPrice")
	}
	if filledTime == "" {
		missing = append(missing, "filledTime")
	}
	if symbol == "" {
		missing = append(missing, "symbol")
	}
	if len(missing) > 0 {
		return nil, &Reject{OrderID: orderID, Reason: "missing required fields: " + strings.Join(missing, ", ")}
	}

	if quantity <= 0 {
		return nil, &Reject{OrderID: orderID, Reason: fmt.Sprintf("non-positive quantity %g", quantity)}
	}

	var side domain.OrderSide
	switch strings.ToUpper(action) {
	case string(domain.Buy):
		side = domain.Buy
	case string(domain.Sell):
		side = domain.Sell
	default:
		return nil, &Reject{OrderID: orderID, Reason: fmt.Sprintf("unknown action %q", action)}
	}

	ts, err := parseFillTime(filledTime)
	if err != nil {
		return nil, &Reject{OrderID: orderID, Reason: fmt.Sprintf("unparsable timestamp %q", filledTime)}
	}

	commission, _ := floatField(item, "fee")

	execStatus := domain.StatusFilled
	if status == string(domain.StatusPartialFilled) {
		execStatus = domain.StatusPartialFilled
	}

	if orderID != "" {
		n.seen[orderID] = struct{}{}
	}

	return &domain.Execution{
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		Commission: commission,
		Timestamp:  ts,
		OrderID:    orderID,
		Status:     execStatus,
		Exchange:   exchange,
	}, nil
}

var (
	// "25/04/2025 09:22:44 EDT": day-first date with a timezone suffix.
	tzSuffixRe = regexp.MustCompile(`^(\d{2}/\d{2}/\d{4})\s+(\d{2}:\d{2}:\d{2})\s+\w+$`)
	// Generic "<date> <clock> [TZ]" split.
	dateClockRe = regexp.MustCompile(`^(.+?)\s+([0-9:]+)(?:\s+(\w+))?$`)
)

var dateLayouts = []string{
	"02/01/2006",
	"01/02/2006",
	"Jan 2,2006",
	"Jan 2, 2006",
	"2006-01-02",
}

// parseFillTime normalizes the several timestamp formats the producer emits
// into a single local time. Day-first dates are preferred where ambiguous,
// matching the format observed with the timezone suffix.
func parseFillTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	if m := tzSuffixRe.FindStringSubmatch(s); m != nil {
		for _, layout := range []string{"02/01/2006 15:04:05", "01/02/2006 15:04:05"} {
			if t, err := time.ParseInLocation(layout, m[1]+" "+m[2], time.Local); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date in %q", s)
	}

	m := dateClockRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
	}

	clock, err := parseClock(m[2])
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range dateLayouts {
		if d, err := time.ParseInLocation(layout, m[1], time.Local); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(),
				clock.Hour(), clock.Minute(), clock.Second(), 0, time.Local), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date in %q", s)
}

func parseClock(s string) (time.Time, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized clock %q", s)
}
