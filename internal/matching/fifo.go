// Package matching pairs buy and sell executions into closed trades using a
// FIFO policy. Matching is recomputed from the complete execution history on
// every pass; with a single trader's daily volume the O(n) recompute is
// cheaper than staying correct incrementally under partial fills.
package matching

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"pnlmonitor/internal/domain"
)

const (
	// Residual open positions below this magnitude are treated as noise.
	positionEpsilon = 0.01

	// Tolerance for treating two fill quantities as equal after repeated
	// partial-fill subtraction.
	quantityEpsilon = 1e-9
)

// Result holds the output of one matching pass.
type Result struct {
	Pairs []*domain.TradePair
	// OpenPositions maps symbol to signed residual quantity (buys minus
	// sells), recomputed wholesale from the full history as a cross-check
	// against the pairing loop.
	OpenPositions map[string]float64
	// Warnings carries one human-readable line per open position.
	Warnings []string
}

type leg struct {
	exec      *domain.Execution
	remaining float64
}

// Match runs a FIFO matching pass over the full set of executions observed
// so far. The earliest remaining buy is paired with the earliest remaining
// sell whose timestamp is strictly after the buy's; a sell at or before the
// buy's time cannot close it.
func Match(execs []*domain.Execution) *Result {
	res := &Result{OpenPositions: make(map[string]float64)}

	bySymbol := make(map[string][]*domain.Execution)
	for _, e := range execs {
		bySymbol[e.Symbol] = append(bySymbol[e.Symbol], e)
	}

	symbols := make([]string, 0, len(bySymbol))
	for sym := range bySymbol {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		res.Pairs = append(res.Pairs, matchSymbol(bySymbol[sym])...)
	}

	// Residual computed independently of the pairing loop.
	for _, sym := range symbols {
		var buyQty, sellQty float64
		for _, e := range bySymbol[sym] {
			if e.IsBuy() {
				buyQty += e.Quantity
			} else {
				sellQty += e.Quantity
			}
		}
		net := buyQty - sellQty
		if math.Abs(net) > positionEpsilon {
			res.OpenPositions[sym] = net
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("OPEN POSITION: %s has %s shares still open", sym, formatQuantity(net)))
		}
	}

	return res
}

func matchSymbol(execs []*domain.Execution) []*domain.TradePair {
	var buys, sells []*leg
	for _, e := range execs {
		l := &leg{exec: e, remaining: e.Quantity}
		if e.IsBuy() {
			buys = append(buys, l)
		} else {
			sells = append(sells, l)
		}
	}
	sortLegs(buys)
	sortLegs(sells)

	var pairs []*domain.TradePair

	for bi := 0; bi < len(buys); {
		buy := buys[bi]
		if buy.remaining <= quantityEpsilon {
			bi++
			continue
		}

		// Earliest sell strictly after this buy; FIFO, not price-optimal.
		sell := earliestSellAfter(sells, buy.exec.Timestamp)
		if sell == nil {
			// No qualifying sell: the buy stays open, try the next one.
			bi++
			continue
		}

		switch {
		case math.Abs(buy.remaining-sell.remaining) <= quantityEpsilon:
			pairs = append(pairs, domain.NewTradePair(buy.exec, sell.exec, buy.remaining))
			buy.remaining = 0
			sell.remaining = 0
			bi++
		case buy.remaining > sell.remaining:
			pairs = append(pairs, domain.NewTradePair(buy.exec, sell.exec, sell.remaining))
			buy.remaining -= sell.remaining
			sell.remaining = 0
		default: // sell larger
			pairs = append(pairs, domain.NewTradePair(buy.exec, sell.exec, buy.remaining))
			sell.remaining -= buy.remaining
			buy.remaining = 0
			bi++
		}
	}

	return pairs
}

func sortLegs(legs []*leg) {
	sort.SliceStable(legs, func(i, j int) bool {
		return legs[i].exec.Timestamp.Before(legs[j].exec.Timestamp)
	})
}

// formatQuantity renders a share count with at least one decimal place
// ("20.0", "12.5"), the form users of the warning line are used to.
func formatQuantity(q float64) string {
	s := strconv.FormatFloat(q, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func earliestSellAfter(sells []*leg, after time.Time) *leg {
	for _, s := range sells {
		if s.remaining > quantityEpsilon && s.exec.Timestamp.After(after) {
			return s
		}
	}
	return nil
}
