// Package wblog extracts structured execution records from the Webull
// desktop application's append-only log files. The producing process is not
// cooperative: files may be half-written, exclusively locked, or contain
// corrupt lines, so everything here is log-and-skip rather than fail-fast.
package wblog

import (
	"regexp"
	"strconv"
	"strings"

	simplejson "github.com/bitly/go-simplejson"
)

// Marker phrases that precede an embedded order payload. The payload itself
// may sit on the marker line or on one of the few preceding lines.
var payloadMarkers = []string{
	"WBAUOrderSummaryStore::loadAUOrderSummary true",
	"WBOrderListStore::processOrderData true",
	"WBOrderInfoStore::setOrderInfos true",
}

func hasPayloadMarker(line string) bool {
	for _, m := range payloadMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

// The payload encoding varies between log versions: an escaped JSON string
// (object or list) wrapped in quotes, or a bare object/list after "true".
var (
	quotedPayloadRe = regexp.MustCompile(`"({.*})"$|true "(\[.*\])"$|true "({.*})"$`)
	barePayloadRe   = regexp.MustCompile(`true ({.*})$|true (\[.*\])$`)
)

func firstGroup(groups []string) string {
	for _, g := range groups[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// extractJSON locates and decodes the embedded payload in a log line.
// Returns nil when the line carries no decodable payload; a corrupt payload
// is treated the same way so one bad line never stops the stream.
func extractJSON(line string) *simplejson.Json {
	if m := quotedPayloadRe.FindStringSubmatch(line); m != nil {
		part := firstGroup(m)
		if part == "" {
			return nil
		}
		unescaped, err := strconv.Unquote(`"` + part + `"`)
		if err != nil {
			// Unquote is stricter than the producer's escaping; fall back to
			// undoing the two escapes that actually occur.
			unescaped = strings.NewReplacer(`\"`, `"`, `\\`, `\`).Replace(part)
		}
		js, err := simplejson.NewJson([]byte(unescaped))
		if err != nil {
			return nil
		}
		return js
	}

	if m := barePayloadRe.FindStringSubmatch(line); m != nil {
		part := firstGroup(m)
		if part == "" {
			return nil
		}
		js, err := simplejson.NewJson([]byte(part))
		if err != nil {
			return nil
		}
		return js
	}

	return nil
}

// extractOrderItems pulls order items out of a decoded payload. Three known
// shapes are tried in priority order: an order summary ("todayOrders"), a
// direct items object ("items"), and a bare list of orders. Unknown shapes
// yield no candidates, which is not an error.
func extractOrderItems(js *simplejson.Json) []*simplejson.Json {
	if orders, ok := js.CheckGet("todayOrders"); ok {
		var items []*simplejson.Json
		for i := range orders.MustArray() {
			order := orders.GetIndex(i)
			orderItems := order.Get("items")
			for j := range orderItems.MustArray() {
				if item := orderItems.GetIndex(j); itemLooksFilled(item) {
					items = append(items, item)
				}
			}
		}
		return items
	}

	if direct, ok := js.CheckGet("items"); ok {
		var items []*simplejson.Json
		for i := range direct.MustArray() {
			if item := direct.GetIndex(i); itemLooksFilled(item) {
				items = append(items, item)
			}
		}
		return items
	}

	if _, err := js.Array(); err == nil {
		var items []*simplejson.Json
		for i := range js.MustArray() {
			if item := js.GetIndex(i); itemLooksFilled(item) {
				items = append(items, item)
			}
		}
		return items
	}

	return nil
}

// itemLooksFilled accepts items with status Filled or PartialFilled, plus
// items reporting a positive filled quantity under any other status string
// (status vocabularies vary across payload shapes).
func itemLooksFilled(item *simplejson.Json) bool {
	status := item.Get("status").MustString()
	if status == "Filled" || status == "PartialFilled" {
		return true
	}
	if qty, ok := floatField(item, "filledQuantity"); ok && qty > 0 {
		return true
	}
	return false
}

// floatField reads a numeric field that may be encoded as a JSON number or
// as a string.
func floatField(item *simplejson.Json, key string) (float64, bool) {
	j, ok := item.CheckGet(key)
	if !ok {
		return 0, false
	}
	if f, err := j.Float64(); err == nil {
		return f, true
	}
	if i, err := j.Int64(); err == nil {
		return float64(i), true
	}
	if s, err := j.String(); err == nil && s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// stringField reads a field that may be a string or a number (order IDs show
// up both ways).
func stringField(item *simplejson.Json, key string) string {
	j, ok := item.CheckGet(key)
	if !ok {
		return ""
	}
	if s, err := j.String(); err == nil {
		return s
	}
	if i, err := j.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := j.Float64(); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}
