package wblog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pnlmonitor/internal/domain"
)

func TestNormalize_FullItem(t *testing.T) {
	n := NewNormalizer()
	item := mustJSON(t, `{
		"id": "o1",
		"action": "Buy",
		"status": "Filled",
		"filledQuantity": 100,
		"avgFilledPrice": 10.25,
		"filledTime": "25/04/2025 09:22:44 EDT",
		"fee": 0.35,
		"ticker": {"symbol": "AAPL", "disExchangeCode": "NSQ"}
	}`)

	exec, rej := n.Normalize(item)
	require.Nil(t, rej)
	require.NotNil(t, exec)

	assert.Equal(t, "AAPL", exec.Symbol)
	assert.Equal(t, domain.Buy, exec.Side)
	assert.Equal(t, 100.0, exec.Quantity)
	assert.Equal(t, 10.25, exec.Price)
	assert.Equal(t, 0.35, exec.Commission)
	assert.Equal(t, "o1", exec.OrderID)
	assert.Equal(t, domain.StatusFilled, exec.Status)
	assert.Equal(t, "NSQ", exec.Exchange)

	// Day-first date: 25 April, not the 4th of the 25th month.
	want := time.Date(2025, time.April, 25, 9, 22, 44, 0, time.Local)
	assert.True(t, exec.Timestamp.Equal(want), "got %v", exec.Timestamp)
}

func TestNormalize_DuplicateOrderIDDroppedSilently(t *testing.T) {
	n := NewNormalizer()
	raw := `{
		"id": "o1", "action": "Sell", "status": "Filled",
		"filledQuantity": 10, "avgFilledPrice": 5,
		"filledTime": "25/04/2025 10:00:00 EDT", "symbol": "TSLA"
	}`

	exec, rej := n.Normalize(mustJSON(t, raw))
	require.NotNil(t, exec)
	require.Nil(t, rej)

	exec, rej = n.Normalize(mustJSON(t, raw))
	assert.Nil(t, exec)
	assert.Nil(t, rej)
	assert.Equal(t, 1, n.SeenCount())
}

func TestNormalize_PartialFillRequiresFilledQuantity(t *testing.T) {
	n := NewNormalizer()

	// totalQuantity must not be used for a partial fill.
	item := mustJSON(t, `{
		"id": "o2", "action": "Buy", "status": "PartialFilled",
		"totalQuantity": 100, "avgFilledPrice": 10,
		"filledTime": "25/04/2025 09:30:00 EDT", "symbol": "AAPL"
	}`)
	exec, rej := n.Normalize(item)
	assert.Nil(t, exec)
	require.NotNil(t, rej)
	assert.Contains(t, rej.Reason, "filledQuantity")

	item = mustJSON(t, `{
		"id": "o3", "action": "Buy", "status": "PartialFilled",
		"filledQuantity": 40, "totalQuantity": 100, "avgFilledPrice": 10,
		"filledTime": "25/04/2025 09:30:00 EDT", "symbol": "AAPL"
	}`)
	exec, rej = n.Normalize(item)
	require.Nil(t, rej)
	require.NotNil(t, exec)
	assert.Equal(t, 40.0, exec.Quantity)
	assert.Equal(t, domain.StatusPartialFilled, exec.Status)
}

func TestNormalize_FallbackFields(t *testing.T) {
	n := NewNormalizer()
	// No filledQuantity, avgFilledPrice, filledTime or nested ticker:
	// the normalizer falls back to totalQuantity, Price, updateTime and
	// the flat symbol.
	item := mustJSON(t, `{
		"id": "o4", "action": "Sell", "status": "Filled",
		"totalQuantity": 25, "Price": "9.75",
		"updateTime": "2025-04-25 15:55:01", "symbol": "AMD"
	}`)

	exec, rej := n.Normalize(item)
	require.Nil(t, rej)
	require.NotNil(t, exec)
	assert.Equal(t, "AMD", exec.Symbol)
	assert.Equal(t, 25.0, exec.Quantity)
	assert.Equal(t, 9.75, exec.Price)
	assert.Equal(t, domain.Sell, exec.Side)
	assert.Equal(t, time.Date(2025, time.April, 25, 15, 55, 1, 0, time.Local), exec.Timestamp)
}

func TestNormalize_MissingFieldsRejected(t *testing.T) {
	n := NewNormalizer()
	item := mustJSON(t, `{"id": "o5", "status": "Filled"}`)

	exec, rej := n.Normalize(item)
	assert.Nil(t, exec)
	require.NotNil(t, rej)
	assert.Equal(t, "o5", rej.OrderID)
	assert.Contains(t, rej.Reason, "missing required fields")
	assert.Contains(t, rej.Reason, "action")
	assert.Contains(t, rej.Reason, "symbol")
}

func TestNormalize_UnknownActionRejected(t *testing.T) {
	n := NewNormalizer()
	item := mustJSON(t, `{
		"id": "o6", "action": "Short", "status": "Filled",
		"filledQuantity": 10, "avgFilledPrice": 5,
		"filledTime": "25/04/2025 10:00:00 EDT", "symbol": "TSLA"
	}`)

	exec, rej := n.Normalize(item)
	assert.Nil(t, exec)
	require.NotNil(t, rej)
	assert.Contains(t, rej.Reason, "unknown action")
}

func TestNormalize_NonPositiveQuantityRejected(t *testing.T) {
	n := NewNormalizer()
	item := mustJSON(t, `{
		"id": "o7", "action": "Buy", "status": "Filled",
		"filledQuantity": 0, "avgFilledPrice": 5,
		"filledTime": "25/04/2025 10:00:00 EDT", "symbol": "TSLA"
	}`)

	exec, rej := n.Normalize(item)
	assert.Nil(t, exec)
	require.NotNil(t, rej)
	assert.Contains(t, rej.Reason, "non-positive quantity")
	// A rejected orderId is not marked seen; a corrected record may follow.
	assert.Equal(t, 0, n.SeenCount())
}

func TestNormalize_BadTimestampRejected(t *testing.T) {
	n := NewNormalizer()
	item := mustJSON(t, `{
		"id": "o8", "action": "Buy", "status": "Filled",
		"filledQuantity": 10, "avgFilledPrice": 5,
		"filledTime": "soonish", "symbol": "TSLA"
	}`)

	exec, rej := n.Normalize(item)
	assert.Nil(t, exec)
	require.NotNil(t, rej)
	assert.Contains(t, rej.Reason, "unparsable timestamp")
}

func TestNormalize_NumericOrderID(t *testing.T) {
	n := NewNormalizer()
	item := mustJSON(t, `{
		"id": 987654321, "action": "Buy", "status": "Filled",
		"filledQuantity": 10, "avgFilledPrice": 5,
		"filledTime": "25/04/2025 10:00:00 EDT", "symbol": "TSLA"
	}`)

	exec, rej := n.Normalize(item)
	require.Nil(t, rej)
	require.NotNil(t, exec)
	assert.Equal(t, "987654321", exec.OrderID)
}

func TestParseFillTime_Formats(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"25/04/2025 09:22:44 EDT", time.Date(2025, time.April, 25, 9, 22, 44, 0, time.Local)},
		{"2025-04-25 15:55:01", time.Date(2025, time.April, 25, 15, 55, 1, 0, time.Local)},
		{"Apr 25,2025 09:30", time.Date(2025, time.April, 25, 9, 30, 0, 0, time.Local)},
		{"Apr 25, 2025 09:30:15", time.Date(2025, time.April, 25, 9, 30, 15, 0, time.Local)},
		// Day > 12 forces day-first even without a timezone suffix.
		{"25/04/2025 10:00:00", time.Date(2025, time.April, 25, 10, 0, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		got, err := parseFillTime(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		assert.True(t, got.Equal(tt.want), "input %q: got %v, want %v", tt.in, got, tt.want)
	}
}

func TestParseFillTime_Invalid(t *testing.T) {
	for _, in := range []string{"", "not a time", "99/99/9999 10:00:00"} {
		_, err := parseFillTime(in)
		assert.Error(t, err, "input %q", in)
	}
}
