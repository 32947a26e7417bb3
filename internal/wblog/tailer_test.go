package wblog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func orderLine(orderID, action string, qty float64) string {
	return fmt.Sprintf(`09:22:44.123 I WBOrderListStore::processOrderData true {"items":[{"id":%q,"action":%q,"status":"Filled","filledQuantity":%g,"avgFilledPrice":10.5,"filledTime":"25/04/2025 09:22:44 EDT","symbol":"AAPL"}]}`,
		orderID, action, qty)
}

func setupTailer(t *testing.T) (*Tailer, string) {
	t.Helper()
	dir := t.TempDir()
	tailer := NewTailer(dir, &mockLogger{})
	return tailer, dir
}

// todayLogName builds a file name the tailer's today filter will pick up.
func todayLogName() string {
	return "app-" + time.Now().Format("01-02") + ".log"
}

// writeLog appends content and backdates the mtime past the modification
// grace window.
func writeLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	old := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(path, old, old))
}

func TestTailer_ScanFindsExecutions(t *testing.T) {
	tailer, dir := setupTailer(t)
	path := filepath.Join(dir, todayLogName())
	writeLog(t, path, "noise line\n"+orderLine("o1", "Buy", 100)+"\n")

	res := tailer.Scan(context.Background())
	require.Len(t, res.Executions, 1)
	assert.Equal(t, "o1", res.Executions[0].OrderID)
	assert.Equal(t, 100.0, res.Executions[0].Quantity)
	assert.Empty(t, res.Rejects)
}

func TestTailer_OffsetResumption(t *testing.T) {
	tailer, dir := setupTailer(t)
	path := filepath.Join(dir, todayLogName())
	writeLog(t, path, orderLine("o1", "Buy", 100)+"\n")

	res := tailer.Scan(context.Background())
	require.Len(t, res.Executions, 1)

	// Nothing appended: nothing new.
	res = tailer.Scan(context.Background())
	assert.Empty(t, res.Executions)

	// Appended content is picked up from the stored offset.
	writeLog(t, path, orderLine("o2", "Sell", 100)+"\n")
	res = tailer.Scan(context.Background())
	require.Len(t, res.Executions, 1)
	assert.Equal(t, "o2", res.Executions[0].OrderID)
}

func TestTailer_DuplicateOrderAcrossScans(t *testing.T) {
	tailer, dir := setupTailer(t)
	path := filepath.Join(dir, todayLogName())
	writeLog(t, path, orderLine("o1", "Buy", 100)+"\n")

	res := tailer.Scan(context.Background())
	require.Len(t, res.Executions, 1)

	// The producer logs the same order again in new content; the orderId
	// set drops it without a reject.
	writeLog(t, path, orderLine("o1", "Buy", 100)+"\n")
	res = tailer.Scan(context.Background())
	assert.Empty(t, res.Executions)
	assert.Empty(t, res.Rejects)
}

func TestTailer_TrailingPartialLineDeferred(t *testing.T) {
	tailer, dir := setupTailer(t)
	path := filepath.Join(dir, todayLogName())

	full := orderLine("o1", "Buy", 100)
	half := full[:len(full)/2]
	writeLog(t, path, half) // no trailing newline

	res := tailer.Scan(context.Background())
	assert.Empty(t, res.Executions)
	assert.Empty(t, res.Rejects)

	// The writer completes the line; the whole record is read intact.
	writeLog(t, path, full[len(full)/2:]+"\n")
	res = tailer.Scan(context.Background())
	require.Len(t, res.Executions, 1)
	assert.Equal(t, "o1", res.Executions[0].OrderID)
}

func TestTailer_PayloadOnEarlierLineThanMarker(t *testing.T) {
	tailer, dir := setupTailer(t)
	path := filepath.Join(dir, todayLogName())

	// Payload logged two lines before the bare marker; the context buffer
	// bridges the gap.
	content := `09:22:44.100 I SomeStore::dispatch true {"items":[{"id":"o1","action":"Buy","status":"Filled","filledQuantity":10,"avgFilledPrice":10.5,"filledTime":"25/04/2025 09:22:44 EDT","symbol":"AAPL"}]}` + "\n" +
		"09:22:44.101 I intermediate line\n" +
		"09:22:44.102 I WBOrderListStore::processOrderData true\n"
	writeLog(t, path, content)

	res := tailer.Scan(context.Background())
	require.Len(t, res.Executions, 1)
	assert.Equal(t, "o1", res.Executions[0].OrderID)
}

func TestTailer_RejectsSurfaced(t *testing.T) {
	tailer, dir := setupTailer(t)
	path := filepath.Join(dir, todayLogName())
	writeLog(t, path, orderLine("o1", "Short", 100)+"\n")

	res := tailer.Scan(context.Background())
	assert.Empty(t, res.Executions)
	require.Len(t, res.Rejects, 1)
	assert.Equal(t, "o1", res.Rejects[0].OrderID)
}

func TestTailer_IgnoresOtherDaysAndNonLogFiles(t *testing.T) {
	tailer, dir := setupTailer(t)

	writeLog(t, filepath.Join(dir, "app-00-00.log"), orderLine("o1", "Buy", 100)+"\n")
	writeLog(t, filepath.Join(dir, "app-"+time.Now().Format("01-02")+".txt"), orderLine("o2", "Buy", 100)+"\n")

	res := tailer.Scan(context.Background())
	assert.Empty(t, res.Executions)
}

func TestTailer_RecentlyModifiedFileSkipped(t *testing.T) {
	tailer, dir := setupTailer(t)
	path := filepath.Join(dir, todayLogName())

	// Freshly written, mtime now: inside the grace window.
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = f.WriteString(orderLine("o1", "Buy", 100) + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	res := tailer.Scan(context.Background())
	assert.Empty(t, res.Executions)

	// Once the grace window has passed it is read normally.
	old := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(path, old, old))
	res = tailer.Scan(context.Background())
	assert.Len(t, res.Executions, 1)
}

func TestTailer_MissingFolder(t *testing.T) {
	tailer := NewTailer(filepath.Join(os.TempDir(), "does-not-exist-xyz"), &mockLogger{})
	res := tailer.Scan(context.Background())
	assert.Empty(t, res.Executions)
	assert.Empty(t, res.Rejects)
}

func TestTailer_ResetRereadsFromStart(t *testing.T) {
	tailer, dir := setupTailer(t)
	path := filepath.Join(dir, todayLogName())
	writeLog(t, path, orderLine("o1", "Buy", 100)+"\n")

	res := tailer.Scan(context.Background())
	require.Len(t, res.Executions, 1)

	tailer.Reset()
	res = tailer.Scan(context.Background())
	require.Len(t, res.Executions, 1)
	assert.Equal(t, "o1", res.Executions[0].OrderID)
}
