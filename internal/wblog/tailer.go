package wblog

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pnlmonitor/internal/domain"
	"pnlmonitor/internal/ports"
)

const (
	// Lines of trailing context kept for the extractor; a marker and its
	// payload may be separated across lines.
	contextLines = 5

	// Files modified inside this window are skipped for the cycle so a
	// record the producer is still writing is never read torn.
	modifyGrace = 500 * time.Millisecond
)

// ScanResult aggregates one scan cycle: newly observed executions plus the
// per-record diagnostics for everything that was dropped.
type ScanResult struct {
	Executions []*domain.Execution
	Rejects    []Reject
}

// Tailer discovers today's log files and streams only newly appended bytes
// through the extractor and normalizer. Cursor state (per-file byte offsets,
// the seen-orderId set) lives for the process run and is reset only
// explicitly.
type Tailer struct {
	folder  string
	logger  ports.Logger
	norm    *Normalizer
	offsets map[string]int64

	// now is swappable in tests to control the modification grace window.
	now func() time.Time
}

// NewTailer creates a tailer over the given log folder.
func NewTailer(folder string, logger ports.Logger) *Tailer {
	return &Tailer{
		folder:  folder,
		logger:  logger,
		norm:    NewNormalizer(),
		offsets: make(map[string]int64),
		now:     time.Now,
	}
}

// Reset clears all cursor state: file offsets and the seen-orderId set.
func (t *Tailer) Reset() {
	t.offsets = make(map[string]int64)
	t.norm.Reset()
}

// Scan reads newly appended content from today's log files and returns the
// executions found plus rejection diagnostics. Transient I/O problems
// (locked file, too-recent modification) skip the file for this cycle only.
func (t *Tailer) Scan(ctx context.Context) *ScanResult {
	res := &ScanResult{}
	for _, path := range t.findTodayLogFiles(ctx) {
		t.scanFile(ctx, path, res)
	}
	return res
}

// findTodayLogFiles lists .log files whose name contains today's month-day,
// newest modification first.
func (t *Tailer) findTodayLogFiles(ctx context.Context) []string {
	if _, err := os.Stat(t.folder); err != nil {
		t.logger.Error(ctx, ports.ErrLogFolderMissing, "Log folder is not accessible", map[string]interface{}{"folder": t.folder})
		return nil
	}

	entries, err := os.ReadDir(t.folder)
	if err != nil {
		t.logger.Error(ctx, err, "Failed to list log folder", map[string]interface{}{"folder": t.folder})
		return nil
	}

	todayTag := t.now().Format("01-02")

	type candidate struct {
		path    string
		modTime time.Time
	}
	var candidates []candidate
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".log") || !strings.Contains(name, todayTag) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{
			path:    filepath.Join(t.folder, name),
			modTime: info.ModTime(),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime.After(candidates[j].modTime)
	})

	if len(candidates) == 0 {
		t.logger.Debug(ctx, "No log files found for today", map[string]interface{}{"tag": todayTag})
		return nil
	}

	paths := make([]string, len(candidates))
	for i, c := range candidates {
		paths[i] = c.path
	}
	return paths
}

// scanFile reads one file from its stored offset. The offset only advances
// past whole lines that were actually consumed, so resumption stays correct
// if the writer appends more later in the day.
func (t *Tailer) scanFile(ctx context.Context, path string, res *ScanResult) {
	info, err := os.Stat(path)
	if err != nil {
		t.logger.Warn(ctx, "Failed to stat log file, skipping this cycle", map[string]interface{}{"file": path, "error": err})
		return
	}

	if t.now().Sub(info.ModTime()) < modifyGrace {
		// Still being written; pick it up next cycle.
		t.logger.Debug(ctx, "Skipping very recently modified file", map[string]interface{}{"file": path})
		return
	}

	size := info.Size()
	last := t.offsets[path]
	if last > 0 && last >= size {
		return
	}

	file, err := os.Open(path)
	if err != nil {
		// Likely exclusively locked by the producer. Not marked processed;
		// the offset is untouched so next cycle retries from the same spot.
		t.logger.Warn(ctx, "Cannot open log file, skipping this cycle", map[string]interface{}{"file": path, "error": err})
		return
	}
	defer file.Close()

	if _, err := file.Seek(last, io.SeekStart); err != nil {
		t.logger.Warn(ctx, "Failed to seek log file", map[string]interface{}{"file": path, "offset": last, "error": err})
		return
	}

	t.logger.Debug(ctx, "Processing log file", map[string]interface{}{"file": path, "from": last, "size": size})

	reader := bufio.NewReader(file)
	offset := last
	var buffer []string

	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			t.logger.Warn(ctx, "Read error in log file", map[string]interface{}{"file": path, "error": err})
			break
		}
		if err == io.EOF && !strings.HasSuffix(line, "\n") {
			// Trailing partial line: leave the offset before it so the
			// completed line is read next cycle.
			break
		}

		offset += int64(len(line))
		trimmed := strings.TrimRight(line, "\r\n")

		buffer = append(buffer, trimmed)
		if len(buffer) > contextLines {
			buffer = buffer[1:]
		}

		if hasPayloadMarker(trimmed) {
			t.processMarker(ctx, buffer, res)
		}

		if err == io.EOF {
			break
		}
	}

	t.offsets[path] = offset
}

// processMarker walks the context buffer newest-first for a decodable
// payload and normalizes its order items.
func (t *Tailer) processMarker(ctx context.Context, buffer []string, res *ScanResult) {
	for i := len(buffer) - 1; i >= 0; i-- {
		js := extractJSON(buffer[i])
		if js == nil {
			continue
		}
		for _, item := range extractOrderItems(js) {
			exec, rej := t.norm.Normalize(item)
			if rej != nil {
				res.Rejects = append(res.Rejects, *rej)
				continue
			}
			if exec == nil {
				// Duplicate orderId; silent drop.
				continue
			}
			t.logger.Info(ctx, "Found new execution", map[string]interface{}{
				"symbol":   exec.Symbol,
				"side":     exec.Side,
				"quantity": exec.Quantity,
				"price":    exec.Price,
			})
			res.Executions = append(res.Executions, exec)
		}
		return
	}
}
