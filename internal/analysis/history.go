package analysis

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"
)

// HistorySchemaVersion is the current history file schema version.
const HistorySchemaVersion = 1

// Recorded results are truncated to keep the log bounded.
const (
	MaxRecordedPrompt   = 2000
	MaxRecordedResponse = 50000
)

// ErrHistoryClosed is returned when operations are attempted on a closed history.
var ErrHistoryClosed = errors.New("history is closed")

// historyHeader is the first line of the JSONL file.
type historyHeader struct {
	DeepTraceSchemaVersion int   `json:"deeptrace_schema_version"`
	CreatedAt              int64 `json:"created_at"`
}

// History is an append-only JSONL log of analysis results.
type History struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	closed bool
}

// NewHistory opens (or creates) the history file at path.
func NewHistory(path string) (*History, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	h := &History{path: path, file: file}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := h.writeHeader(); err != nil {
			file.Close()
			return nil, err
		}
	}
	return h, nil
}

// Path returns the history file path.
func (h *History) Path() string {
	return h.path
}

func (h *History) writeHeader() error {
	data, err := json.Marshal(historyHeader{
		DeepTraceSchemaVersion: HistorySchemaVersion,
		CreatedAt:              time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	_, err = h.file.Write(append(data, '\n'))
	return err
}

// reopenIfReplaced switches to the file now at h.path when another handle
// has rewritten it (prune renames the old file away). Caller holds h.mu.
func (h *History) reopenIfReplaced() error {
	onDisk, err := os.Stat(h.path)
	if err != nil {
		// Mid-rewrite the path is briefly missing; keep the current handle.
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	current, err := h.file.Stat()
	if err != nil {
		return err
	}
	if os.SameFile(onDisk, current) {
		return nil
	}

	file, err := os.OpenFile(h.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to reopen %s: %w", h.path, err)
	}
	_ = h.file.Close()
	h.file = file
	return nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Append records a result.
func (h *History) Append(r Result) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.file == nil {
		return ErrHistoryClosed
	}

	if err := h.reopenIfReplaced(); err != nil {
		return err
	}

	r.Prompt = truncate(r.Prompt, MaxRecordedPrompt)
	r.Response = truncate(r.Response, MaxRecordedResponse)

	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if _, err := h.file.Write(append(data, '\n')); err != nil {
		return err
	}
	return h.file.Sync()
}

// Load reads every recorded result, oldest first. Malformed lines are skipped.
func (h *History) Load() ([]Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.file == nil {
		return nil, ErrHistoryClosed
	}
	if err := h.reopenIfReplaced(); err != nil {
		return nil, err
	}

	if _, err := h.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", h.path, err)
	}

	var results []Result
	scanner := bufio.NewScanner(h.file)
	const maxLineSize = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if lineNum == 1 {
			var header historyHeader
			if err := json.Unmarshal(line, &header); err == nil && header.DeepTraceSchemaVersion > 0 {
				if header.DeepTraceSchemaVersion > HistorySchemaVersion {
					return nil, fmt.Errorf("unsupported schema version %d (max: %d)",
						header.DeepTraceSchemaVersion, HistorySchemaVersion)
				}
				continue
			}
		}

		var r Result
		if err := json.Unmarshal(line, &r); err != nil {
			continue
		}
		if r.ID != "" {
			results = append(results, r)
		}
	}

	if err := scanner.Err(); err != nil {
		return results, fmt.Errorf("error reading file: %w", err)
	}

	if _, err := h.file.Seek(0, io.SeekEnd); err != nil {
		return results, err
	}
	return results, nil
}

// Recent returns up to n results, newest first. n <= 0 returns all.
func (h *History) Recent(n int) ([]Result, error) {
	all, err := h.Load()
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
		if n > 0 && len(out) == n {
			break
		}
	}
	return out, nil
}

// Prune keeps only the newest keep results. It returns how many were removed.
// keep <= 0 means unlimited and removes nothing.
func (h *History) Prune(keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	all, err := h.Load()
	if err != nil {
		return 0, err
	}
	if len(all) <= keep {
		return 0, nil
	}
	removed := len(all) - keep
	return removed, h.Rewrite(all[removed:])
}

// Rewrite replaces the history file contents with results.
func (h *History) Rewrite(results []Result) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHistoryClosed
	}

	if h.file != nil {
		if err := h.file.Close(); err != nil {
			return err
		}
		h.file = nil
	}

	backupPath := h.path + ".bak"
	if err := os.Rename(h.path, backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	file, err := os.OpenFile(h.path, os.O_RDWR|os.O_CREATE|os.O_APPEND|os.O_TRUNC, 0600)
	if err != nil {
		_ = os.Rename(backupPath, h.path)
		return fmt.Errorf("failed to create new file: %w", err)
	}
	h.file = file

	if err := h.writeHeader(); err != nil {
		return err
	}
	for _, r := range results {
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if _, err := h.file.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	if err := h.file.Sync(); err != nil {
		return err
	}

	_ = os.Remove(backupPath)
	return nil
}

// Close releases the file handle.
func (h *History) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	if h.file != nil {
		err := h.file.Close()
		h.file = nil
		return err
	}
	return nil
}
