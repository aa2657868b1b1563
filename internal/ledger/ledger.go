// Package ledger persists the run ledger: one CSV file per run, one row
// per delivery attempt, append-only. Every row is flushed as soon as it is
// written so an interrupted run keeps everything completed so far, and
// each row is self-contained so a partially written file stays readable.
package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/kursadbilgin/massmail/internal/domain"
)

const fileTimeLayout = "20060102_150405"

var columns = []string{
	"email", "name", "gender", "company",
	"attempt_number", "timestamp", "status", "message_id", "error_detail",
}

// RunID derives the ledger run identifier from the run start time.
func RunID(start time.Time) string {
	return start.Format(fileTimeLayout)
}

// FilePath names the ledger file for a run started at the given time.
func FilePath(dir string, start time.Time) string {
	return filepath.Join(dir, "send_log_"+RunID(start)+".csv")
}

// Writer appends delivery attempts to one run's ledger file. The
// orchestrator holds the only write handle for the run's duration.
type Writer struct {
	mu     sync.Mutex
	file   *os.File
	csv    *csv.Writer
	path   string
	closed bool
}

func NewWriter(path string) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create ledger %s: %w", path, err)
	}

	w := &Writer{file: file, csv: csv.NewWriter(file), path: path}
	if err := w.csv.Write(columns); err != nil {
		file.Close()
		return nil, fmt.Errorf("write ledger header: %w", err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		file.Close()
		return nil, fmt.Errorf("flush ledger header: %w", err)
	}
	return w, nil
}

func (w *Writer) Path() string { return w.path }

// Append writes one attempt row and flushes it to disk. Losing an
// appended row is a correctness bug, so flush errors are surfaced.
func (w *Writer) Append(a domain.Attempt) error {
	if err := a.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("ledger %s already closed", w.path)
	}

	if err := gocsv.MarshalCSVWithoutHeaders(&[]domain.Attempt{a}, w.csv); err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("flush ledger row: %w", err)
	}
	return nil
}

// Close flushes and finalizes the file. Safe to call more than once;
// skipping it on abnormal termination cannot corrupt rows already written.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	w.csv.Flush()
	flushErr := w.csv.Error()
	closeErr := w.file.Close()
	if flushErr != nil {
		return fmt.Errorf("flush ledger: %w", flushErr)
	}
	return closeErr
}

// Read loads every attempt row from a ledger file, in append order. A
// truncated trailing row (a run killed mid-write) is dropped rather than
// failing the whole read.
func Read(path string) ([]domain.Attempt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", path, err)
	}

	raw := csv.NewReader(bytes.NewReader(data))
	raw.FieldsPerRecord = -1
	raw.LazyQuotes = true
	records, err := raw.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse ledger %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var clean bytes.Buffer
	cw := csv.NewWriter(&clean)
	for _, record := range records {
		if len(record) != len(columns) {
			continue
		}
		if err := cw.Write(record); err != nil {
			return nil, fmt.Errorf("rewrite ledger row: %w", err)
		}
	}
	cw.Flush()

	var attempts []domain.Attempt
	if err := gocsv.UnmarshalBytes(clean.Bytes(), &attempts); err != nil {
		return nil, fmt.Errorf("decode ledger %s: %w", path, err)
	}
	return attempts, nil
}

// Latest reduces attempts to the last known state per recipient. Append
// order is processing order, so the final row per key wins. Pure: reading
// the same ledger any number of times yields the same view.
func Latest(attempts []domain.Attempt) map[string]domain.Attempt {
	latest := make(map[string]domain.Attempt, len(attempts))
	for _, a := range attempts {
		if key := a.Key(); key != "" {
			latest[key] = a
		}
	}
	return latest
}
