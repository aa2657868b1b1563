// Package contacts loads and validates recipient records, either from a
// contacts CSV or from a prior run ledger filtered down to retryable
// failures. Bad rows never abort a load; they are reported alongside the
// valid records.
package contacts

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/mail"
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/kursadbilgin/massmail/internal/domain"
)

var requiredColumns = []string{"email", "name", "gender", "company"}

// RowError reports one rejected contact row: excluded from the batch,
// surfaced to the operator, never written to the ledger.
type RowError struct {
	Line   int
	Email  string
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d (%s): %s", e.Line, e.Email, e.Reason)
}

type contactRow struct {
	Email   string `csv:"email"`
	Name    string `csv:"name"`
	Gender  string `csv:"gender"`
	Company string `csv:"company"`
}

// Load parses a contacts CSV against the fixed header contract. The
// delimiter is sniffed (semicolon or comma) and a UTF-8 BOM is tolerated.
// Returned recipients are unique by lower-cased email, in order of first
// appearance.
func Load(path string) ([]domain.Recipient, []RowError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read contacts file: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	delim := sniffDelimiter(data)
	if err := checkHeader(data, delim); err != nil {
		return nil, nil, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.TrimLeadingSpace = true

	var rows []contactRow
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		return nil, nil, fmt.Errorf("parse contacts file: %w", err)
	}

	var (
		recipients []domain.Recipient
		rowErrs    []RowError
		seen       = make(map[string]bool, len(rows))
	)
	for i, row := range rows {
		line := i + 2 // 1-based, after the header row

		rcpt := domain.Recipient{
			Email:   strings.TrimSpace(row.Email),
			Name:    strings.TrimSpace(row.Name),
			Company: strings.TrimSpace(row.Company),
		}

		if _, err := mail.ParseAddress(rcpt.Email); err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Email: rcpt.Email, Reason: "invalid email address"})
			continue
		}

		gender, err := domain.ParseGenderFromString(row.Gender)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Email: rcpt.Email, Reason: fmt.Sprintf("unrecognized gender %q", strings.TrimSpace(row.Gender))})
			continue
		}
		rcpt.Gender = gender

		if rcpt.Company == "" {
			rowErrs = append(rowErrs, RowError{Line: line, Email: rcpt.Email, Reason: "empty company"})
			continue
		}

		if seen[rcpt.Key()] {
			rowErrs = append(rowErrs, RowError{Line: line, Email: rcpt.Email, Reason: "duplicate email"})
			continue
		}
		seen[rcpt.Key()] = true
		recipients = append(recipients, rcpt)
	}

	return recipients, rowErrs, nil
}

func sniffDelimiter(data []byte) rune {
	sample := data
	if i := bytes.IndexByte(sample, '\n'); i >= 0 {
		sample = sample[:i]
	}
	if bytes.Count(sample, []byte(";")) > bytes.Count(sample, []byte(",")) {
		return ';'
	}
	return ','
}

func checkHeader(data []byte, delim rune) error {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("%w: contacts file has no header row", domain.ErrValidation)
	}

	got := make(map[string]bool, len(header))
	for _, h := range header {
		got[strings.TrimSpace(h)] = true
	}
	for _, col := range requiredColumns {
		if !got[col] {
			return fmt.Errorf("%w: contacts file must contain columns %v", domain.ErrValidation, requiredColumns)
		}
	}
	return nil
}
