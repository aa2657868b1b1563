package ledger

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/kursadbilgin/massmail/internal/domain"
)

type statusRow struct {
	Email      string `csv:"email"`
	Name       string `csv:"name"`
	Gender     string `csv:"gender"`
	Company    string `csv:"company"`
	LastStatus string `csv:"last_status"`
	Attempt    int    `csv:"attempt"`
	MessageID  string `csv:"message_id"`
	Error      string `csv:"error"`
}

// WriteStatus derives one latest-state row per recipient from a run's
// attempts and writes them as a standalone status CSV for the operator.
func WriteStatus(path string, attempts []domain.Attempt) error {
	latest := Latest(attempts)

	rows := make([]statusRow, 0, len(latest))
	seen := make(map[string]bool, len(latest))
	for _, a := range attempts {
		key := a.Key()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		last := latest[key]
		rows = append(rows, statusRow{
			Email:      last.Email,
			Name:       last.Name,
			Gender:     last.Gender,
			Company:    last.Company,
			LastStatus: last.Status.String(),
			Attempt:    last.AttemptNumber,
			MessageID:  last.MessageID,
			Error:      last.ErrorDetail,
		})
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create status csv %s: %w", path, err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("write status csv %s: %w", path, err)
	}
	return nil
}
