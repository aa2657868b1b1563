package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status is the terminal outcome of one delivery attempt.
type Status string

const (
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusSent, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// Attempt records a single delivery attempt for one recipient. Rows are
// append-only once written; the recipient columns are echoed so a ledger
// file alone can seed a retry run. Timestamps are RFC 3339 strings so
// every row stays independently parseable.
type Attempt struct {
	Email         string `csv:"email"`
	Name          string `csv:"name"`
	Gender        string `csv:"gender"`
	Company       string `csv:"company"`
	AttemptNumber int    `csv:"attempt_number"`
	Timestamp     string `csv:"timestamp"`
	Status        Status `csv:"status"`
	MessageID     string `csv:"message_id"`
	ErrorDetail   string `csv:"error_detail"`
}

func (a Attempt) Key() string { return strings.ToLower(strings.TrimSpace(a.Email)) }

func (a Attempt) Recipient() Recipient {
	return Recipient{
		Email:   a.Email,
		Name:    a.Name,
		Gender:  Gender(strings.ToLower(strings.TrimSpace(a.Gender))),
		Company: a.Company,
	}
}

func (a Attempt) Validate() error {
	if a.Email == "" {
		return fmt.Errorf("%w: attempt email is required", ErrValidation)
	}
	if a.AttemptNumber < 1 {
		return fmt.Errorf("%w: attempt number must be >= 1 (got %d)", ErrValidation, a.AttemptNumber)
	}
	if !a.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, a.Status)
	}
	return nil
}

// FormatTimestamp renders an attempt timestamp the way the ledger stores it.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}
