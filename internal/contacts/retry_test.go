package contacts

import (
	"testing"

	"github.com/kursadbilgin/massmail/internal/domain"
)

func attempt(email string, n int, status domain.Status, errDetail string) domain.Attempt {
	return domain.Attempt{
		Email:         email,
		Name:          "Name",
		Gender:        "x",
		Company:       "Acme",
		AttemptNumber: n,
		Timestamp:     "2025-03-14T09:30:00Z",
		Status:        status,
		ErrorDetail:   errDetail,
	}
}

func TestFromLedgerSelectsOnlyRetryableFailures(t *testing.T) {
	t.Parallel()

	attempts := []domain.Attempt{
		attempt("sent@x.com", 1, domain.StatusSent, ""),
		attempt("retry@x.com", 1, domain.StatusFailed, "451 try later"),
		attempt("capped@x.com", 3, domain.StatusFailed, "550 rejected"),
	}

	retryable, exhausted := FromLedger(attempts, 3)

	if len(retryable) != 1 || retryable[0].Email != "retry@x.com" {
		t.Fatalf("retryable = %v", retryable)
	}
	if len(exhausted) != 1 || exhausted[0].Recipient.Email != "capped@x.com" {
		t.Fatalf("exhausted = %v", exhausted)
	}
	if exhausted[0].Attempts != 3 || exhausted[0].LastError != "550 rejected" {
		t.Fatalf("exhausted detail = %+v", exhausted[0])
	}
}

func TestFromLedgerNeverReselectsSent(t *testing.T) {
	t.Parallel()

	attempts := []domain.Attempt{
		attempt("flaky@x.com", 1, domain.StatusFailed, "timeout"),
		attempt("flaky@x.com", 2, domain.StatusSent, ""),
	}

	retryable, exhausted := FromLedger(attempts, 3)
	if len(retryable) != 0 || len(exhausted) != 0 {
		t.Fatalf("retryable = %v, exhausted = %v, want none", retryable, exhausted)
	}
}

func TestFromLedgerChainAcrossStatuses(t *testing.T) {
	t.Parallel()

	attempts := []domain.Attempt{
		attempt("a@x.com", 1, domain.StatusFailed, "timeout"),
		attempt("a@x.com", 2, domain.StatusFailed, "timeout again"),
	}

	retryable, exhausted := FromLedger(attempts, 3)
	if len(retryable) != 1 {
		t.Fatalf("retryable = %v", retryable)
	}
	if len(exhausted) != 0 {
		t.Fatalf("exhausted = %v", exhausted)
	}

	// One more failure reaches the cap.
	attempts = append(attempts, attempt("a@x.com", 3, domain.StatusFailed, "timeout"))
	retryable, exhausted = FromLedger(attempts, 3)
	if len(retryable) != 0 || len(exhausted) != 1 {
		t.Fatalf("retryable = %v, exhausted = %v", retryable, exhausted)
	}
}

func TestFromLedgerSkippedBelowCapNotSelected(t *testing.T) {
	t.Parallel()

	// Dry-run ledgers carry skipped rows; they are not failures.
	attempts := []domain.Attempt{
		attempt("dry@x.com", 1, domain.StatusSkipped, "dry run"),
	}

	retryable, exhausted := FromLedger(attempts, 3)
	if len(retryable) != 0 || len(exhausted) != 0 {
		t.Fatalf("retryable = %v, exhausted = %v, want none", retryable, exhausted)
	}
}

func TestFromLedgerOrderIsFirstAppearance(t *testing.T) {
	t.Parallel()

	attempts := []domain.Attempt{
		attempt("b@x.com", 1, domain.StatusFailed, "x"),
		attempt("a@x.com", 1, domain.StatusFailed, "x"),
		attempt("b@x.com", 2, domain.StatusFailed, "x"),
	}

	retryable, _ := FromLedger(attempts, 3)
	if len(retryable) != 2 || retryable[0].Email != "b@x.com" || retryable[1].Email != "a@x.com" {
		t.Fatalf("retryable order = %v", retryable)
	}
}

func TestPriorAttempts(t *testing.T) {
	t.Parallel()

	attempts := []domain.Attempt{
		attempt("a@x.com", 1, domain.StatusFailed, ""),
		attempt("a@x.com", 2, domain.StatusFailed, ""),
		attempt("b@x.com", 1, domain.StatusSent, ""),
	}

	counts := PriorAttempts(attempts)
	if counts["a@x.com"] != 2 || counts["b@x.com"] != 1 {
		t.Fatalf("counts = %v", counts)
	}
}
