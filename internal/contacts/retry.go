package contacts

import "github.com/kursadbilgin/massmail/internal/domain"

// Exhausted reports a recipient whose retry chain hit the attempt cap.
// They are never retried again; the orchestrator records them and moves on.
type Exhausted struct {
	Recipient domain.Recipient
	Attempts  int
	LastError string
}

// FromLedger selects, from a prior run ledger, the recipients still worth
// retrying: latest status failed and fewer than maxRetries attempts in the
// chain. Recipients whose latest status is sent are dropped; recipients at
// or beyond the cap come back in the exhausted list. Order is first
// appearance in the ledger. Pure: no side effects on the attempts slice.
func FromLedger(attempts []domain.Attempt, maxRetries int) ([]domain.Recipient, []Exhausted) {
	type chain struct {
		rcpt    domain.Recipient
		highest int
		latest  domain.Status
		lastErr string
	}

	var order []string
	chains := make(map[string]*chain)

	for _, a := range attempts {
		key := a.Key()
		if key == "" {
			continue
		}
		c, ok := chains[key]
		if !ok {
			c = &chain{rcpt: a.Recipient()}
			chains[key] = c
			order = append(order, key)
		}
		if a.AttemptNumber > c.highest {
			c.highest = a.AttemptNumber
		}
		c.latest = a.Status
		if a.ErrorDetail != "" {
			c.lastErr = a.ErrorDetail
		}
	}

	var (
		retryable []domain.Recipient
		exhausted []Exhausted
	)
	for _, key := range order {
		c := chains[key]
		switch {
		case c.latest == domain.StatusSent:
			// Delivered at some point; nothing left to do.
		case c.latest == domain.StatusFailed && c.highest < maxRetries:
			retryable = append(retryable, c.rcpt)
		case c.highest >= maxRetries:
			exhausted = append(exhausted, Exhausted{Recipient: c.rcpt, Attempts: c.highest, LastError: c.lastErr})
		}
	}

	return retryable, exhausted
}

// PriorAttempts maps each recipient key in a prior ledger to the highest
// attempt number recorded for it, so a retry run numbers its attempts as a
// continuation of the chain.
func PriorAttempts(attempts []domain.Attempt) map[string]int {
	counts := make(map[string]int)
	for _, a := range attempts {
		if key := a.Key(); key != "" && a.AttemptNumber > counts[key] {
			counts[key] = a.AttemptNumber
		}
	}
	return counts
}
