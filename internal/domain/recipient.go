package domain

import (
	"fmt"
	"strings"
)

// Gender is the salutation selector carried by every contact row.
type Gender string

const (
	GenderMasculine Gender = "m"
	GenderFeminine  Gender = "f"
	GenderNeutral   Gender = "x"
)

func (g Gender) String() string { return string(g) }

func (g Gender) IsValid() bool {
	switch g {
	case GenderMasculine, GenderFeminine, GenderNeutral:
		return true
	}
	return false
}

func ParseGenderFromString(s string) (Gender, error) {
	g := Gender(strings.ToLower(strings.TrimSpace(s)))
	if !g.IsValid() {
		return "", fmt.Errorf("%w: invalid gender %q", ErrValidation, s)
	}
	return g, nil
}

// Recipient is one addressee with their personalization data.
// Identity is the lower-cased email; records are immutable once loaded.
type Recipient struct {
	Email   string
	Name    string
	Gender  Gender
	Company string
}

func (r Recipient) Key() string { return strings.ToLower(strings.TrimSpace(r.Email)) }

func (r Recipient) Validate() error {
	if r.Email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !r.Gender.IsValid() {
		return fmt.Errorf("%w: invalid gender %q", ErrValidation, r.Gender)
	}
	if r.Company == "" {
		return fmt.Errorf("%w: company is required", ErrValidation)
	}
	return nil
}

// Salutation derives the greeting line for a recipient. It is total over
// valid genders: masculine and feminine greet by last name, neutral greets
// by full name.
func (r Recipient) Salutation() string {
	switch r.Gender {
	case GenderMasculine:
		return "Dear Mr " + lastName(r.Name)
	case GenderFeminine:
		return "Dear Ms " + lastName(r.Name)
	default:
		return "Hello " + r.Name
	}
}

func lastName(full string) string {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return full
	}
	return parts[len(parts)-1]
}
