// Package render personalizes the email body, subject and cover-letter
// context for one recipient. Substitution is best-effort: tokens outside
// the declared set pass through untouched, while a declared token with no
// value behind it is a render error naming the token.
package render

import (
	"fmt"
	"strings"

	"github.com/kursadbilgin/massmail/internal/domain"
)

// Delimiters per template kind: the HTML body and subject use single
// braces, the cover letter uses double braces.
const (
	BodyOpen    = "{"
	BodyClose   = "}"
	LetterOpen  = "{{"
	LetterClose = "}}"
)

var (
	bodyRequired    = []string{"salutation", "company", "deadline", "logo_cid"}
	letterRequired  = []string{"salutation", "company", "deadline", "from_name", "reply_to", "today"}
	subjectRequired = []string{"company"}
)

// Substitute replaces every declared token found in tpl with its value.
// A token not present in tokens is left in place verbatim, including its
// delimiters. A required token that appears in tpl with an empty value
// fails the whole substitution.
func Substitute(tpl string, tokens map[string]string, required []string, open, close string) (string, error) {
	req := make(map[string]bool, len(required))
	for _, name := range required {
		req[name] = true
	}

	var b strings.Builder
	rest := tpl
	for {
		i := strings.Index(rest, open)
		if i < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:i])

		j := strings.Index(rest[i+len(open):], close)
		if j < 0 {
			b.WriteString(rest[i:])
			break
		}

		name := rest[i+len(open) : i+len(open)+j]
		raw := rest[i : i+len(open)+j+len(close)]
		rest = rest[i+len(open)+j+len(close):]

		value, known := tokens[name]
		switch {
		case !known:
			b.WriteString(raw)
		case value == "" && req[name]:
			return "", fmt.Errorf("%w: missing value for required token %q", domain.ErrRender, name)
		default:
			b.WriteString(value)
		}
	}

	return b.String(), nil
}

// Content is the per-recipient rendered material, produced fresh for every
// attempt and never cached across runs.
type Content struct {
	Subject  string
	HTMLBody string
	TextBody string
}

// Renderer holds the run-constant template inputs.
type Renderer struct {
	SubjectTemplate string
	BodyTemplate    string
	Deadline        string
	FromName        string
	ReplyTo         string
}

func (r *Renderer) Render(rcpt domain.Recipient, rc domain.RunContext) (*Content, error) {
	subject, err := Substitute(r.SubjectTemplate, map[string]string{
		"company": rcpt.Company,
	}, subjectRequired, BodyOpen, BodyClose)
	if err != nil {
		return nil, err
	}

	html, err := Substitute(r.BodyTemplate, r.bodyTokens(rcpt, rc), bodyRequired, BodyOpen, BodyClose)
	if err != nil {
		return nil, err
	}

	return &Content{
		Subject:  subject,
		HTMLBody: html,
		TextBody: HTMLToText(html),
	}, nil
}

func (r *Renderer) bodyTokens(rcpt domain.Recipient, rc domain.RunContext) map[string]string {
	logoRef := ""
	if rc.LogoCID != "" {
		logoRef = "cid:" + rc.LogoCID
	}
	return map[string]string{
		"salutation": rcpt.Salutation(),
		"company":    rcpt.Company,
		"deadline":   r.Deadline,
		"logo_cid":   logoRef,
	}
}

// LetterTokens is the cover-letter substitution context for one recipient.
func (r *Renderer) LetterTokens(rcpt domain.Recipient, rc domain.RunContext) map[string]string {
	return map[string]string{
		"salutation": rcpt.Salutation(),
		"company":    rcpt.Company,
		"deadline":   r.Deadline,
		"from_name":  r.FromName,
		"reply_to":   r.ReplyTo,
		"today":      rc.Today,
	}
}

// FillLetter runs the letter-delimited substitution over a cover-letter
// template fragment.
func (r *Renderer) FillLetter(tpl string, rcpt domain.Recipient, rc domain.RunContext) (string, error) {
	return Substitute(tpl, r.LetterTokens(rcpt, rc), letterRequired, LetterOpen, LetterClose)
}
