// Package compose assembles transport-ready messages. Composition is
// deterministic given its inputs and does no I/O: the inline logo is
// loaded and validated once at construction, so a bad logo path is a
// startup error rather than a per-message one.
package compose

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/kursadbilgin/massmail/internal/attach"
	"github.com/kursadbilgin/massmail/internal/domain"
	"github.com/kursadbilgin/massmail/internal/render"
)

type Composer struct {
	fromName       string
	fromAddr       string
	replyTo        string
	requestReceipt bool
	logo           *attach.File
}

func NewComposer(fromName, fromAddr, replyTo string, requestReceipt bool, logoPath string) (*Composer, error) {
	c := &Composer{
		fromName:       fromName,
		fromAddr:       fromAddr,
		replyTo:        replyTo,
		requestReceipt: requestReceipt,
	}

	if logoPath != "" {
		data, err := os.ReadFile(logoPath)
		if err != nil {
			return nil, fmt.Errorf("%w: inline logo: %v", domain.ErrConfiguration, err)
		}
		name := filepath.Base(logoPath)
		ct := attach.ContentTypeFor(name)
		if ct == "application/octet-stream" {
			ct = "image/png"
		}
		c.logo = &attach.File{Filename: name, ContentType: ct, Data: data}
	}

	return c, nil
}

// LogoCID is the content ID the HTML body's {logo_cid} token must
// reference; empty when no logo is configured.
func (c *Composer) LogoCID() string {
	if c.logo == nil {
		return ""
	}
	return c.logo.Filename
}

// Compose builds the full message for one recipient: alternative
// text/HTML bodies, the inline logo, both attachments, and the
// delivery-receipt request when configured.
func (c *Composer) Compose(content *render.Content, files []attach.File, rcpt domain.Recipient) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if err := msg.FromFormat(c.fromName, c.fromAddr); err != nil {
		return nil, fmt.Errorf("compose from: %w", err)
	}
	if err := msg.To(rcpt.Email); err != nil {
		return nil, fmt.Errorf("compose to: %w", err)
	}
	if err := msg.ReplyTo(c.replyTo); err != nil {
		return nil, fmt.Errorf("compose reply-to: %w", err)
	}
	msg.Subject(content.Subject)
	msg.SetMessageID()

	msg.SetBodyString(mail.TypeTextPlain, content.TextBody)
	msg.AddAlternativeString(mail.TypeTextHTML, content.HTMLBody)

	if c.logo != nil {
		if err := msg.EmbedReader(c.logo.Filename, bytes.NewReader(c.logo.Data),
			mail.WithFileContentType(mail.ContentType(c.logo.ContentType))); err != nil {
			return nil, fmt.Errorf("embed logo: %w", err)
		}
	}

	for _, f := range files {
		if err := msg.AttachReader(f.Filename, bytes.NewReader(f.Data),
			mail.WithFileContentType(mail.ContentType(f.ContentType))); err != nil {
			return nil, fmt.Errorf("attach %s: %w", f.Filename, err)
		}
	}

	if c.requestReceipt {
		if err := msg.RequestMDNTo(c.fromAddr); err != nil {
			return nil, fmt.Errorf("request receipt: %w", err)
		}
	}

	return msg, nil
}

// WriteEML serializes a composed message into dir for preview runs.
func WriteEML(msg *mail.Msg, dir, runID, email string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create preview dir: %w", err)
	}
	name := runID + "_" + strings.ReplaceAll(email, "@", "_at_") + ".eml"
	path := filepath.Join(dir, name)
	if err := msg.WriteToFile(path); err != nil {
		return "", fmt.Errorf("write preview message: %w", err)
	}
	return path, nil
}
