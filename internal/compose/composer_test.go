package compose

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kursadbilgin/massmail/internal/attach"
	"github.com/kursadbilgin/massmail/internal/domain"
	"github.com/kursadbilgin/massmail/internal/render"
)

func testContent() *render.Content {
	return &render.Content{
		Subject:  "RFQ for Acme - documents attached",
		HTMLBody: `<p>Dear Ms Smith,</p><img src="cid:logo.png">`,
		TextBody: "Dear Ms Smith,",
	}
}

func testFiles() []attach.File {
	return []attach.File{
		{Filename: "Cover_Letter_Acme.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7")},
		{Filename: "specifications.xlsx", ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Data: []byte("sheet")},
	}
}

func testRecipient() domain.Recipient {
	return domain.Recipient{Email: "alice@x.com", Name: "Alice Smith", Gender: domain.GenderFeminine, Company: "Acme"}
}

func writeLogo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logo.png")
	if err := os.WriteFile(path, []byte("\x89PNG fake"), 0o644); err != nil {
		t.Fatalf("write logo: %v", err)
	}
	return path
}

func TestNewComposerBadLogoPath(t *testing.T) {
	t.Parallel()

	_, err := NewComposer("RFQ Desk", "rfq@example.com", "rfq@example.com", true,
		filepath.Join(t.TempDir(), "missing.png"))
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("NewComposer() error = %v, want ErrConfiguration", err)
	}
}

func TestComposerLogoCID(t *testing.T) {
	t.Parallel()

	withLogo, err := NewComposer("RFQ Desk", "rfq@example.com", "rfq@example.com", true, writeLogo(t))
	if err != nil {
		t.Fatalf("NewComposer() error = %v", err)
	}
	if withLogo.LogoCID() != "logo.png" {
		t.Fatalf("LogoCID() = %q, want logo.png", withLogo.LogoCID())
	}

	withoutLogo, err := NewComposer("RFQ Desk", "rfq@example.com", "rfq@example.com", true, "")
	if err != nil {
		t.Fatalf("NewComposer() error = %v", err)
	}
	if withoutLogo.LogoCID() != "" {
		t.Fatalf("LogoCID() = %q, want empty", withoutLogo.LogoCID())
	}
}

func TestComposeMessage(t *testing.T) {
	t.Parallel()

	c, err := NewComposer("RFQ Desk", "rfq@example.com", "replies@example.com", true, writeLogo(t))
	if err != nil {
		t.Fatalf("NewComposer() error = %v", err)
	}

	msg, err := c.Compose(testContent(), testFiles(), testRecipient())
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if msg.GetMessageID() == "" {
		t.Fatal("composed message should carry a message id")
	}

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	raw := buf.String()

	for _, want := range []string{
		"Subject: RFQ for Acme - documents attached",
		"To: <alice@x.com>",
		"Reply-To: <replies@example.com>",
		"Disposition-Notification-To:",
		`filename="Cover_Letter_Acme.pdf"`,
		`filename="specifications.xlsx"`,
		"logo.png",
	} {
		if !strings.Contains(raw, want) {
			t.Fatalf("message missing %q:\n%s", want, raw)
		}
	}
}

func TestComposeWithoutReceiptRequest(t *testing.T) {
	t.Parallel()

	c, err := NewComposer("RFQ Desk", "rfq@example.com", "rfq@example.com", false, "")
	if err != nil {
		t.Fatalf("NewComposer() error = %v", err)
	}

	msg, err := c.Compose(testContent(), testFiles(), testRecipient())
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	if strings.Contains(buf.String(), "Disposition-Notification-To:") {
		t.Fatal("receipt request header should be absent")
	}
}

func TestWriteEML(t *testing.T) {
	t.Parallel()

	c, err := NewComposer("RFQ Desk", "rfq@example.com", "rfq@example.com", false, "")
	if err != nil {
		t.Fatalf("NewComposer() error = %v", err)
	}
	msg, err := c.Compose(testContent(), testFiles(), testRecipient())
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	dir := filepath.Join(t.TempDir(), "eml")
	path, err := WriteEML(msg, dir, "20250314_093000", "alice@x.com")
	if err != nil {
		t.Fatalf("WriteEML() error = %v", err)
	}
	if filepath.Base(path) != "20250314_093000_alice_at_x.com.eml" {
		t.Fatalf("eml name = %q", filepath.Base(path))
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("eml not written: %v", err)
	}
}
