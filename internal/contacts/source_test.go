package contacts

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kursadbilgin/massmail/internal/domain"
)

func writeContacts(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contacts.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadValidAndInvalidRows(t *testing.T) {
	t.Parallel()

	path := writeContacts(t, "email,name,gender,company\n"+
		"alice@x.com,Alice Smith,f,Acme\n"+
		"not-an-email,Bob Stone,m,Globex\n"+
		"carol@z.com,Carol Jones,z,Initech\n"+
		"dave@w.com,Dave Lee,m,\n"+
		"bob@y.com,Bob Stone,m,Globex\n")

	recipients, rowErrs, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(recipients) != 2 {
		t.Fatalf("recipients = %d, want 2", len(recipients))
	}
	if recipients[0].Email != "alice@x.com" || recipients[1].Email != "bob@y.com" {
		t.Fatalf("recipient order = %v", recipients)
	}
	if recipients[0].Gender != domain.GenderFeminine {
		t.Fatalf("gender = %q", recipients[0].Gender)
	}

	if len(rowErrs) != 3 {
		t.Fatalf("row errors = %d, want 3: %v", len(rowErrs), rowErrs)
	}
	if rowErrs[0].Line != 3 || rowErrs[1].Line != 4 || rowErrs[2].Line != 5 {
		t.Fatalf("row error lines = %v", rowErrs)
	}
}

func TestLoadDuplicateEmail(t *testing.T) {
	t.Parallel()

	path := writeContacts(t, "email,name,gender,company\n"+
		"alice@x.com,Alice Smith,f,Acme\n"+
		"ALICE@X.COM,Alice Smith,f,Acme\n")

	recipients, rowErrs, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(recipients) != 1 {
		t.Fatalf("recipients = %d, want 1", len(recipients))
	}
	if len(rowErrs) != 1 || rowErrs[0].Reason != "duplicate email" {
		t.Fatalf("row errors = %v", rowErrs)
	}
}

func TestLoadSemicolonDelimiterAndBOM(t *testing.T) {
	t.Parallel()

	path := writeContacts(t, "\xef\xbb\xbfemail;name;gender;company\n"+
		"alice@x.com;Alice Smith;f;Acme\n")

	recipients, rowErrs, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(rowErrs) != 0 {
		t.Fatalf("row errors = %v", rowErrs)
	}
	if len(recipients) != 1 || recipients[0].Company != "Acme" {
		t.Fatalf("recipients = %v", recipients)
	}
}

func TestLoadMissingHeader(t *testing.T) {
	t.Parallel()

	path := writeContacts(t, "email,name,company\nalice@x.com,Alice,Acme\n")

	if _, _, err := Load(path); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Load() error = %v, want ErrValidation", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, _, err := Load(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}
