package attach

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/kursadbilgin/massmail/internal/domain"
)

// Converter turns a filled .docx into a portable document. The backend is
// treated as an already-correct primitive; its failures abort only the
// current recipient's attempt.
type Converter interface {
	Convert(ctx context.Context, docx []byte) ([]byte, error)
}

// LibreOffice converts through a headless soffice process.
type LibreOffice struct {
	binary string
}

func NewLibreOffice() (*LibreOffice, error) {
	for _, candidate := range []string{"soffice", "libreoffice"} {
		if path, err := exec.LookPath(candidate); err == nil {
			return &LibreOffice{binary: path}, nil
		}
	}
	return nil, fmt.Errorf("%w: neither soffice nor libreoffice found in PATH", domain.ErrConfiguration)
}

func (l *LibreOffice) Convert(ctx context.Context, docx []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "massmail-convert-")
	if err != nil {
		return nil, fmt.Errorf("%w: temp dir: %v", domain.ErrAttachment, err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "letter.docx")
	if err := os.WriteFile(in, docx, 0o600); err != nil {
		return nil, fmt.Errorf("%w: stage letter: %v", domain.ErrAttachment, err)
	}

	cmd := exec.CommandContext(ctx, l.binary, "--headless", "--convert-to", "pdf", "--outdir", dir, in)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: pdf conversion failed: %v: %s",
			domain.ErrAttachment, err, bytes.TrimSpace(output))
	}

	pdf, err := os.ReadFile(filepath.Join(dir, "letter.pdf"))
	if err != nil {
		return nil, fmt.Errorf("%w: converter produced no pdf: %v", domain.ErrAttachment, err)
	}
	return pdf, nil
}
