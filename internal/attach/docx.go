// Package attach builds the fixed two-file attachment set for every send:
// the personalized cover letter (docx, optionally converted to pdf) and
// the static specification spreadsheet.
package attach

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/kursadbilgin/massmail/internal/domain"
)

// FillDocx rewrites a .docx template, running fill over the document body
// and any header/footer parts. Everything else in the archive is copied
// through byte for byte.
func FillDocx(template []byte, fill func(string) (string, error)) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(template), int64(len(template)))
	if err != nil {
		return nil, fmt.Errorf("%w: open letter template: %v", domain.ErrAttachment, err)
	}

	var out bytes.Buffer
	writer := zip.NewWriter(&out)

	for _, entry := range reader.File {
		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", domain.ErrAttachment, entry.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", domain.ErrAttachment, entry.Name, err)
		}

		if isTextPart(entry.Name) {
			filled, err := fill(string(content))
			if err != nil {
				return nil, err
			}
			content = []byte(filled)
		}

		header := entry.FileHeader
		w, err := writer.CreateHeader(&header)
		if err != nil {
			return nil, fmt.Errorf("%w: write %s: %v", domain.ErrAttachment, entry.Name, err)
		}
		if _, err := w.Write(content); err != nil {
			return nil, fmt.Errorf("%w: write %s: %v", domain.ErrAttachment, entry.Name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: finalize letter: %v", domain.ErrAttachment, err)
	}
	return out.Bytes(), nil
}

func isTextPart(name string) bool {
	if name == "word/document.xml" {
		return true
	}
	return (strings.HasPrefix(name, "word/header") || strings.HasPrefix(name, "word/footer")) &&
		strings.HasSuffix(name, ".xml")
}
