package attach

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/kursadbilgin/massmail/internal/domain"
)

// File is one attachment: name, declared content type, raw bytes.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

var extContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
}

// ContentTypeFor resolves an attachment content type from the filename.
func ContentTypeFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ct, ok := extContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Builder assembles the per-recipient attachment set. The letter template
// and the spreadsheet are read once per run; the spreadsheet blob is
// reused unchanged for every recipient.
type Builder struct {
	letterTemplate []byte
	spreadsheet    File
	toPDF          bool
	converter      Converter
}

func NewBuilder(letterTemplatePath, spreadsheetPath string, toPDF bool, converter Converter) (*Builder, error) {
	tpl, err := os.ReadFile(letterTemplatePath)
	if err != nil {
		return nil, fmt.Errorf("%w: letter template: %v", domain.ErrConfiguration, err)
	}
	sheet, err := os.ReadFile(spreadsheetPath)
	if err != nil {
		return nil, fmt.Errorf("%w: spreadsheet: %v", domain.ErrConfiguration, err)
	}
	if toPDF && converter == nil {
		return nil, fmt.Errorf("%w: pdf output requires a converter", domain.ErrConfiguration)
	}

	name := filepath.Base(spreadsheetPath)
	return &Builder{
		letterTemplate: tpl,
		spreadsheet:    File{Filename: name, ContentType: ContentTypeFor(name), Data: sheet},
		toPDF:          toPDF,
		converter:      converter,
	}, nil
}

// Build produces exactly two attachments for one recipient: the filled
// cover letter followed by the static spreadsheet. Order matters only for
// display.
func (b *Builder) Build(ctx context.Context, company string, fill func(string) (string, error)) ([]File, error) {
	letter, err := FillDocx(b.letterTemplate, fill)
	if err != nil {
		return nil, err
	}

	base := "Cover_Letter_" + strings.ReplaceAll(company, " ", "_")
	letterFile := File{
		Filename:    base + ".docx",
		ContentType: extContentTypes[".docx"],
		Data:        letter,
	}

	if b.toPDF {
		pdf, err := b.converter.Convert(ctx, letter)
		if err != nil {
			return nil, err
		}
		letterFile = File{
			Filename:    base + ".pdf",
			ContentType: extContentTypes[".pdf"],
			Data:        pdf,
		}
	}

	return []File{letterFile, b.spreadsheet}, nil
}
