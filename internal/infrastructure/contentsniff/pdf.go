// Package contentsniff extracts short text previews from document payloads
// to hint classification when the filename gives nothing away.
package contentsniff

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	previewMaxPages = 2
	previewMaxBytes = 4096
)

type Sniffer struct{}

func New() *Sniffer {
	return &Sniffer{}
}

// TextPreview returns plain text from the first pages of a PDF payload.
// Non-PDF payloads and unreadable PDFs yield an error; callers treat that as
// "no hint".
func (s *Sniffer) TextPreview(mimeType string, data []byte) (text string, err error) {
	if !strings.EqualFold(mimeType, "application/pdf") {
		return "", fmt.Errorf("unsupported mime type %q", mimeType)
	}

	// The pdf library panics on payloads whose header parses but whose xref
	// or object bodies are corrupt.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var buf bytes.Buffer
	pages := r.NumPage()
	if pages > previewMaxPages {
		pages = previewMaxPages
	}
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
		buf.WriteByte('\n')
		if buf.Len() >= previewMaxBytes {
			break
		}
	}

	out := strings.TrimSpace(buf.String())
	if len(out) > previewMaxBytes {
		out = out[:previewMaxBytes]
	}
	if out == "" {
		return "", fmt.Errorf("no extractable text")
	}
	return out, nil
}
