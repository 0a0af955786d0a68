package contentsniff

import (
	"bytes"
	"fmt"
	"testing"
)

func TestTextPreviewRejectsNonPDF(t *testing.T) {
	s := New()

	if _, err := s.TextPreview("image/png", []byte("not a pdf")); err == nil {
		t.Fatalf("expected error for non-pdf mime type")
	}
}

func TestTextPreviewUnreadablePayload(t *testing.T) {
	s := New()

	if _, err := s.TextPreview("application/pdf", []byte("%PDF-1.4 truncated garbage")); err == nil {
		t.Fatalf("expected error for unreadable payload")
	}
}

// A payload with a valid header and xref table but an object offset pointing
// at a bare integer makes the pdf library panic while resolving the page
// tree. That must surface as an error, never escape the sniffer.
func TestTextPreviewCorruptObjectBody(t *testing.T) {
	s := New()

	text, err := s.TextPreview("application/pdf", corruptObjectPDF())
	if err == nil {
		t.Fatalf("expected error for corrupt object body, got text %q", text)
	}
	if text != "" {
		t.Fatalf("expected empty text on parse failure, got %q", text)
	}
}

// corruptObjectPDF builds a payload whose xref entry for object 2 points at
// the integer inside the object instead of its "2 0 obj" header.
func corruptObjectPDF() []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	off1 := buf.Len()
	buf.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	buf.WriteString("2 0 obj\n")
	off2 := buf.Len()
	buf.WriteString("12345\nendobj\n")
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 3\n0000000000 65535 f \n%010d 00000 n \n%010d 00000 n \n", off1, off2)
	fmt.Fprintf(&buf, "trailer\n<< /Size 3 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}
