// Package dedup detects re-observations of the same physical file across
// channels: the same artifact frequently shows up verbatim in a Drive listing
// and as a mail attachment, and every periodic re-scan would re-ingest
// everything without this check.
package dedup

import (
	"strings"

	"github.com/veralend/loandocs/internal/core/domain"
)

// sizeTolerance absorbs encoding/transport overhead between channels.
const sizeTolerance = 1024

// IsDuplicate reports whether candidate matches any existing document.
// SourceRef equality is the exact fast path (a re-listed Drive file keeps its
// id); otherwise a candidate is a duplicate when the normalized names agree
// and the sizes agree within tolerance. A missing size on either side counts
// as size agreement, so a name match alone suffices.
func IsDuplicate(existing []domain.Document, candidate domain.Candidate) bool {
	for _, doc := range existing {
		if doc.SourceRef != "" && doc.SourceRef == candidate.SourceRef {
			return true
		}
	}

	name := NormalizeName(candidate.Name)
	for _, doc := range existing {
		if NormalizeName(doc.Name) != name {
			continue
		}
		if sizesAgree(doc.SizeBytes, candidate.SizeBytes) {
			return true
		}
	}
	return false
}

// NormalizeName lowercases and strips the trailing "(from …)" provenance
// suffix the mailbox adapter appends for display.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if i := strings.LastIndex(name, "(from "); i > 0 && strings.HasSuffix(name, ")") {
		name = strings.TrimSpace(name[:i])
	}
	return name
}

func sizesAgree(a, b int64) bool {
	if a <= 0 || b <= 0 {
		return true
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= sizeTolerance
}
