// Package relevance decides whether a mailbox item is in scope for a loan.
// The design is deliberately high-recall: any one signal is sufficient,
// because a false positive is surfaced for human review while a false
// negative is a document silently missed.
package relevance

import (
	"strings"

	"github.com/veralend/loandocs/internal/core/domain"
)

// MessageMeta is the slice of a mailbox message the filter looks at.
type MessageMeta struct {
	Subject     string
	From        string
	To          string
	Cc          string
	BodySnippet string
}

// streetAbbreviations maps spelled-out street designators to their common
// short forms, so "123 Main Street" also matches "123 main st".
var streetAbbreviations = map[string]string{
	"drive":     "dr",
	"street":    "st",
	"avenue":    "ave",
	"road":      "rd",
	"boulevard": "blvd",
}

// IsRelevant applies the loan's identity signals in order, short-circuiting
// on the first match. Empty identity fields are skipped, never matched.
func IsRelevant(identity domain.LoanIdentity, msg MessageMeta) bool {
	subject := strings.ToLower(msg.Subject)
	from := strings.ToLower(msg.From)
	to := strings.ToLower(msg.To)
	cc := strings.ToLower(msg.Cc)

	for _, variant := range AddressVariants(identity.PropertyAddress) {
		if strings.Contains(subject, variant) {
			return true
		}
	}

	if number := strings.ToLower(strings.TrimSpace(identity.LoanNumber)); number != "" {
		if strings.Contains(subject, number) {
			return true
		}
	}

	if borrower := strings.ToLower(strings.TrimSpace(identity.BorrowerName)); borrower != "" {
		if strings.Contains(subject, borrower) || strings.Contains(from, borrower) || strings.Contains(to, borrower) {
			return true
		}
	}

	for _, email := range identity.ContactEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			continue
		}
		if strings.Contains(from, email) || strings.Contains(to, email) || strings.Contains(cc, email) {
			return true
		}
	}

	return false
}

// AddressVariants normalizes a property address into the token forms matched
// against message subjects: the full normalized street line, a
// street-name-only form with the leading house number stripped, and the
// abbreviation-shortened spellings of both. An empty address yields no
// variants.
func AddressVariants(address string) []string {
	normalized := normalizeStreetLine(address)
	if normalized == "" {
		return nil
	}

	seen := map[string]struct{}{}
	var variants []string
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		variants = append(variants, v)
	}

	add(normalized)
	add(abbreviate(normalized))

	if street := stripHouseNumber(normalized); street != normalized {
		add(street)
		add(abbreviate(street))
	}

	return variants
}

// normalizeStreetLine lowercases and keeps only the street line: everything
// after the first comma is dropped to avoid city/state collisions.
func normalizeStreetLine(address string) string {
	line := address
	if i := strings.Index(line, ","); i >= 0 {
		line = line[:i]
	}
	return strings.Join(strings.Fields(strings.ToLower(line)), " ")
}

func stripHouseNumber(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return line
	}
	if !isNumeric(fields[0]) {
		return line
	}
	return strings.Join(fields[1:], " ")
}

func abbreviate(line string) string {
	fields := strings.Fields(line)
	for i, f := range fields {
		if short, ok := streetAbbreviations[f]; ok {
			fields[i] = short
		}
	}
	return strings.Join(fields, " ")
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
