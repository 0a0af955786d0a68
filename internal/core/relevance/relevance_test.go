package relevance

import (
	"testing"

	"github.com/veralend/loandocs/internal/core/domain"
)

func TestAddressVariants(t *testing.T) {
	variants := AddressVariants("123 Main Street, Springfield, IL")

	want := map[string]bool{
		"123 main street": false,
		"123 main st":     false,
		"main street":     false,
		"main st":         false,
	}
	for _, v := range variants {
		if _, ok := want[v]; !ok {
			t.Fatalf("unexpected variant %q", v)
		}
		want[v] = true
	}
	for v, seen := range want {
		if !seen {
			t.Fatalf("missing variant %q", v)
		}
	}
}

func TestAddressVariantsEmpty(t *testing.T) {
	if got := AddressVariants("   "); got != nil {
		t.Fatalf("expected no variants for blank address, got %v", got)
	}
}

func TestIsRelevantAddressMatch(t *testing.T) {
	identity := domain.LoanIdentity{PropertyAddress: "123 Main Street, Springfield, IL"}

	for _, subject := range []string{
		"Docs for 123 Main Street closing",
		"RE: 123 main st insurance",
		"appraisal came in for Main Street",
	} {
		if !IsRelevant(identity, MessageMeta{Subject: subject}) {
			t.Fatalf("expected subject %q to be relevant", subject)
		}
	}

	if IsRelevant(identity, MessageMeta{Subject: "lunch on Friday?"}) {
		t.Fatalf("unrelated subject must not match")
	}
}

func TestIsRelevantLoanNumber(t *testing.T) {
	identity := domain.LoanIdentity{LoanNumber: "LN-4471"}

	if !IsRelevant(identity, MessageMeta{Subject: "payoff statement ln-4471"}) {
		t.Fatalf("expected case-insensitive loan number match")
	}
	if IsRelevant(identity, MessageMeta{From: "ln-4471@bank.com"}) {
		t.Fatalf("loan number matches subject only")
	}
}

func TestIsRelevantBorrowerName(t *testing.T) {
	identity := domain.LoanIdentity{BorrowerName: "Dana Whitfield"}

	if !IsRelevant(identity, MessageMeta{From: "dana whitfield <dw@example.com>"}) {
		t.Fatalf("expected borrower name match in from")
	}
	if !IsRelevant(identity, MessageMeta{Subject: "Updated W9 - Dana Whitfield"}) {
		t.Fatalf("expected borrower name match in subject")
	}
}

func TestIsRelevantContactEmail(t *testing.T) {
	identity := domain.LoanIdentity{ContactEmails: []string{"agent@title.co"}}

	if !IsRelevant(identity, MessageMeta{Cc: "Agent@Title.co"}) {
		t.Fatalf("expected contact email match in cc")
	}
}

func TestIsRelevantEmptyIdentityNeverMatches(t *testing.T) {
	identity := domain.LoanIdentity{
		BorrowerName:  "   ",
		ContactEmails: []string{""},
	}
	msg := MessageMeta{
		Subject: "anything at all",
		From:    "someone@example.com",
		To:      "else@example.com",
		Cc:      "third@example.com",
	}

	if IsRelevant(identity, msg) {
		t.Fatalf("blank identity fields must never match")
	}
}
