package classify

import (
	"testing"

	"github.com/veralend/loandocs/internal/core/domain"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		want domain.Category
	}{
		{"Bank_Statement_Jan.pdf", domain.CategoryBanking},
		{"drivers_license_scan.jpg", domain.CategoryBorrower},
		{"LLC Operating Agreement.pdf", domain.CategoryBorrower},
		{"Appraisal - 123 Main.pdf", domain.CategoryProperty},
		{"Warranty Deed.pdf", domain.CategoryProperty},
		{"Title Commitment v2.pdf", domain.CategoryTitle},
		{"Insurance Binder.pdf", domain.CategoryInsurance},
		{"Mortgage Payoff.pdf", domain.CategoryLoan},
		{"random_file.pdf", domain.CategoryOther},
		{"", domain.CategoryOther},
	}

	for _, tc := range cases {
		if got := Classify(tc.name); got != tc.want {
			t.Fatalf("Classify(%q) = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	// "deed" appears before the title rule, so deed-named files always land
	// in property regardless of map iteration order anywhere else.
	for i := 0; i < 100; i++ {
		if got := Classify("deed_of_trust_title.pdf"); got != domain.CategoryProperty {
			t.Fatalf("iteration %d: Classify = %s, want property", i, got)
		}
	}
}

func TestClassifyText(t *testing.T) {
	if got := ClassifyText("This binder evidences INSURANCE coverage for the property"); got != domain.CategoryInsurance {
		t.Fatalf("ClassifyText = %s, want insurance", got)
	}
	if got := ClassifyText("nothing recognizable here"); got != domain.CategoryOther {
		t.Fatalf("ClassifyText = %s, want other", got)
	}
}
