// Package classify infers a best-guess category from a filename. The rule
// table is deterministic and data-driven; its failure mode is a
// misclassification a human corrects by reassigning, never an error.
package classify

import (
	"strings"

	"github.com/veralend/loandocs/internal/core/domain"
)

// Rule pairs a keyword set with the category it implies. Rules are evaluated
// in order, first match wins.
type Rule struct {
	Keywords []string
	Category domain.Category
}

var rules = []Rule{
	{Keywords: []string{"license", "passport", "identity", "entity", "llc", "formation", "operating agreement", "ein"}, Category: domain.CategoryBorrower},
	{Keywords: []string{"deed", "appraisal", "survey", "purchase", "rehab", "scope of work"}, Category: domain.CategoryProperty},
	{Keywords: []string{"title", "escrow", "settlement"}, Category: domain.CategoryTitle},
	{Keywords: []string{"insurance", "policy", "binder"}, Category: domain.CategoryInsurance},
	{Keywords: []string{"loan", "mortgage", "note", "payoff"}, Category: domain.CategoryLoan},
	{Keywords: []string{"bank", "statement", "financial"}, Category: domain.CategoryBanking},
}

// Classify maps a filename to a category via the ordered keyword table.
func Classify(name string) domain.Category {
	return classifyText(strings.ToLower(name))
}

// ClassifyText runs the same rule table over arbitrary text; used as a
// content hint when the filename alone resolves to "other".
func ClassifyText(text string) domain.Category {
	return classifyText(strings.ToLower(text))
}

func classifyText(lowered string) domain.Category {
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lowered, kw) {
				return rule.Category
			}
		}
	}
	return domain.CategoryOther
}
