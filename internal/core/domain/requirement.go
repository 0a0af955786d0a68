package domain

// Category buckets every requirement and ingested document.
type Category string

const (
	CategoryBorrower  Category = "borrower"
	CategoryProperty  Category = "property"
	CategoryTitle     Category = "title"
	CategoryInsurance Category = "insurance"
	CategoryLoan      Category = "loan"
	CategoryBanking   Category = "banking"
	CategoryCustom    Category = "custom"
	CategoryOther     Category = "other"
)

var knownCategories = map[Category]struct{}{
	CategoryBorrower:  {},
	CategoryProperty:  {},
	CategoryTitle:     {},
	CategoryInsurance: {},
	CategoryLoan:      {},
	CategoryBanking:   {},
	CategoryCustom:    {},
	CategoryOther:     {},
}

func (c Category) Valid() bool {
	_, ok := knownCategories[c]
	return ok
}

// Requirement is one funder-mandated document obligation. Catalog entries are
// immutable at runtime; custom requirements are user-added and carry
// CategoryCustom.
type Requirement struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Category       Category `json:"category"`
	Required       bool     `json:"required"`
	FunderSpecific bool     `json:"funder_specific"`
	Description    string   `json:"description,omitempty"`
}

// Progress is the completion snapshot the UI reads. Percentages are computed
// over required requirements only; optional ones never move the needle.
type Progress struct {
	Overall    int              `json:"overall"`
	ByCategory map[Category]int `json:"by_category"`
}
