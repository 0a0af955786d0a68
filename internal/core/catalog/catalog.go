package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/veralend/loandocs/internal/core/domain"
)

// Catalog resolves a funder id to its ordered requirement list. Resolution is
// pure and total: an unknown funder gets the lender-agnostic base list.
// Adding a funder is a data change (registry entry or YAML file), not a code
// change.
type Catalog struct {
	base    []domain.Requirement
	funders map[string][]domain.Requirement
}

func New() *Catalog {
	return &Catalog{
		base:    baseRequirements(),
		funders: builtinFunders(),
	}
}

// Resolve returns base ∪ funder-specific additions for the given funder.
// Funder-specific entries are tagged so the UI can show provenance.
func (c *Catalog) Resolve(funderID string) []domain.Requirement {
	out := make([]domain.Requirement, len(c.base))
	copy(out, c.base)

	extra, ok := c.funders[normalizeFunder(funderID)]
	if !ok {
		return out
	}
	return append(out, extra...)
}

// Funders lists the known funder ids, base excluded.
func (c *Catalog) Funders() []string {
	ids := make([]string, 0, len(c.funders))
	for id := range c.funders {
		ids = append(ids, id)
	}
	return ids
}

func normalizeFunder(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// LoadFile merges funder definitions from a YAML file into the registry.
// File entries override builtin entries for the same funder id.
func (c *Catalog) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog file: %w", err)
	}

	var file struct {
		Funders map[string][]struct {
			ID          string `yaml:"id"`
			Name        string `yaml:"name"`
			Category    string `yaml:"category"`
			Required    bool   `yaml:"required"`
			Description string `yaml:"description"`
		} `yaml:"funders"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse catalog file: %w", err)
	}

	for funder, entries := range file.Funders {
		reqs := make([]domain.Requirement, 0, len(entries))
		for _, e := range entries {
			category := domain.Category(e.Category)
			if !category.Valid() {
				category = domain.CategoryOther
			}
			reqs = append(reqs, domain.Requirement{
				ID:             e.ID,
				Name:           e.Name,
				Category:       category,
				Required:       e.Required,
				FunderSpecific: true,
				Description:    e.Description,
			})
		}
		c.funders[normalizeFunder(funder)] = reqs
	}
	return nil
}

// baseRequirements is the lender-agnostic minimum every loan file carries.
func baseRequirements() []domain.Requirement {
	return []domain.Requirement{
		{ID: "drivers-license", Name: "Driver's License", Category: domain.CategoryBorrower, Required: true},
		{ID: "entity-docs", Name: "Entity Formation Documents", Category: domain.CategoryBorrower, Required: true,
			Description: "Articles of organization, operating agreement, EIN letter"},
		{ID: "bank-statements", Name: "Bank Statements (2 months)", Category: domain.CategoryBanking, Required: true},
		{ID: "purchase-contract", Name: "Purchase Contract", Category: domain.CategoryProperty, Required: true},
		{ID: "appraisal", Name: "Appraisal Report", Category: domain.CategoryProperty, Required: true},
		{ID: "insurance-binder", Name: "Insurance Binder", Category: domain.CategoryInsurance, Required: true},
		{ID: "title-commitment", Name: "Title Commitment", Category: domain.CategoryTitle, Required: true},
		{ID: "loan-application", Name: "Loan Application", Category: domain.CategoryLoan, Required: true},
		{ID: "track-record", Name: "Track Record / Experience", Category: domain.CategoryBorrower, Required: false},
		{ID: "rehab-budget", Name: "Rehab Budget", Category: domain.CategoryProperty, Required: false},
	}
}

func builtinFunders() map[string][]domain.Requirement {
	return map[string][]domain.Requirement{
		"kiavi": {
			{ID: "kiavi-scope-of-work", Name: "Scope of Work (Kiavi form)", Category: domain.CategoryProperty,
				Required: true, FunderSpecific: true},
			{ID: "kiavi-guaranty", Name: "Personal Guaranty", Category: domain.CategoryBorrower,
				Required: true, FunderSpecific: true},
		},
		"lima one": {
			{ID: "lima-liquidity", Name: "Proof of Liquidity", Category: domain.CategoryBanking,
				Required: true, FunderSpecific: true},
			{ID: "lima-contractor-bid", Name: "Contractor Bid", Category: domain.CategoryProperty,
				Required: false, FunderSpecific: true},
		},
		"roc capital": {
			{ID: "roc-background", Name: "Background Check Authorization", Category: domain.CategoryBorrower,
				Required: true, FunderSpecific: true},
			{ID: "roc-payoff", Name: "Existing Mortgage Payoff Letter", Category: domain.CategoryLoan,
				Required: false, FunderSpecific: true},
		},
	}
}
