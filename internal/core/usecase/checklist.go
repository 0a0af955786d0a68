package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/veralend/loandocs/internal/core/catalog"
	"github.com/veralend/loandocs/internal/core/domain"
	"github.com/veralend/loandocs/internal/core/ports"
)

// ChecklistUseCase owns the requirement/assignment/completion state. The
// persisted loan record is the single source of truth; there is no parallel
// in-memory copy.
type ChecklistUseCase struct {
	catalog *catalog.Catalog
	loans   ports.LoanRepository
	docs    ports.DocumentRepository
}

func NewChecklistUseCase(
	cat *catalog.Catalog,
	loans ports.LoanRepository,
	docs ports.DocumentRepository,
) *ChecklistUseCase {
	return &ChecklistUseCase{
		catalog: cat,
		loans:   loans,
		docs:    docs,
	}
}

func (uc *ChecklistUseCase) resolved(loan *domain.Loan) []domain.Requirement {
	return loan.Checklist(uc.catalog.Resolve(loan.Funder))
}

// Checklist returns the resolved requirement list merged with assignment and
// completion state.
func (uc *ChecklistUseCase) Checklist(ctx context.Context, loanID string) ([]ports.ChecklistEntry, error) {
	loan, err := uc.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("load loan: %w", err)
	}

	reqs := uc.resolved(loan)
	entries := make([]ports.ChecklistEntry, 0, len(reqs))
	for _, req := range reqs {
		entries = append(entries, ports.ChecklistEntry{
			Requirement: req,
			AssignedIDs: append([]string(nil), loan.Assignments[req.Name]...),
			Completed:   loan.Completed.Done(req.Name),
		})
	}
	return entries, nil
}

// Progress computes per-category and overall completion over required
// requirements only. A category with zero required requirements reads 0.
// Overall is computed over the union of required requirements, not an
// average of per-category percentages.
func (uc *ChecklistUseCase) Progress(ctx context.Context, loanID string) (domain.Progress, error) {
	loan, err := uc.loans.GetByID(ctx, loanID)
	if err != nil {
		return domain.Progress{}, fmt.Errorf("load loan: %w", err)
	}

	requiredByCat := map[domain.Category]int{}
	doneByCat := map[domain.Category]int{}
	var requiredTotal, doneTotal int

	for _, req := range uc.resolved(loan) {
		if !req.Required {
			continue
		}
		requiredByCat[req.Category]++
		requiredTotal++
		if loan.Completed.Done(req.Name) {
			doneByCat[req.Category]++
			doneTotal++
		}
	}

	progress := domain.Progress{
		Overall:    percentage(doneTotal, requiredTotal),
		ByCategory: make(map[domain.Category]int, len(requiredByCat)),
	}
	for cat, required := range requiredByCat {
		progress.ByCategory[cat] = percentage(doneByCat[cat], required)
	}
	return progress, nil
}

func percentage(done, required int) int {
	if required == 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(required)))
}

// AssignDocument links a document to a requirement. Both must exist; the
// document may already be soft-deleted (deletion and assignment are
// independent user intents).
func (uc *ChecklistUseCase) AssignDocument(ctx context.Context, loanID, requirementName, documentID string) error {
	loan, err := uc.loans.GetByID(ctx, loanID)
	if err != nil {
		return fmt.Errorf("load loan: %w", err)
	}
	if !loan.HasRequirement(uc.catalog.Resolve(loan.Funder), requirementName) {
		return domain.WrapError(domain.ErrRequirementNotFound, "assign document", fmt.Errorf("requirement %q", requirementName))
	}
	if _, err := uc.docs.GetByID(ctx, loanID, documentID); err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	if loan.Assignments == nil {
		loan.Assignments = domain.Assignments{}
	}
	loan.Assignments.Assign(requirementName, documentID)
	return uc.persist(ctx, loan)
}

func (uc *ChecklistUseCase) UnassignDocument(ctx context.Context, loanID, requirementName, documentID string) error {
	loan, err := uc.loans.GetByID(ctx, loanID)
	if err != nil {
		return fmt.Errorf("load loan: %w", err)
	}
	loan.Assignments.Unassign(requirementName, documentID)
	return uc.persist(ctx, loan)
}

// MarkComplete records manual completion. Valid with zero assigned
// documents: real-world completion sometimes happens outside the document
// trail.
func (uc *ChecklistUseCase) MarkComplete(ctx context.Context, loanID, requirementName string) error {
	loan, err := uc.loans.GetByID(ctx, loanID)
	if err != nil {
		return fmt.Errorf("load loan: %w", err)
	}
	if !loan.HasRequirement(uc.catalog.Resolve(loan.Funder), requirementName) {
		return domain.WrapError(domain.ErrRequirementNotFound, "mark complete", fmt.Errorf("requirement %q", requirementName))
	}

	if loan.Completed == nil {
		loan.Completed = domain.CompletionSet{}
	}
	loan.Completed.Mark(requirementName)
	return uc.persist(ctx, loan)
}

func (uc *ChecklistUseCase) Unmark(ctx context.Context, loanID, requirementName string) error {
	loan, err := uc.loans.GetByID(ctx, loanID)
	if err != nil {
		return fmt.Errorf("load loan: %w", err)
	}
	loan.Completed.Unmark(requirementName)
	return uc.persist(ctx, loan)
}

func (uc *ChecklistUseCase) AddCustomRequirement(ctx context.Context, loanID, name string) (domain.Requirement, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Requirement{}, domain.WrapError(domain.ErrInvalidInput, "add custom requirement", fmt.Errorf("name is required"))
	}

	loan, err := uc.loans.GetByID(ctx, loanID)
	if err != nil {
		return domain.Requirement{}, fmt.Errorf("load loan: %w", err)
	}
	if loan.HasRequirement(uc.catalog.Resolve(loan.Funder), name) {
		return domain.Requirement{}, domain.WrapError(domain.ErrInvalidInput, "add custom requirement", fmt.Errorf("requirement %q already exists", name))
	}

	req := domain.Requirement{
		ID:       "custom-" + uuid.NewString(),
		Name:     name,
		Category: domain.CategoryCustom,
		Required: true,
	}
	loan.CustomRequirements = append(loan.CustomRequirements, req)
	if err := uc.persist(ctx, loan); err != nil {
		return domain.Requirement{}, err
	}
	return req, nil
}

// RemoveCustomRequirement drops the requirement and its completion mark: a
// requirement cannot stay "completed" with no backing entry.
func (uc *ChecklistUseCase) RemoveCustomRequirement(ctx context.Context, loanID, name string) error {
	loan, err := uc.loans.GetByID(ctx, loanID)
	if err != nil {
		return fmt.Errorf("load loan: %w", err)
	}

	idx := -1
	for i, req := range loan.CustomRequirements {
		if req.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.WrapError(domain.ErrRequirementNotFound, "remove custom requirement", fmt.Errorf("requirement %q", name))
	}

	loan.CustomRequirements = append(loan.CustomRequirements[:idx], loan.CustomRequirements[idx+1:]...)
	loan.Completed.Unmark(name)
	return uc.persist(ctx, loan)
}

func (uc *ChecklistUseCase) ListDocuments(ctx context.Context, loanID string, includeDeleted bool) ([]domain.Document, error) {
	docs, err := uc.docs.ListByLoan(ctx, loanID, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument soft-deletes. Assignments referencing the document are left
// untouched so a later restore keeps its linkage.
func (uc *ChecklistUseCase) DeleteDocument(ctx context.Context, loanID, documentID string) error {
	if err := uc.docs.SetDeleted(ctx, loanID, documentID, true); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (uc *ChecklistUseCase) RestoreDocument(ctx context.Context, loanID, documentID string) error {
	if err := uc.docs.SetDeleted(ctx, loanID, documentID, false); err != nil {
		return fmt.Errorf("restore document: %w", err)
	}
	return nil
}

func (uc *ChecklistUseCase) RecategorizeDocument(ctx context.Context, loanID, documentID string, category domain.Category) error {
	if !category.Valid() {
		return domain.WrapError(domain.ErrInvalidInput, "recategorize document", fmt.Errorf("unknown category %q", category))
	}
	if err := uc.docs.UpdateCategory(ctx, loanID, documentID, category); err != nil {
		return fmt.Errorf("recategorize document: %w", err)
	}
	return nil
}

func (uc *ChecklistUseCase) persist(ctx context.Context, loan *domain.Loan) error {
	if err := uc.loans.UpdateChecklist(ctx, loan); err != nil {
		return fmt.Errorf("persist checklist state: %w", err)
	}
	return nil
}
